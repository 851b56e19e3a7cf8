//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */

package ui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"goslidedeck/internal/deck"
	"goslidedeck/internal/domain"
	"goslidedeck/internal/vector"
)

// propertiesPanel edits the selected element of the active slide. Numeric and
// colour fields apply on Enter; toggles, selects and the rotation slider apply
// immediately.
type propertiesPanel struct {
	w     fyne.Window
	store *deck.Store
	// loading suppresses write-back while refresh fills the widgets.
	loading bool
	onErr   func(error)

	empty *widget.Label
	form  *fyne.Container

	content  *widget.Entry
	x, y     *widget.Entry
	width    *widget.Entry
	height   *widget.Entry
	rotation *widget.Slider
	rotLabel *widget.Label

	fontSize  *widget.Select
	bold      *widget.Check
	italic    *widget.Check
	underline *widget.Check
	align     *widget.Select

	color, background *widget.Entry
	borderColor       *widget.Entry
	borderWidth       *widget.Entry
	borderRadius      *widget.Entry

	textOnly []fyne.Disableable
	root     fyne.CanvasObject
}

func newPropertiesPanel(w fyne.Window, onErr func(error)) *propertiesPanel {
	p := &propertiesPanel{w: w, onErr: onErr}
	p.empty = widget.NewLabel("Select an element to edit its properties.")
	p.empty.Wrapping = fyne.TextWrapWord

	p.content = widget.NewMultiLineEntry()
	p.content.SetMinRowsVisible(3)
	p.content.OnChanged = func(s string) { p.apply(deck.ElementPatch{Content: &s}) }

	p.x = p.numberEntry(func(v float64) deck.ElementPatch { return deck.ElementPatch{X: &v} })
	p.y = p.numberEntry(func(v float64) deck.ElementPatch { return deck.ElementPatch{Y: &v} })
	p.width = p.numberEntry(func(v float64) deck.ElementPatch { return deck.ElementPatch{Width: &v} })
	p.height = p.numberEntry(func(v float64) deck.ElementPatch { return deck.ElementPatch{Height: &v} })

	p.rotLabel = widget.NewLabel("0°")
	p.rotation = widget.NewSlider(0, 360)
	p.rotation.Step = 1
	p.rotation.OnChanged = func(v float64) {
		p.rotLabel.SetText(numberText(v) + "°")
		p.apply(deck.ElementPatch{Rotation: &v})
	}

	p.fontSize = widget.NewSelect(fontSizeOptions(), func(opt string) {
		f := fontSizeFromOption(opt)
		p.apply(deck.ElementPatch{Style: &deck.StylePatch{FontSize: &f}})
	})
	p.bold = p.styleCheck("Bold", func(on bool) *deck.StylePatch {
		return &deck.StylePatch{FontWeight: deck.Ptr(pick(on, domain.WeightBold, domain.WeightNormal))}
	})
	p.italic = p.styleCheck("Italic", func(on bool) *deck.StylePatch {
		return &deck.StylePatch{FontStyle: deck.Ptr(pick(on, domain.FontStyleItalic, domain.FontStyleNormal))}
	})
	p.underline = p.styleCheck("Underline", func(on bool) *deck.StylePatch {
		return &deck.StylePatch{TextDecoration: deck.Ptr(pick(on, domain.DecorationUnderline, domain.DecorationNone))}
	})
	p.align = widget.NewSelect([]string{domain.AlignLeft, domain.AlignCenter, domain.AlignRight}, func(a string) {
		p.apply(deck.ElementPatch{Style: &deck.StylePatch{TextAlign: &a}})
	})

	p.color = p.colorEntry(func(s string) *deck.StylePatch { return &deck.StylePatch{Color: &s} })
	p.background = p.colorEntry(func(s string) *deck.StylePatch { return &deck.StylePatch{BackgroundColor: &s} })
	p.borderColor = p.colorEntry(func(s string) *deck.StylePatch { return &deck.StylePatch{BorderColor: &s} })
	p.borderWidth = p.optionalNumber(func(v float64, clear bool) *deck.StylePatch {
		return &deck.StylePatch{BorderWidth: &v, ClearBorderWidth: clear}
	})
	p.borderRadius = p.optionalNumber(func(v float64, clear bool) *deck.StylePatch {
		return &deck.StylePatch{BorderRadius: &v, ClearBorderRadius: clear}
	})
	p.textOnly = []fyne.Disableable{p.fontSize, p.bold, p.italic, p.underline, p.align, p.color}

	form := widget.NewForm(
		widget.NewFormItem("Content", p.content),
		widget.NewFormItem("X", p.x),
		widget.NewFormItem("Y", p.y),
		widget.NewFormItem("Width", p.width),
		widget.NewFormItem("Height", p.height),
		widget.NewFormItem("Rotation", container.NewBorder(nil, nil, nil, p.rotLabel, p.rotation)),
		widget.NewFormItem("Font size", p.fontSize),
		widget.NewFormItem("", container.NewHBox(p.bold, p.italic, p.underline)),
		widget.NewFormItem("Align", p.align),
		widget.NewFormItem("Colour", p.withPicker(p.color)),
		widget.NewFormItem("Background", p.withPicker(p.background)),
		widget.NewFormItem("Border", p.withPicker(p.borderColor)),
		widget.NewFormItem("Border width", p.borderWidth),
		widget.NewFormItem("Corner radius", p.borderRadius),
	)
	p.form = container.NewVBox(widget.NewLabelWithStyle("Properties", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}), form)
	p.root = container.NewVScroll(container.NewStack(p.empty, p.form))
	p.refresh()
	return p
}

func pick(on bool, yes, no string) string {
	if on {
		return yes
	}
	return no
}

func (p *propertiesPanel) numberEntry(patch func(float64) deck.ElementPatch) *widget.Entry {
	e := widget.NewEntry()
	e.OnSubmitted = func(s string) {
		if v, ok := parseNumber(s); ok {
			p.apply(patch(v))
		} else {
			p.refresh()
		}
	}
	return e
}

// optionalNumber clears the style field when submitted empty.
func (p *propertiesPanel) optionalNumber(patch func(v float64, clear bool) *deck.StylePatch) *widget.Entry {
	e := widget.NewEntry()
	e.SetPlaceHolder("none")
	e.OnSubmitted = func(s string) {
		if v, ok := parseNumber(s); ok && v >= 0 {
			p.apply(deck.ElementPatch{Style: patch(v, false)})
		} else if s == "" {
			p.apply(deck.ElementPatch{Style: patch(0, true)})
		} else {
			p.refresh()
		}
	}
	return e
}

func (p *propertiesPanel) colorEntry(patch func(string) *deck.StylePatch) *widget.Entry {
	e := widget.NewEntry()
	e.SetPlaceHolder("#rrggbb")
	e.OnSubmitted = func(s string) { p.apply(deck.ElementPatch{Style: patch(s)}) }
	return e
}

func (p *propertiesPanel) styleCheck(label string, patch func(bool) *deck.StylePatch) *widget.Check {
	return widget.NewCheck(label, func(on bool) { p.apply(deck.ElementPatch{Style: patch(on)}) })
}

func (p *propertiesPanel) withPicker(e *widget.Entry) fyne.CanvasObject {
	btn := widget.NewButtonWithIcon("", theme.ColorPaletteIcon(), func() {
		picker := dialog.NewColorPicker("Colour", "Element colour", func(c color.Color) {
			hex := hexColor(c)
			e.SetText(hex)
			e.OnSubmitted(hex)
		}, p.w)
		picker.Advanced = true
		picker.Show()
	})
	return container.NewBorder(nil, nil, nil, btn, e)
}

// setStore binds the panel to another deck.
func (p *propertiesPanel) setStore(s *deck.Store) {
	p.store = s
	p.refresh()
}

func (p *propertiesPanel) selected() (string, domain.Element, bool) {
	if p.store == nil {
		return "", domain.Element{}, false
	}
	id := p.store.Selection()
	if id == "" {
		return "", domain.Element{}, false
	}
	slideID := p.store.ActiveSlideID()
	el, ok := p.store.Element(slideID, id)
	return slideID, el, ok
}

func (p *propertiesPanel) apply(patch deck.ElementPatch) {
	if p.loading {
		return
	}
	slideID, el, ok := p.selected()
	if !ok {
		return
	}
	if err := p.store.UpdateElement(slideID, el.ID, patch); err != nil && !deck.IsSilent(err) && p.onErr != nil {
		p.onErr(err)
	}
}

// refresh loads the selected element into the widgets.
func (p *propertiesPanel) refresh() {
	_, el, ok := p.selected()
	if !ok {
		p.form.Hide()
		p.empty.Show()
		return
	}
	p.loading = true
	defer func() { p.loading = false }()
	p.empty.Hide()
	p.form.Show()

	setText(p.content, el.Content)
	setNumber(p.x, el.X)
	setNumber(p.y, el.Y)
	setNumber(p.width, el.Width)
	setNumber(p.height, el.Height)
	rot := vector.NormalizeDegrees(el.Rotation)
	p.rotation.SetValue(rot)
	p.rotLabel.SetText(numberText(rot) + "°")

	st := el.Style
	p.fontSize.SetSelected(fontSizeOption(st.FontSize))
	p.bold.SetChecked(st.FontWeight == domain.WeightBold)
	p.italic.SetChecked(st.FontStyle == domain.FontStyleItalic)
	p.underline.SetChecked(st.TextDecoration == domain.DecorationUnderline)
	align := st.TextAlign
	if align == "" {
		align = domain.AlignLeft
	}
	p.align.SetSelected(align)
	setText(p.color, st.Color)
	setText(p.background, st.BackgroundColor)
	setText(p.borderColor, st.BorderColor)
	setOptional(p.borderWidth, st.BorderWidth)
	setOptional(p.borderRadius, st.BorderRadius)

	for _, d := range p.textOnly {
		if el.Type == domain.ElementText {
			d.Enable()
		} else {
			d.Disable()
		}
	}
}

func setText(e *widget.Entry, s string) {
	if e.Text != s {
		e.SetText(s)
	}
}

func setNumber(e *widget.Entry, v float64) {
	if cur, ok := parseNumber(e.Text); !ok || cur != v {
		e.SetText(numberText(v))
	}
}

func setOptional(e *widget.Entry, v *float64) {
	if v == nil {
		setText(e, "")
		return
	}
	setNumber(e, *v)
}
