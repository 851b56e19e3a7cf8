//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"path/filepath"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	fstorage "fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"goslidedeck/internal/crash"
	"goslidedeck/internal/deck"
	"goslidedeck/internal/domain"
	"goslidedeck/internal/editor"
	"goslidedeck/internal/generate"
	"goslidedeck/internal/interaction"
	applog "goslidedeck/internal/log"
	"goslidedeck/internal/serial"
	"goslidedeck/internal/storage"
	"goslidedeck/internal/version"
)

// Run starts the Fyne desktop editor and blocks until the window closes.
func Run(opt Options) error {
	l := applog.WithComponent("ui")
	l.Info("starting UI", slog.String("deck", opt.DeckPath))

	fyneApp := app.NewWithID("goslidedeck")
	w := fyneApp.NewWindow("GoSlideDeck")
	prefs := fyneApp.Preferences()
	winW := max(prefs.IntWithFallback("window.width", 1280), 800)
	winH := max(prefs.IntWithFallback("window.height", 800), 600)
	w.Resize(fyne.NewSize(float32(winW), float32(winH)))

	ed := newEditorWindow(fyneApp, w, opt, l)
	defer crash.Recover(ed)

	if opt.DeckPath != "" {
		if err := ed.open(opt.DeckPath); err != nil {
			l.Error("auto-open deck failed", slog.Any("err", err))
			dialog.ShowError(err, w)
		}
	}
	if ed.sess == nil {
		if err := ed.newDeck(); err != nil {
			return err
		}
	}

	w.SetCloseIntercept(func() {
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
		ed.confirmDiscard("Quit", w.Close)
	})
	w.ShowAndRun()
	ed.close()
	return nil
}

// editorWindow owns the main window and the session shown in it.
type editorWindow struct {
	app   fyne.App
	w     fyne.Window
	opt   Options
	log   *slog.Logger
	prefs fyne.Preferences

	sess      *editor.Session
	unsub     func()
	autosaveC context.CancelFunc

	canvas   *SlideCanvas
	rail     *widget.List
	title    *widget.Entry
	status   *widget.Label
	generate *widget.ToolbarAction
	recent   *fyne.Menu
	props    *propertiesPanel
}

func newEditorWindow(a fyne.App, w fyne.Window, opt Options, l *slog.Logger) *editorWindow {
	ed := &editorWindow{app: a, w: w, opt: opt, log: l, prefs: a.Preferences()}
	ed.canvas = NewSlideCanvas()
	ed.canvas.OnEdit = ed.editText
	ed.status = widget.NewLabel("Ready")
	ed.props = newPropertiesPanel(w, ed.reportErr)
	ed.title = widget.NewEntry()
	ed.title.SetPlaceHolder("Deck title")
	ed.title.OnChanged = func(s string) {
		if ed.sess != nil && s != ed.sess.Store.Title() {
			ed.sess.Store.SetTitle(s)
		}
	}
	ed.rail = widget.NewList(ed.slideCount, ed.newThumb, ed.updateThumb)
	ed.rail.OnSelected = func(id widget.ListItemID) {
		if ed.sess != nil {
			ed.sess.Store.SetActiveSlide(id)
		}
	}
	ed.generate = widget.NewToolbarAction(theme.ComputerIcon(), ed.showGenerate)

	toolbar := widget.NewToolbar(
		widget.NewToolbarAction(theme.DocumentSaveIcon(), ed.save),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.ContentAddIcon(), ed.addSlide),
		widget.NewToolbarAction(theme.ContentRemoveIcon(), ed.deleteSlide),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.DocumentCreateIcon(), ed.addText),
		widget.NewToolbarAction(theme.FileImageIcon(), ed.addImage),
		widget.NewToolbarAction(theme.ColorPaletteIcon(), ed.pickBackground),
		widget.NewToolbarAction(theme.DeleteIcon(), ed.deleteSelected),
		widget.NewToolbarSeparator(),
		ed.generate,
		widget.NewToolbarSpacer(),
		widget.NewToolbarAction(theme.MediaPlayIcon(), ed.present),
	)

	ed.recent = fyne.NewMenu("Open Recent")
	w.SetMainMenu(ed.menus())

	work := container.NewHSplit(ed.canvas, ed.props.root)
	work.Offset = 0.75
	split := container.NewHSplit(ed.rail, work)
	split.Offset = 0.18
	top := container.NewVBox(toolbar, ed.title)
	w.SetContent(container.NewBorder(top, ed.status, nil, nil, split))
	w.Canvas().SetOnTypedKey(ed.canvas.TypedKey)
	ed.refreshRecent()
	return ed
}

func (ed *editorWindow) menus() *fyne.MainMenu {
	openRecent := fyne.NewMenuItem("Open Recent", nil)
	openRecent.ChildMenu = ed.recent
	file := fyne.NewMenu("File",
		fyne.NewMenuItem("New Deck", func() { ed.confirmDiscard("New Deck", func() { ed.reportErr(ed.newDeck()) }) }),
		fyne.NewMenuItem("Open…", ed.showOpen),
		openRecent,
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Save", ed.save),
		fyne.NewMenuItem("Save As…", ed.showSaveAs),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Import JSON…", ed.showImport),
		fyne.NewMenuItem("Export JSON…", ed.showExportJSON),
		fyne.NewMenuItem("Export PDF…", ed.showExportPDF),
	)
	slide := fyne.NewMenu("Slide",
		fyne.NewMenuItem("Add Slide", ed.addSlide),
		fyne.NewMenuItem("Delete Slide", ed.deleteSlide),
		fyne.NewMenuItem("Background Colour…", ed.pickBackground),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Generate Content…", ed.showGenerate),
		fyne.NewMenuItem("Present", ed.present),
	)
	insert := fyne.NewMenu("Insert",
		fyne.NewMenuItem("Text", ed.addText),
		fyne.NewMenuItem("Image…", ed.addImage),
	)
	about := fyne.NewMenu("About",
		fyne.NewMenuItem("Version", func() {
			dialog.ShowInformation("GoSlideDeck", "Version "+version.String(), ed.w)
		}),
	)
	return fyne.NewMainMenu(file, slide, insert, about)
}

func (ed *editorWindow) sessionOptions() editor.Options {
	o := ed.opt.Editor
	o.Canvas = ed.canvas
	o.Poster = fyne.Do
	next := o.OnGenerated
	o.OnGenerated = func(res generate.Result) {
		ed.generated(res)
		if next != nil {
			next(res)
		}
	}
	return o
}

// bind makes s the deck shown in the window.
func (ed *editorWindow) bind(s *editor.Session) {
	ed.close()
	ed.sess = s
	if ed.opt.Autosave > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		ed.autosaveC = cancel
		go s.RunAutosave(ctx, ed.opt.Autosave)
	}
	ed.unsub = s.Store.Subscribe(func(c deck.Change) { fyne.Do(func() { ed.changed(c) }) })
	ed.canvas.SetSession(s)
	ed.props.setStore(s.Store)
	ed.changed(deck.Change{Kind: deck.ChangeDocument})
	if s.GenerationAvailable() {
		ed.generate.Enable()
	} else {
		ed.generate.Disable()
	}
}

// changed refreshes the parts of the window a store change touched.
func (ed *editorWindow) changed(c deck.Change) {
	if ed.sess == nil {
		return
	}
	st := ed.sess.Store
	switch c.Kind {
	case deck.ChangeTitle, deck.ChangeDocument:
		if ed.title.Text != st.Title() {
			ed.title.SetText(st.Title())
		}
	}
	switch c.Kind {
	case deck.ChangeSelection:
	case deck.ChangeActive:
		ed.rail.Select(ed.activeIndex())
	case deck.ChangeElements, deck.ChangeSlide:
		ed.rail.RefreshItem(ed.activeIndex())
	default:
		ed.rail.Refresh()
		ed.rail.Select(ed.activeIndex())
	}
	switch c.Kind {
	case deck.ChangeSelection, deck.ChangeElements, deck.ChangeActive, deck.ChangeSlides, deck.ChangeDocument:
		ed.props.refresh()
	}
	ed.canvas.Refresh()
	ed.updateTitle()
}

func (ed *editorWindow) activeIndex() int {
	i, _ := ed.sess.Store.ActiveSlide()
	return i
}

func (ed *editorWindow) updateTitle() {
	name := "Untitled"
	if p := ed.sess.DeckPath(); p != "" {
		name = storage.DeckName(p)
	}
	if ed.sess.Dirty() {
		name += " *"
	}
	ed.w.SetTitle(name + " - GoSlideDeck")
}

func (ed *editorWindow) slideCount() int {
	if ed.sess == nil {
		return 0
	}
	return ed.sess.Store.SlideCount()
}

func (ed *editorWindow) newThumb() fyne.CanvasObject {
	img := canvas.NewImageFromResource(nil)
	img.FillMode = canvas.ImageFillContain
	img.SetMinSize(fyne.NewSize(160, 90))
	return container.NewBorder(nil, widget.NewLabel(""), nil, nil, img)
}

func (ed *editorWindow) updateThumb(id widget.ListItemID, obj fyne.CanvasObject) {
	c := obj.(*fyne.Container)
	var (
		img *canvas.Image
		lbl *widget.Label
	)
	for _, o := range c.Objects {
		switch v := o.(type) {
		case *canvas.Image:
			img = v
		case *widget.Label:
			lbl = v
		}
	}
	lbl.SetText(fmt.Sprintf("Slide %d", id+1))
	raw, err := ed.sess.Thumbnail(context.Background(), id)
	if err != nil {
		ed.log.Warn("thumbnail failed", slog.Int("slide", id), slog.Any("err", err))
		return
	}
	img.Resource = fyne.NewStaticResource(fmt.Sprintf("slide-%d.png", id), raw)
	img.Refresh()
}

func (ed *editorWindow) newDeck() error {
	s, err := editor.New(ed.sessionOptions())
	if err != nil {
		return err
	}
	ed.bind(s)
	ed.status.SetText("New deck")
	return nil
}

func (ed *editorWindow) open(path string) error {
	s, err := editor.Open(path, ed.sessionOptions())
	if err != nil {
		return err
	}
	ed.bind(s)
	addRecentDeck(ed.prefs, path)
	ed.refreshRecent()
	ed.status.SetText("Opened " + path)
	return nil
}

func (ed *editorWindow) refreshRecent() {
	ed.recent.Items = nil
	for _, p := range loadRecentDecks(ed.prefs) {
		ed.recent.Items = append(ed.recent.Items, fyne.NewMenuItem(p, func() {
			ed.confirmDiscard("Open", func() { ed.reportErr(ed.open(p)) })
		}))
	}
	if len(ed.recent.Items) == 0 {
		none := fyne.NewMenuItem("No recent decks", nil)
		none.Disabled = true
		ed.recent.Items = append(ed.recent.Items, none)
	}
	ed.recent.Refresh()
}

// confirmDiscard runs next directly for a clean deck, else after confirmation.
func (ed *editorWindow) confirmDiscard(title string, next func()) {
	if ed.sess == nil || !ed.sess.Dirty() {
		next()
		return
	}
	dialog.NewConfirm(title, "Discard unsaved changes?", func(ok bool) {
		if ok {
			next()
		}
	}, ed.w).Show()
}

func (ed *editorWindow) reportErr(err error) {
	if err == nil {
		return
	}
	var md *serial.MalformedDocument
	if errors.As(err, &md) {
		ed.status.SetText("Import rejected: " + md.Reason)
	}
	ed.log.Error("ui action failed", slog.Any("err", err))
	dialog.ShowError(err, ed.w)
}

func (ed *editorWindow) save() {
	if ed.sess.DeckPath() == "" {
		ed.showSaveAs()
		return
	}
	if err := ed.sess.Save(context.Background()); err != nil {
		ed.reportErr(err)
		return
	}
	ed.status.SetText("Saved " + ed.sess.DeckPath())
	ed.updateTitle()
}

func (ed *editorWindow) showSaveAs() {
	fd := dialog.NewFileSave(func(uc fyne.URIWriteCloser, err error) {
		if err != nil || uc == nil {
			ed.reportErr(err)
			return
		}
		path := uc.URI().Path()
		_ = uc.Close()
		if !strings.HasSuffix(path, storage.DeckExt) {
			path = strings.TrimSuffix(path, filepath.Ext(path)) + storage.DeckExt
		}
		if err := ed.sess.SaveAs(context.Background(), path); err != nil {
			ed.reportErr(err)
			return
		}
		addRecentDeck(ed.prefs, path)
		ed.refreshRecent()
		ed.status.SetText("Saved " + path)
		ed.updateTitle()
	}, ed.w)
	fd.SetFileName(deckFileName(ed.sess.Store.Title()))
	fd.SetFilter(fstorage.NewExtensionFileFilter([]string{".json"}))
	fd.Show()
}

func (ed *editorWindow) showOpen() {
	ed.confirmDiscard("Open", func() {
		fd := dialog.NewFileOpen(func(ur fyne.URIReadCloser, err error) {
			if err != nil || ur == nil {
				ed.reportErr(err)
				return
			}
			path := ur.URI().Path()
			_ = ur.Close()
			ed.reportErr(ed.open(path))
		}, ed.w)
		fd.SetFilter(fstorage.NewExtensionFileFilter([]string{".json"}))
		fd.Show()
	})
}

func (ed *editorWindow) showImport() {
	fd := dialog.NewFileOpen(func(ur fyne.URIReadCloser, err error) {
		if err != nil || ur == nil {
			ed.reportErr(err)
			return
		}
		defer ur.Close()
		if err := ed.sess.Import(ur); err != nil {
			ed.reportErr(err)
			return
		}
		ed.status.SetText("Imported " + ur.URI().Name())
	}, ed.w)
	fd.SetFilter(fstorage.NewExtensionFileFilter([]string{".json"}))
	fd.Show()
}

func (ed *editorWindow) showExportJSON() {
	fd := dialog.NewFileSave(func(uc fyne.URIWriteCloser, err error) {
		if err != nil || uc == nil {
			ed.reportErr(err)
			return
		}
		defer uc.Close()
		if err := ed.sess.ExportJSON(uc); err != nil {
			ed.reportErr(err)
			return
		}
		dialog.ShowInformation("Export JSON", "Exported to "+uc.URI().Path(), ed.w)
	}, ed.w)
	fd.SetFileName(exportName(ed.sess.Store.Title(), ".json"))
	fd.Show()
}

func (ed *editorWindow) showExportPDF() {
	fd := dialog.NewFileSave(func(uc fyne.URIWriteCloser, err error) {
		if err != nil || uc == nil {
			ed.reportErr(err)
			return
		}
		defer uc.Close()
		if err := ed.sess.ExportPDF(context.Background(), uc); err != nil {
			ed.reportErr(err)
			return
		}
		dialog.ShowInformation("Export PDF", "Exported to "+uc.URI().Path(), ed.w)
	}, ed.w)
	fd.SetFileName(exportName(ed.sess.Store.Title(), ".pdf"))
	fd.Show()
}

func (ed *editorWindow) addSlide() {
	st := ed.sess.Store
	id := st.AddSlide()
	for i, sl := range st.Snapshot().Slides {
		if sl.ID == id {
			st.SetActiveSlide(i)
		}
	}
}

func (ed *editorWindow) deleteSlide() {
	st := ed.sess.Store
	if st.SlideCount() <= 1 {
		dialog.ShowInformation("Delete Slide", "A deck keeps at least one slide.", ed.w)
		return
	}
	i, sl := st.ActiveSlide()
	dialog.NewConfirm("Delete Slide", fmt.Sprintf("Delete slide %d?", i+1), func(ok bool) {
		if ok {
			ed.reportErr(st.DeleteSlide(sl.ID))
		}
	}, ed.w).Show()
}

func (ed *editorWindow) addText() {
	_, err := ed.sess.AddText()
	ed.reportErr(err)
}

func (ed *editorWindow) addImage() {
	url := widget.NewEntry()
	url.SetPlaceHolder("https://… or data:image/png;base64,…")
	dialog.NewForm("Insert Image", "Insert", "Cancel", []*widget.FormItem{
		widget.NewFormItem("URL", url),
	}, func(ok bool) {
		if !ok || strings.TrimSpace(url.Text) == "" {
			return
		}
		_, err := ed.sess.AddImage(strings.TrimSpace(url.Text))
		ed.reportErr(err)
	}, ed.w).Show()
}

func (ed *editorWindow) deleteSelected() {
	if !ed.sess.Controller.KeyDown(interaction.KeyDelete) {
		dialog.ShowInformation("Delete", "Nothing selected.", ed.w)
	}
}

func (ed *editorWindow) editText(elementID string) {
	st := ed.sess.Store
	slideID := st.ActiveSlideID()
	el, ok := st.Element(slideID, elementID)
	if !ok {
		return
	}
	entry := widget.NewMultiLineEntry()
	entry.SetText(el.Content)
	d := dialog.NewForm("Edit Text", "Apply", "Cancel", []*widget.FormItem{
		widget.NewFormItem("Text", entry),
	}, func(ok bool) {
		if ok {
			ed.reportErr(st.UpdateElement(slideID, elementID, deck.ElementPatch{Content: deck.Ptr(entry.Text)}))
		}
	}, ed.w)
	d.Resize(fyne.NewSize(480, 260))
	d.Show()
}

func (ed *editorWindow) pickBackground() {
	slideID := ed.sess.Store.ActiveSlideID()
	picker := dialog.NewColorPicker("Background", "Slide background colour", func(c color.Color) {
		ed.reportErr(ed.sess.Store.SetSlideBackground(slideID, hexColor(c)))
	}, ed.w)
	picker.Advanced = true
	picker.Show()
}

func (ed *editorWindow) showGenerate() {
	if !ed.sess.GenerationAvailable() {
		dialog.ShowInformation("Generate", "No generation API key configured.", ed.w)
		return
	}
	slideID := ed.sess.Store.ActiveSlideID()
	if ed.sess.Runner.InFlight(slideID) {
		dialog.ShowInformation("Generate", "Generation already running for this slide.", ed.w)
		return
	}
	topic := widget.NewEntry()
	topic.SetPlaceHolder("e.g. Go concurrency patterns")
	dialog.NewForm("Generate Slide", "Generate", "Cancel", []*widget.FormItem{
		widget.NewFormItem("Topic", topic),
		widget.NewFormItem("", widget.NewLabel("Replaces every element on the current slide.")),
	}, func(ok bool) {
		if !ok {
			return
		}
		if _, err := ed.sess.Generate(context.Background(), topic.Text); err != nil {
			ed.reportErr(err)
			return
		}
		ed.generate.Disable()
		ed.status.SetText("Generating…")
	}, ed.w).Show()
}

// generated runs on the UI goroutine via the poster.
func (ed *editorWindow) generated(res generate.Result) {
	if ed.sess != nil && ed.sess.GenerationAvailable() {
		ed.generate.Enable()
	}
	switch {
	case errors.Is(res.Err, generate.ErrStale):
		ed.status.SetText("Generated content discarded: the deck changed")
	case res.Err != nil:
		ed.status.SetText("Generation failed")
		dialog.ShowError(res.Err, ed.w)
	default:
		ed.status.SetText(fmt.Sprintf("Generated %d elements", res.Elements))
	}
}

func (ed *editorWindow) present() {
	pw := ed.app.NewWindow("Presentation")
	p := interaction.NewPresenter(ed.sess.Snapshot(), func() { pw.Close() })
	view := newPresentView(ed.sess, p, ed.opt.PresentationWidth)
	pw.SetContent(view)
	pw.Canvas().SetOnTypedKey(func(e *fyne.KeyEvent) {
		if p.KeyDown(interaction.Key(e.Name)) {
			view.Refresh()
		}
	})
	pw.SetFullScreen(true)
	pw.Show()
}

// DeckPath and Snapshot let crash.Recover autosave the open deck.
func (ed *editorWindow) DeckPath() string {
	if ed.sess == nil {
		return ""
	}
	return ed.sess.DeckPath()
}

func (ed *editorWindow) Snapshot() domain.Presentation {
	if ed.sess == nil {
		return domain.Presentation{}
	}
	return ed.sess.Snapshot()
}

// close detaches the current session.
func (ed *editorWindow) close() {
	if ed.autosaveC != nil {
		ed.autosaveC()
		ed.autosaveC = nil
	}
	if ed.unsub != nil {
		ed.unsub()
		ed.unsub = nil
	}
	if ed.sess != nil {
		ed.sess.Close()
	}
}
