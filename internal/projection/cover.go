/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */

package projection

import "image"

// CoverRect returns the window of a srcW x srcH image that, scaled to
// dstW x dstH, fills the destination while keeping the aspect ratio. The
// window is centred; overflow on the long axis is cropped.
func CoverRect(srcW, srcH int, dstW, dstH float64) image.Rectangle {
	if srcW <= 0 || srcH <= 0 || dstW <= 0 || dstH <= 0 {
		return image.Rect(0, 0, max(srcW, 0), max(srcH, 0))
	}
	srcAR := float64(srcW) / float64(srcH)
	dstAR := dstW / dstH
	if srcAR > dstAR {
		// source wider: crop left and right
		w := int(float64(srcH)*dstAR + 0.5)
		x := (srcW - w) / 2
		return image.Rect(x, 0, x+w, srcH)
	}
	h := int(float64(srcW)/dstAR + 0.5)
	y := (srcH - h) / 2
	return image.Rect(0, y, srcW, y+h)
}
