/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package compose renders the stage (photo background plus overlay layers)
// into a flat raster and writes it to the export sinks. Layer order in the
// input slice is z-order; a layer that fails to decode is reported as a
// warning and skipped, never aborting the whole export.
package compose

import (
	"image"
	"image/color"
	"image/draw"
	"log/slog"
	"math"

	xdraw "golang.org/x/image/draw"

	"signstage/internal/geom"
	"signstage/internal/layers"
	applog "signstage/internal/log"
)

// Stage describes the scene to render.
type Stage struct {
	// Background photo; nil falls back to a flat BackColor fill.
	Background image.Image
	BackColor  color.RGBA
	// Logical stage size in pixels (the gesture coordinate space).
	Width, Height int
	// Calibration ratio; Calibrated=false selects the 1:1 fallback.
	PixelsPerMM float64
	Calibrated  bool
}

// Warning records a per-layer render failure that was skipped.
type Warning struct {
	LayerID   string
	LayerName string
	Err       error
}

// Render flattens the stage at the given preset factor. factor scales every
// output dimension (1 = logical stage size). Decode failures of individual
// layers are collected as warnings; the composite of the remaining layers is
// still returned.
func Render(st Stage, list []layers.Layer, factor float64) (*image.RGBA, []Warning) {
	log := applog.WithComponent("compose")
	if factor <= 0 {
		factor = 1
	}
	outW := int(math.Round(float64(st.Width) * factor))
	outH := int(math.Round(float64(st.Height) * factor))
	if outW < 1 {
		outW = 1
	}
	if outH < 1 {
		outH = 1
	}

	out := image.NewRGBA(image.Rect(0, 0, outW, outH))
	back := st.BackColor
	if back.A == 0 {
		back = color.RGBA{255, 255, 255, 255}
	}
	draw.Draw(out, out.Bounds(), &image.Uniform{C: back}, image.Point{}, draw.Src)
	if st.Background != nil {
		drawCover(out, st.Background)
	}

	var warnings []Warning
	for _, l := range list {
		if err := drawLayer(out, st, l, factor); err != nil {
			log.Warn("layer skipped", slog.String("layer", l.ID),
				slog.String("name", l.Name), slog.Any("error", err))
			warnings = append(warnings, Warning{LayerID: l.ID, LayerName: l.Name, Err: err})
		}
	}
	return out, warnings
}

// drawCover scales the background to fill the whole output, preserving its
// aspect ratio by center-cropping the source.
func drawCover(dst *image.RGBA, src image.Image) {
	db := dst.Bounds()
	sb := src.Bounds()
	if sb.Dx() == 0 || sb.Dy() == 0 {
		return
	}
	dstAspect := float64(db.Dx()) / float64(db.Dy())
	srcAspect := float64(sb.Dx()) / float64(sb.Dy())

	crop := sb
	if srcAspect > dstAspect {
		// Source is wider: crop left/right.
		w := int(math.Round(float64(sb.Dy()) * dstAspect))
		off := (sb.Dx() - w) / 2
		crop = image.Rect(sb.Min.X+off, sb.Min.Y, sb.Min.X+off+w, sb.Max.Y)
	} else if srcAspect < dstAspect {
		h := int(math.Round(float64(sb.Dx()) / dstAspect))
		off := (sb.Dy() - h) / 2
		crop = image.Rect(sb.Min.X, sb.Min.Y+off, sb.Max.X, sb.Min.Y+off+h)
	}
	xdraw.CatmullRom.Scale(dst, db, src, crop, xdraw.Src, nil)
}

// drawLayer rasterizes one overlay at its output pixel size and blits it
// with rotation about the rect center and uniform opacity.
func drawLayer(dst *image.RGBA, st Stage, l layers.Layer, factor float64) error {
	if l.Graphic == nil {
		return nil
	}
	r := layers.Bounds(l, st.PixelsPerMM, st.Calibrated)
	r = geom.Rect{X: r.X * factor, Y: r.Y * factor, W: r.W * factor, H: r.H * factor}
	pw := int(math.Round(r.W))
	ph := int(math.Round(r.H))
	if pw < 1 || ph < 1 {
		return nil
	}
	raster, err := l.Graphic.Rasterize(pw, ph)
	if err != nil {
		return err
	}
	opacity := geom.Clamp(l.Opacity, 0, 1)
	if opacity == 0 {
		return nil
	}

	if l.Rotation == 0 {
		blitAxisAligned(dst, raster, r, opacity)
		return nil
	}
	blitRotated(dst, raster, r, l.Rotation, opacity)
	return nil
}

func blitAxisAligned(dst *image.RGBA, src *image.RGBA, r geom.Rect, opacity float64) {
	x0 := int(math.Round(r.X))
	y0 := int(math.Round(r.Y))
	if opacity >= 1 {
		target := image.Rect(x0, y0, x0+src.Bounds().Dx(), y0+src.Bounds().Dy())
		draw.Draw(dst, target, src, src.Bounds().Min, draw.Over)
		return
	}
	sb := src.Bounds()
	for y := 0; y < sb.Dy(); y++ {
		for x := 0; x < sb.Dx(); x++ {
			blendPixel(dst, x0+x, y0+y, src.RGBAAt(sb.Min.X+x, sb.Min.Y+y), opacity)
		}
	}
}

// blitRotated inverse-maps every destination pixel of the rotated bounds
// back into the unrotated raster and samples it nearest-neighbor.
func blitRotated(dst *image.RGBA, src *image.RGBA, r geom.Rect, rotDeg, opacity float64) {
	fwd := geom.AboutCenter(r, rotDeg)
	inv := fwd.Invert()
	bounds := geom.TransformBounds(r, fwd)

	db := dst.Bounds()
	x0 := int(math.Floor(bounds.X))
	y0 := int(math.Floor(bounds.Y))
	x1 := int(math.Ceil(bounds.X + bounds.W))
	y1 := int(math.Ceil(bounds.Y + bounds.H))
	if x0 < db.Min.X {
		x0 = db.Min.X
	}
	if y0 < db.Min.Y {
		y0 = db.Min.Y
	}
	if x1 > db.Max.X {
		x1 = db.Max.X
	}
	if y1 > db.Max.Y {
		y1 = db.Max.Y
	}

	sb := src.Bounds()
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			// Sample at the pixel center for a stable mapping.
			q := inv.Apply(geom.Pt{X: float64(x) + 0.5, Y: float64(y) + 0.5})
			if q.X < r.X || q.X >= r.X+r.W || q.Y < r.Y || q.Y >= r.Y+r.H {
				continue
			}
			sx := sb.Min.X + int((q.X-r.X)/r.W*float64(sb.Dx()))
			sy := sb.Min.Y + int((q.Y-r.Y)/r.H*float64(sb.Dy()))
			if sx >= sb.Max.X {
				sx = sb.Max.X - 1
			}
			if sy >= sb.Max.Y {
				sy = sb.Max.Y - 1
			}
			blendPixel(dst, x, y, src.RGBAAt(sx, sy), opacity)
		}
	}
}

// blendPixel source-over composites one premultiplied source pixel with an
// extra uniform opacity factor.
func blendPixel(dst *image.RGBA, x, y int, s color.RGBA, opacity float64) {
	if !(image.Point{X: x, Y: y}.In(dst.Bounds())) {
		return
	}
	a := float64(s.A) / 255 * opacity
	if a <= 0 {
		return
	}
	// Source values are premultiplied; rescale by the extra opacity only.
	sr := float64(s.R) * opacity
	sg := float64(s.G) * opacity
	sb := float64(s.B) * opacity

	d := dst.RGBAAt(x, y)
	ia := 1 - a
	dst.SetRGBA(x, y, color.RGBA{
		R: uint8(math.Min(sr+float64(d.R)*ia, 255)),
		G: uint8(math.Min(sg+float64(d.G)*ia, 255)),
		B: uint8(math.Min(sb+float64(d.B)*ia, 255)),
		A: uint8(math.Min(a*255+float64(d.A)*ia, 255)),
	})
}
