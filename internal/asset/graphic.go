/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package asset handles vector graphic payloads: intrinsic size metadata,
// rasterization, and deterministic release of decoded buffers. The graphic
// source is otherwise treated as an opaque drawable payload.
package asset

import (
	"encoding/xml"
	"errors"
	"fmt"
	"image"
	"io"
	"strconv"
	"strings"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// FallbackSizeMM is the intrinsic size assumed when metadata is absent or
// unparseable. Metadata problems are recovered locally, never surfaced.
const FallbackSizeMM = 100.0

// ErrReleased is returned when rasterizing after Release.
var ErrReleased = errors.New("asset: graphic payload released")

// Graphic is a decoded vector payload with intrinsic millimetre dimensions.
// The decoded icon and raster cache are owned by the Graphic and dropped on
// Release; callers must not retain them past that point.
type Graphic struct {
	Name     string
	Source   string
	WidthMM  float64
	HeightMM float64

	icon     *oksvg.SvgIcon
	cache    *image.RGBA
	cacheW   int
	cacheH   int
	released bool
}

// Parse reads viewBox/width/height metadata from SVG text and returns a
// Graphic. It never fails: unparseable metadata falls back to 100×100.
func Parse(source, name string) *Graphic {
	w, h := intrinsicSizeMM(source)
	return &Graphic{Name: name, Source: source, WidthMM: w, HeightMM: h}
}

// Released reports whether the payload has been released.
func (g *Graphic) Released() bool { return g.released }

// Release drops the decoded icon and raster cache. Safe to call repeatedly;
// double release on rapid add/remove sequences is a no-op.
func (g *Graphic) Release() {
	g.icon = nil
	g.cache = nil
	g.cacheW, g.cacheH = 0, 0
	g.released = true
}

// Rasterize renders the payload into an RGBA image of the requested pixel
// size. Results are cached per size; a decode failure is reported so the
// caller can skip the layer rather than abort.
func (g *Graphic) Rasterize(w, h int) (*image.RGBA, error) {
	if g.released {
		return nil, ErrReleased
	}
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("asset: invalid raster size %dx%d", w, h)
	}
	if g.cache != nil && g.cacheW == w && g.cacheH == h {
		return g.cache, nil
	}
	if g.icon == nil {
		icon, err := oksvg.ReadIconStream(strings.NewReader(g.Source), oksvg.WarnErrorMode)
		if err != nil {
			return nil, fmt.Errorf("asset: decode %q: %w", g.Name, err)
		}
		g.icon = icon
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	g.icon.SetTarget(0, 0, float64(w), float64(h))
	scanner := rasterx.NewScannerGV(w, h, img, img.Bounds())
	g.icon.Draw(rasterx.NewDasher(w, h, scanner), 1.0)
	g.cache = img
	g.cacheW, g.cacheH = w, h
	return img, nil
}

// intrinsicSizeMM extracts the declared size of the first <svg> element.
// Preference order: width/height attributes (with unit conversion), then
// viewBox extents, then the fallback square.
func intrinsicSizeMM(source string) (w, h float64) {
	w, h = FallbackSizeMM, FallbackSizeMM
	dec := xml.NewDecoder(strings.NewReader(source))
	dec.Strict = false
	// Sign packs occasionally carry odd charsets; read them as-is.
	dec.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) { return input, nil }
	for {
		tok, err := dec.Token()
		if err != nil {
			return w, h
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if se.Name.Local != "svg" {
			return w, h
		}
		var wAttr, hAttr, vbAttr string
		for _, a := range se.Attr {
			switch a.Name.Local {
			case "width":
				wAttr = a.Value
			case "height":
				hAttr = a.Value
			case "viewBox":
				vbAttr = a.Value
			}
		}
		if pw, ok1 := parseLengthMM(wAttr); ok1 {
			if ph, ok2 := parseLengthMM(hAttr); ok2 {
				return pw, ph
			}
		}
		if vw, vh, ok := parseViewBox(vbAttr); ok {
			return vw, vh
		}
		return w, h
	}
}

// parseLengthMM parses an SVG length like "600mm", "21cm" or "150" into
// millimetres. Unitless and px values are taken as millimetres 1:1, matching
// the uncalibrated fallback policy.
func parseLengthMM(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" || strings.HasSuffix(s, "%") {
		return 0, false
	}
	factor := 1.0
	for _, u := range []struct {
		suffix string
		mm     float64
	}{
		{"mm", 1}, {"cm", 10}, {"in", 25.4}, {"pt", 25.4 / 72}, {"pc", 25.4 / 6}, {"px", 1},
	} {
		if strings.HasSuffix(s, u.suffix) {
			s = strings.TrimSuffix(s, u.suffix)
			factor = u.mm
			break
		}
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v * factor, true
}

// parseViewBox extracts width/height from "minX minY width height".
func parseViewBox(s string) (w, h float64, ok bool) {
	fields := strings.FieldsFunc(strings.TrimSpace(s), func(r rune) bool { return r == ' ' || r == ',' || r == '\t' || r == '\n' })
	if len(fields) != 4 {
		return 0, 0, false
	}
	vw, err1 := strconv.ParseFloat(fields[2], 64)
	vh, err2 := strconv.ParseFloat(fields[3], 64)
	if err1 != nil || err2 != nil || vw <= 0 || vh <= 0 {
		return 0, 0, false
	}
	return vw, vh, true
}
