/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package gesture

// Snapping helpers for interactive manipulation. Deterministic and
// UI-agnostic so they can be unit tested in isolation.

import (
	"math"

	"signstage/internal/geom"
)

const (
	// angleSnapStep is the grid of preferred sign angles.
	angleSnapStep = 15.0
	// angleSnapWindow is how close (degrees) a computed angle must be to a
	// step multiple before it snaps.
	angleSnapWindow = 5.0
	// scaleSnapWindow is the distance at which a computed scale snaps to a
	// nice value.
	scaleSnapWindow = 0.1
	// snapEps absorbs float64 rounding at the window boundary
	// (2.5 - 2.4 exceeds 0.1 by ~1e-16).
	snapEps = 1e-9
)

// niceScales are the preferred resize factors.
var niceScales = []float64{0.25, 0.5, 0.75, 1, 1.25, 1.5, 1.75, 2, 2.5, 3, 4, 5}

// SnapAngle rounds deg to the nearest multiple of 15° when within 5° of it.
// The result is wrapped to [0,360).
func SnapAngle(deg float64) float64 {
	d := geom.WrapDeg(deg)
	nearest := math.Round(d/angleSnapStep) * angleSnapStep
	if math.Abs(d-nearest) <= angleSnapWindow {
		return geom.WrapDeg(nearest)
	}
	return d
}

// SnapScale rounds scale to the nearest nice value when within 0.1 of it.
func SnapScale(scale float64) float64 {
	best := scale
	bestDist := scaleSnapWindow + snapEps
	for _, n := range niceScales {
		if d := math.Abs(scale - n); d <= bestDist {
			best = n
			bestDist = d
		}
	}
	return best
}

// SnapToGrid rounds a stage point to the nearest grid cell corner.
// A non-positive cell size disables snapping.
func SnapToGrid(p geom.Pt, cell float64) geom.Pt {
	if cell <= 0 {
		return p
	}
	return geom.Pt{
		X: math.Round(p.X/cell) * cell,
		Y: math.Round(p.Y/cell) * cell,
	}
}
