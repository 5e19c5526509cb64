/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package calibrate derives a pixels-per-millimetre ratio from two
// user-picked stage points and a known real-world distance. The uncalibrated
// state is not an error: consumers fall back to 1:1 pixel treatment.
package calibrate

import (
	"signstage/internal/domain"
	"signstage/internal/geom"
)

// Engine holds the calibration inputs. The ratio is derived, never stored.
type Engine struct {
	points     []geom.Pt // sliding window, oldest first, max 2
	distanceMM float64   // <= 0 means "not yet set"
}

// New returns an empty, uncalibrated engine.
func New() *Engine { return &Engine{} }

// AddPoint appends a reference point. A third point evicts the oldest so the
// window always keeps the most recent two. Always succeeds.
func (e *Engine) AddPoint(x, y float64) {
	e.points = append(e.points, geom.Pt{X: x, Y: y})
	if len(e.points) > 2 {
		e.points = e.points[len(e.points)-2:]
	}
}

// Points returns a copy of the active reference points, oldest first.
func (e *Engine) Points() []geom.Pt {
	return append([]geom.Pt(nil), e.points...)
}

// RemoveLastPoint drops the most recent point, if any.
func (e *Engine) RemoveLastPoint() {
	if len(e.points) > 0 {
		e.points = e.points[:len(e.points)-1]
	}
}

// SetReferenceDistance stores the real-world length of the segment between
// the two points. Values <= 0 leave the engine uncalibrated.
func (e *Engine) SetReferenceDistance(mm float64) {
	e.distanceMM = mm
}

// ReferenceDistance returns the configured distance (0 if unset).
func (e *Engine) ReferenceDistance() float64 {
	if e.distanceMM <= 0 {
		return 0
	}
	return e.distanceMM
}

// Ratio returns the derived pixels-per-millimetre ratio. ok is false until
// exactly two points and a positive distance are present.
func (e *Engine) Ratio() (ppmm float64, ok bool) {
	if len(e.points) != 2 || e.distanceMM <= 0 {
		return 0, false
	}
	return geom.Dist(e.points[0], e.points[1]) / e.distanceMM, true
}

// Reset clears points and distance back to the uninitialized state.
func (e *Engine) Reset() {
	e.points = nil
	e.distanceMM = 0
}

// Snapshot converts the engine state into its serialized form.
func (e *Engine) Snapshot() domain.Calibration {
	c := domain.Calibration{}
	for _, p := range e.points {
		c.Points = append(c.Points, domain.Point{X: p.X, Y: p.Y})
	}
	if e.distanceMM > 0 {
		c.ReferenceDistanceMM = e.distanceMM
	}
	if r, ok := e.Ratio(); ok {
		c.PixelsPerMM = &r
	}
	return c
}

// Restore replaces the engine state from a serialized calibration. The
// persisted ratio is ignored; it is re-derived from points and distance.
func (e *Engine) Restore(c domain.Calibration) {
	e.Reset()
	for _, p := range c.Points {
		e.AddPoint(p.X, p.Y)
	}
	if c.ReferenceDistanceMM > 0 {
		e.SetReferenceDistance(c.ReferenceDistanceMM)
	}
}
