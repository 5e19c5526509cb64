/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package gesture

// Discrete, button-driven control actions. These bypass the state machine
// entirely and apply fixed deltas to the active layer as single-shot
// mutations. Actions on a locked or missing layer are silently ignored.

import (
	"math"

	"signstage/internal/geom"
	"signstage/internal/layers"
)

const (
	// RotateStepDeg is the fixed rotation increment.
	RotateStepDeg = 30.0
	// NudgeStepPx is the fixed axis-aligned move increment.
	NudgeStepPx = 20.0
	// ResizeStepMM is the fixed resize increment in real-world units.
	ResizeStepMM = 10.0
	// MinHeightMM is the effective-height floor for discrete resize.
	MinHeightMM = 10.0
)

// Direction is an axis-aligned nudge direction.
type Direction int

const (
	Up Direction = iota
	Down
	Left
	Right
)

// Controls applies discrete manipulation steps to the store's active layer.
type Controls struct {
	store *layers.Store
	ratio RatioProvider
}

// NewControls wires discrete controls to the shared layer store.
func NewControls(store *layers.Store, ratio RatioProvider) *Controls {
	return &Controls{store: store, ratio: ratio}
}

// Rotate turns the active layer by steps of 30 degrees (negative for
// counter-clockwise). Twelve positive steps wrap back to the start.
func (c *Controls) Rotate(steps int) {
	l, ok := c.activeUnlocked()
	if !ok {
		return
	}
	rot := geom.WrapDeg(l.Rotation + float64(steps)*RotateStepDeg)
	c.store.Mutate(l.ID, layers.Patch{Rotation: &rot})
}

// Nudge moves the active layer by 20px in the given direction, clamped to
// non-negative stage coordinates.
func (c *Controls) Nudge(d Direction) {
	l, ok := c.activeUnlocked()
	if !ok {
		return
	}
	pos := l.Position
	switch d {
	case Up:
		pos.Y -= NudgeStepPx
	case Down:
		pos.Y += NudgeStepPx
	case Left:
		pos.X -= NudgeStepPx
	case Right:
		pos.X += NudgeStepPx
	}
	pos.X = math.Max(pos.X, 0)
	pos.Y = math.Max(pos.Y, 0)
	c.store.Mutate(l.ID, layers.Patch{Position: &pos})
}

// Resize grows or shrinks the active layer by steps of 10mm effective
// height. The effective height never drops below 10mm, and the resulting
// scale stays inside the interactive clamp range.
func (c *Controls) Resize(steps int) {
	l, ok := c.activeUnlocked()
	if !ok {
		return
	}
	hMM := l.Graphic.HeightMM
	if hMM <= 0 {
		return
	}
	effective := hMM * l.Scale
	effective = math.Max(effective+float64(steps)*ResizeStepMM, MinHeightMM)
	scale := geom.Clamp(effective/hMM, ScaleMin, ScaleMax)
	c.store.Mutate(l.ID, layers.Patch{Scale: &scale})
}

func (c *Controls) activeUnlocked() (layers.Layer, bool) {
	l, ok := c.store.Active()
	if !ok || l.Locked {
		return layers.Layer{}, false
	}
	return l, true
}
