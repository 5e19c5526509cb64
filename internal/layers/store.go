/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package layers holds the ordered collection of overlay elements placed on
// the stage. Slice order is z-order; there is no reorder operation. Layer
// records are values: every mutation builds a patched copy and replaces the
// slot, so a render pass scheduled on the same event-loop tick always
// observes a consistent snapshot.
package layers

import (
	"log/slog"

	"github.com/google/uuid"

	"signstage/internal/asset"
	"signstage/internal/domain"
	"signstage/internal/geom"
	applog "signstage/internal/log"
)

// Mode selects how many layers the store keeps.
type Mode int

const (
	// Simple keeps at most one layer; adding replaces the existing one.
	Simple Mode = iota
	// Multi appends without limit.
	Multi
)

// Default placement and transform state for freshly added layers.
const (
	defaultX       = 60.0
	defaultY       = 60.0
	defaultScale   = 1.0
	defaultOpacity = 1.0
)

// Layer is one overlay element with independent transform state.
// The Graphic payload is exclusively owned by the store entry; it is
// released exactly once, on removal or store reset.
type Layer struct {
	ID       string
	Name     string
	Graphic  *asset.Graphic
	Position geom.Pt
	Rotation float64 // degrees, wrapped to [0,360)
	Scale    float64 // always > 0
	Opacity  float64 // 0..1
	Locked   bool
}

// Patch is a partial layer update. Nil fields are left untouched.
// Geometric fields (Position/Rotation/Scale) are ignored on locked layers;
// Opacity, Locked and Name remain mutable housekeeping.
type Patch struct {
	Position *geom.Pt
	Rotation *float64
	Scale    *float64
	Opacity  *float64
	Locked   *bool
	Name     *string
}

// Store is the only shared mutable state of the stage. It is written by the
// gesture recognizer and the discrete control handlers, both serialized on
// the host event loop; no locking here.
type Store struct {
	mode     Mode
	list     []Layer
	activeID string
	log      *slog.Logger
}

// NewStore creates an empty store in the given mode.
func NewStore(mode Mode) *Store {
	return &Store{mode: mode, log: applog.WithComponent("layers")}
}

// Mode returns the configured layer mode.
func (s *Store) Mode() Mode { return s.mode }

// Len returns the number of layers.
func (s *Store) Len() int { return len(s.list) }

// All returns a copy of the layer list in z-order (bottom first).
func (s *Store) All() []Layer {
	return append([]Layer(nil), s.list...)
}

// Add decodes the graphic source, places a new layer at the default
// position, and makes it active. In Simple mode the previous layer is
// replaced and its payload released. Never fails; missing metadata falls
// back to the asset package default.
func (s *Store) Add(source, name string) Layer {
	g := asset.Parse(source, name)
	l := Layer{
		ID:       uuid.NewString(),
		Name:     name,
		Graphic:  g,
		Position: geom.Pt{X: defaultX, Y: defaultY},
		Scale:    defaultScale,
		Opacity:  defaultOpacity,
	}
	if s.mode == Simple && len(s.list) > 0 {
		for i := range s.list {
			s.releaseAt(i)
		}
		s.list = s.list[:0]
	}
	s.list = append(s.list, l)
	s.activeID = l.ID
	s.log.Debug("layer added", slog.String("id", l.ID), slog.String("name", name),
		slog.Float64("w_mm", g.WidthMM), slog.Float64("h_mm", g.HeightMM))
	return l
}

// AddGraphic inserts an already-parsed graphic (built-in library path).
func (s *Store) AddGraphic(g *asset.Graphic) Layer {
	return s.Add(g.Source, g.Name)
}

// Remove deletes a layer and releases its payload. Removing an unknown id
// is a no-op. If the removed layer was active, the selection becomes none.
func (s *Store) Remove(id string) {
	idx := s.indexOf(id)
	if idx < 0 {
		return
	}
	s.releaseAt(idx)
	s.list = append(s.list[:idx], s.list[idx+1:]...)
	if s.activeID == id {
		s.activeID = ""
	}
	s.log.Debug("layer removed", slog.String("id", id))
}

// Select sets the active layer pointer; no-op if the id is unknown.
func (s *Store) Select(id string) {
	if s.indexOf(id) >= 0 {
		s.activeID = id
	}
}

// ClearSelection drops the active layer pointer.
func (s *Store) ClearSelection() { s.activeID = "" }

// Active returns the active layer, if any.
func (s *Store) Active() (Layer, bool) {
	return s.Get(s.activeID)
}

// ActiveID returns the active layer id ("" when none).
func (s *Store) ActiveID() string { return s.activeID }

// Get returns a copy of the layer with the given id.
func (s *Store) Get(id string) (Layer, bool) {
	idx := s.indexOf(id)
	if idx < 0 {
		return Layer{}, false
	}
	return s.list[idx], true
}

// Mutate applies a partial update to exactly one layer by rebuilding the
// record and replacing the slot. Unknown ids are a no-op. On locked layers
// geometric fields are dropped silently.
func (s *Store) Mutate(id string, p Patch) {
	idx := s.indexOf(id)
	if idx < 0 {
		return
	}
	l := s.list[idx] // copy
	if !l.Locked {
		if p.Position != nil {
			l.Position = *p.Position
		}
		if p.Rotation != nil {
			l.Rotation = geom.WrapDeg(*p.Rotation)
		}
		if p.Scale != nil && *p.Scale > 0 {
			l.Scale = *p.Scale
		}
	}
	if p.Opacity != nil {
		l.Opacity = geom.Clamp(*p.Opacity, 0, 1)
	}
	if p.Locked != nil {
		l.Locked = *p.Locked
	}
	if p.Name != nil {
		l.Name = *p.Name
	}
	s.list[idx] = l
}

// RenderSize returns the on-stage pixel size of a layer, preserving the
// intrinsic aspect ratio. ppmm is the calibration ratio; calibrated=false
// selects the 1:1 pixel fallback.
func RenderSize(l Layer, ppmm float64, calibrated bool) geom.Size {
	if !calibrated || ppmm <= 0 {
		ppmm = 1
	}
	hMM := l.Graphic.HeightMM
	wMM := l.Graphic.WidthMM
	if hMM <= 0 {
		hMM = asset.FallbackSizeMM
	}
	if wMM <= 0 {
		wMM = asset.FallbackSizeMM
	}
	h := ppmm * hMM * l.Scale
	w := h * (wMM / hMM)
	return geom.Size{W: w, H: h}
}

// Bounds returns the unrotated drawable rect of a layer on the stage.
func Bounds(l Layer, ppmm float64, calibrated bool) geom.Rect {
	sz := RenderSize(l, ppmm, calibrated)
	return geom.Rect{X: l.Position.X, Y: l.Position.Y, W: sz.W, H: sz.H}
}

// HitTest returns the topmost unlocked-or-locked layer under the stage
// point, honoring each layer's rotation. Later layers draw on top, so the
// scan runs back to front.
func (s *Store) HitTest(p geom.Pt, ppmm float64, calibrated bool) (Layer, bool) {
	for i := len(s.list) - 1; i >= 0; i-- {
		l := s.list[i]
		if geom.HitRotatedRect(Bounds(l, ppmm, calibrated), l.Rotation, p) {
			return l, true
		}
	}
	return Layer{}, false
}

// Reset removes every layer and releases all payloads (project switch).
func (s *Store) Reset() {
	for i := range s.list {
		s.releaseAt(i)
	}
	s.list = nil
	s.activeID = ""
}

// Snapshot serializes the layer list without decoded buffers.
func (s *Store) Snapshot() []domain.Layer {
	out := make([]domain.Layer, 0, len(s.list))
	for _, l := range s.list {
		out = append(out, domain.Layer{
			ID:       l.ID,
			Name:     l.Name,
			Source:   l.Graphic.Source,
			Position: domain.Point{X: l.Position.X, Y: l.Position.Y},
			Rotation: l.Rotation,
			Scale:    l.Scale,
			Opacity:  l.Opacity,
			Locked:   l.Locked,
			WidthMM:  l.Graphic.WidthMM,
			HeightMM: l.Graphic.HeightMM,
		})
	}
	return out
}

// Restore replaces the store contents from serialized layers, re-deriving
// each graphic payload from its stored source text. Existing payloads are
// released first.
func (s *Store) Restore(list []domain.Layer) {
	s.Reset()
	for _, d := range list {
		l := Layer{
			ID:       d.ID,
			Name:     d.Name,
			Graphic:  asset.Parse(d.Source, d.Name),
			Position: geom.Pt{X: d.Position.X, Y: d.Position.Y},
			Rotation: geom.WrapDeg(d.Rotation),
			Scale:    d.Scale,
			Opacity:  geom.Clamp(d.Opacity, 0, 1),
			Locked:   d.Locked,
		}
		if l.ID == "" {
			l.ID = uuid.NewString()
		}
		if l.Scale <= 0 {
			l.Scale = defaultScale
		}
		s.list = append(s.list, l)
	}
}

func (s *Store) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i := range s.list {
		if s.list[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) releaseAt(i int) {
	if g := s.list[i].Graphic; g != nil {
		g.Release()
	}
}
