/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package layers

import (
	"math"
	"testing"

	"signstage/internal/geom"
)

const signSVG = `<svg xmlns="http://www.w3.org/2000/svg" width="400mm" height="200mm" viewBox="0 0 400 200">
<rect width="400" height="200" fill="#00f"/>
</svg>`

func TestAddAssignsDefaultsAndSelects(t *testing.T) {
	s := NewStore(Multi)
	l := s.Add(signSVG, "plate")
	if l.ID == "" {
		t.Fatalf("missing id")
	}
	if l.Scale != 1.0 || l.Opacity != 1.0 || l.Locked {
		t.Fatalf("unexpected defaults: %+v", l)
	}
	if s.ActiveID() != l.ID {
		t.Fatalf("new layer should be active")
	}
	if l.Graphic.WidthMM != 400 || l.Graphic.HeightMM != 200 {
		t.Fatalf("intrinsic size not decoded: %+v", l.Graphic)
	}
}

func TestSimpleModeReplacesAndReleases(t *testing.T) {
	s := NewStore(Simple)
	first := s.Add(signSVG, "a")
	second := s.Add(signSVG, "b")
	if s.Len() != 1 {
		t.Fatalf("simple mode must hold one layer, got %d", s.Len())
	}
	if !first.Graphic.Released() {
		t.Fatalf("replaced layer payload must be released")
	}
	if second.Graphic.Released() {
		t.Fatalf("current layer payload must stay live")
	}
}

func TestRemoveIsIdempotentAndReleasesOnce(t *testing.T) {
	s := NewStore(Multi)
	l := s.Add(signSVG, "a")
	s.Add(signSVG, "b")
	s.Remove(l.ID)
	if !l.Graphic.Released() {
		t.Fatalf("removed layer payload must be released")
	}
	after := s.All()
	s.Remove(l.ID) // second removal is a no-op
	if s.Len() != len(after) {
		t.Fatalf("repeated removal changed the store")
	}
	s.Remove("ghost-id") // unknown id is a no-op too
	if s.Len() != 1 {
		t.Fatalf("unexpected store size %d", s.Len())
	}
}

func TestRemoveActiveClearsSelection(t *testing.T) {
	s := NewStore(Multi)
	l := s.Add(signSVG, "a")
	s.Remove(l.ID)
	if s.ActiveID() != "" {
		t.Fatalf("selection should be cleared with the active layer")
	}
}

func TestSelectUnknownIsNoop(t *testing.T) {
	s := NewStore(Multi)
	l := s.Add(signSVG, "a")
	s.Select("nope")
	if s.ActiveID() != l.ID {
		t.Fatalf("selection moved on unknown id")
	}
}

func TestMutateLockedBlocksGeometryOnly(t *testing.T) {
	s := NewStore(Multi)
	l := s.Add(signSVG, "a")
	locked := true
	s.Mutate(l.ID, Patch{Locked: &locked})

	pos := geom.Pt{X: 500, Y: 500}
	rot := 45.0
	sc := 2.0
	op := 0.5
	s.Mutate(l.ID, Patch{Position: &pos, Rotation: &rot, Scale: &sc, Opacity: &op})

	got, _ := s.Get(l.ID)
	if got.Position != l.Position || got.Rotation != 0 || got.Scale != 1 {
		t.Fatalf("locked layer geometry changed: %+v", got)
	}
	if got.Opacity != 0.5 {
		t.Fatalf("opacity is housekeeping and must pass the lock: %v", got.Opacity)
	}
}

func TestMutateRejectsNonPositiveScale(t *testing.T) {
	s := NewStore(Multi)
	l := s.Add(signSVG, "a")
	bad := -1.0
	s.Mutate(l.ID, Patch{Scale: &bad})
	got, _ := s.Get(l.ID)
	if got.Scale != 1.0 {
		t.Fatalf("scale invariant broken: %v", got.Scale)
	}
}

func TestRenderSizePreservesAspect(t *testing.T) {
	s := NewStore(Multi)
	l := s.Add(signSVG, "a")
	for _, scale := range []float64{0.1, 0.5, 1, 3.7, 10} {
		sc := scale
		s.Mutate(l.ID, Patch{Scale: &sc})
		got, _ := s.Get(l.ID)
		sz := RenderSize(got, 2.0, true)
		if math.Abs(sz.W/sz.H-400.0/200.0) > 1e-9 {
			t.Fatalf("aspect broken at scale %v: %+v", scale, sz)
		}
	}
}

func TestRenderSizeScenario(t *testing.T) {
	// originalHeightMM=200, ppmm=2.0, scale=0.5 -> heightPx=200
	s := NewStore(Multi)
	l := s.Add(signSVG, "a")
	half := 0.5
	s.Mutate(l.ID, Patch{Scale: &half})
	got, _ := s.Get(l.ID)
	sz := RenderSize(got, 2.0, true)
	if sz.H != 200 {
		t.Fatalf("heightPx = %v, want 200", sz.H)
	}
}

func TestRenderSizeUncalibratedFallback(t *testing.T) {
	s := NewStore(Multi)
	l := s.Add(signSVG, "a")
	got, _ := s.Get(l.ID)
	sz := RenderSize(got, 0, false)
	if sz.H != 200 || sz.W != 400 {
		t.Fatalf("uncalibrated render size should be 1:1 mm->px, got %+v", sz)
	}
}

func TestHitTestTopmostWins(t *testing.T) {
	s := NewStore(Multi)
	a := s.Add(signSVG, "bottom")
	b := s.Add(signSVG, "top") // same default position, later in z-order
	hit, ok := s.HitTest(geom.Pt{X: 70, Y: 70}, 0, false)
	if !ok {
		t.Fatalf("expected a hit")
	}
	if hit.ID != b.ID {
		t.Fatalf("topmost layer should win, got %q want %q", hit.ID, b.ID)
	}
	_ = a
}

func TestResetReleasesEverything(t *testing.T) {
	s := NewStore(Multi)
	a := s.Add(signSVG, "a")
	b := s.Add(signSVG, "b")
	s.Reset()
	if s.Len() != 0 || s.ActiveID() != "" {
		t.Fatalf("store not empty after reset")
	}
	if !a.Graphic.Released() || !b.Graphic.Released() {
		t.Fatalf("reset must release all payloads")
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	s := NewStore(Multi)
	l := s.Add(signSVG, "a")
	rot := 30.0
	sc := 1.5
	s.Mutate(l.ID, Patch{Rotation: &rot, Scale: &sc})
	snap := s.Snapshot()

	s2 := NewStore(Multi)
	s2.Restore(snap)
	if s2.Len() != 1 {
		t.Fatalf("restore count mismatch")
	}
	got := s2.All()[0]
	if got.Rotation != 30 || got.Scale != 1.5 {
		t.Fatalf("transform not preserved: %+v", got)
	}
	if got.Graphic.WidthMM != 400 || got.Graphic.HeightMM != 200 {
		t.Fatalf("payload not re-derived to equivalent intrinsic size: %+v", got.Graphic)
	}
}
