/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package calibrate

import (
	"math"
	"testing"
)

func TestRatioFromTwoPointsAndDistance(t *testing.T) {
	e := New()
	e.AddPoint(0, 0)
	e.AddPoint(100, 0)
	e.SetReferenceDistance(50)
	r, ok := e.Ratio()
	if !ok {
		t.Fatalf("expected calibrated state")
	}
	if r != 2.0 {
		t.Fatalf("pixelsPerMM = %v, want 2.0", r)
	}
}

func TestRatioUndefinedUntilComplete(t *testing.T) {
	e := New()
	if _, ok := e.Ratio(); ok {
		t.Fatalf("empty engine must be uncalibrated")
	}
	e.AddPoint(0, 0)
	e.SetReferenceDistance(50)
	if _, ok := e.Ratio(); ok {
		t.Fatalf("one point must not calibrate")
	}
	e.AddPoint(100, 0)
	if _, ok := e.Ratio(); !ok {
		t.Fatalf("two points plus distance must calibrate")
	}
	e.RemoveLastPoint()
	if _, ok := e.Ratio(); ok {
		t.Fatalf("dropping below two points must reset the ratio")
	}
}

func TestThirdPointEvictsOldest(t *testing.T) {
	e := New()
	e.AddPoint(1, 1)
	e.AddPoint(2, 2)
	e.AddPoint(3, 3)
	pts := e.Points()
	if len(pts) != 2 {
		t.Fatalf("expected sliding window of 2, got %d", len(pts))
	}
	if pts[0].X != 2 || pts[1].X != 3 {
		t.Fatalf("expected [p1,p2] to survive, got %+v", pts)
	}
}

func TestNonPositiveDistanceIsUnset(t *testing.T) {
	e := New()
	e.AddPoint(0, 0)
	e.AddPoint(10, 0)
	e.SetReferenceDistance(0)
	if _, ok := e.Ratio(); ok {
		t.Fatalf("zero distance must not calibrate")
	}
	e.SetReferenceDistance(-5)
	if _, ok := e.Ratio(); ok {
		t.Fatalf("negative distance must not calibrate")
	}
	if e.ReferenceDistance() != 0 {
		t.Fatalf("unset distance should report 0")
	}
}

func TestResetClearsEverything(t *testing.T) {
	e := New()
	e.AddPoint(0, 0)
	e.AddPoint(10, 0)
	e.SetReferenceDistance(10)
	e.Reset()
	if len(e.Points()) != 0 {
		t.Fatalf("points not cleared")
	}
	if _, ok := e.Ratio(); ok {
		t.Fatalf("ratio survived reset")
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	e := New()
	e.AddPoint(0, 0)
	e.AddPoint(30, 40)
	e.SetReferenceDistance(25)
	c := e.Snapshot()
	if c.PixelsPerMM == nil || math.Abs(*c.PixelsPerMM-2.0) > 1e-12 {
		t.Fatalf("snapshot ratio wrong: %+v", c.PixelsPerMM)
	}
	e2 := New()
	e2.Restore(c)
	r2, ok := e2.Ratio()
	if !ok || math.Abs(r2-2.0) > 1e-12 {
		t.Fatalf("restored ratio = %v ok=%v, want 2.0", r2, ok)
	}
}

func TestRestoreRederivesTamperedRatio(t *testing.T) {
	e := New()
	e.AddPoint(0, 0)
	e.AddPoint(30, 40)
	e.SetReferenceDistance(25)
	c := e.Snapshot()
	bogus := 999.0
	c.PixelsPerMM = &bogus

	e2 := New()
	e2.Restore(c)
	r, ok := e2.Ratio()
	if !ok || math.Abs(r-2.0) > 1e-12 {
		t.Fatalf("restored ratio = %v ok=%v, want re-derived 2.0", r, ok)
	}
}
