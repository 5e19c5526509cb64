/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package undo

import (
	"testing"
	"time"

	"signstage/internal/calibrate"
	"signstage/internal/layers"
)

const squareSVG = `<svg xmlns="http://www.w3.org/2000/svg" width="100mm" height="100mm" viewBox="0 0 100 100">
<rect width="100" height="100" fill="#222"/>
</svg>`

func newHistoryRig(t *testing.T) (*calibrate.Engine, *layers.Store, *History) {
	t.Helper()
	cal := calibrate.New()
	store := layers.NewStore(layers.Multi)
	h := NewHistory(Config{MinInterval: time.Nanosecond}, cal, store)
	return cal, store, h
}

func TestHistoryUndoRestoresPreviousState(t *testing.T) {
	_, store, h := newHistoryRig(t)
	l := store.Add(squareSVG, "sign")
	if err := h.Capture(); err != nil {
		t.Fatalf("capture base: %v", err)
	}

	rot := 90.0
	store.Mutate(l.ID, layers.Patch{Rotation: &rot})
	time.Sleep(time.Millisecond)
	if err := h.Capture(); err != nil {
		t.Fatalf("capture change: %v", err)
	}

	ok, err := h.Undo()
	if err != nil || !ok {
		t.Fatalf("undo: %v %v", ok, err)
	}
	got, found := store.Get(l.ID)
	if !found || got.Rotation != 0 {
		t.Fatalf("rotation after undo = %v, want 0", got.Rotation)
	}

	ok, err = h.Redo()
	if err != nil || !ok {
		t.Fatalf("redo: %v %v", ok, err)
	}
	got, _ = store.Get(l.ID)
	if got.Rotation != 90 {
		t.Fatalf("rotation after redo = %v, want 90", got.Rotation)
	}
}

func TestHistoryUndoCoversCalibration(t *testing.T) {
	cal, _, h := newHistoryRig(t)
	if err := h.Capture(); err != nil {
		t.Fatalf("capture: %v", err)
	}
	time.Sleep(time.Millisecond)
	cal.AddPoint(0, 0)
	cal.AddPoint(100, 0)
	cal.SetReferenceDistance(50)
	if err := h.Capture(); err != nil {
		t.Fatalf("capture: %v", err)
	}

	if ok, err := h.Undo(); err != nil || !ok {
		t.Fatalf("undo: %v %v", ok, err)
	}
	if _, ok := cal.Ratio(); ok {
		t.Fatalf("calibration survived undo")
	}
	if ok, err := h.Redo(); err != nil || !ok {
		t.Fatalf("redo: %v %v", ok, err)
	}
	r, ok := cal.Ratio()
	if !ok || r != 2.0 {
		t.Fatalf("ratio after redo = %v %v", r, ok)
	}
}

func TestHistoryUndoWithoutOlderStateIsNoop(t *testing.T) {
	_, _, h := newHistoryRig(t)
	if ok, err := h.Undo(); err != nil || ok {
		t.Fatalf("undo on empty history = %v %v", ok, err)
	}
	if err := h.Capture(); err != nil {
		t.Fatalf("capture: %v", err)
	}
	if ok, err := h.Undo(); err != nil || ok {
		t.Fatalf("undo with only the base state = %v %v", ok, err)
	}
}
