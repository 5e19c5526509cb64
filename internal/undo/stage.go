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
	"encoding/json"
	"fmt"
	"time"

	"signstage/internal/calibrate"
	"signstage/internal/domain"
	"signstage/internal/layers"
)

// stageState is the serialized form of everything undoable on the stage.
type stageState struct {
	Calibration domain.Calibration `json:"calibration"`
	Layers      []domain.Layer     `json:"layers"`
}

// History binds the snapshot manager to the live stage objects. Capture is
// called after every discrete user action; Undo/Redo re-apply states.
type History struct {
	mgr   *Manager
	cal   *calibrate.Engine
	store *layers.Store
}

func NewHistory(cfg Config, cal *calibrate.Engine, store *layers.Store) *History {
	return &History{mgr: NewManager(cfg), cal: cal, store: store}
}

// Capture records the current stage state.
func (h *History) Capture() error {
	blob, err := json.Marshal(stageState{
		Calibration: h.cal.Snapshot(),
		Layers:      h.store.Snapshot(),
	})
	if err != nil {
		return fmt.Errorf("capture stage state: %w", err)
	}
	h.mgr.Push(Snapshot{Blob: blob, TS: time.Now()})
	return nil
}

// Undo steps back to the state captured before the newest one. The newest
// capture is the live state, so it moves to the redo stack and the entry
// below it is applied. False when there is no older state.
func (h *History) Undo() (bool, error) {
	if _, depth := h.mgr.Stats(); depth < 2 {
		return false, nil
	}
	if _, ok := h.mgr.Undo(); !ok {
		return false, nil
	}
	s, ok := h.mgr.Peek()
	if !ok {
		return false, nil
	}
	if err := h.apply(s); err != nil {
		return false, err
	}
	return true, nil
}

// Redo re-applies an undone state; false when there is nothing to redo.
func (h *History) Redo() (bool, error) {
	s, ok := h.mgr.Redo()
	if !ok {
		return false, nil
	}
	if err := h.apply(s); err != nil {
		return false, err
	}
	return true, nil
}

// Clear drops the history (project switch).
func (h *History) Clear() { h.mgr.Clear() }

func (h *History) apply(s Snapshot) error {
	var st stageState
	if err := json.Unmarshal(s.Blob, &st); err != nil {
		return fmt.Errorf("decode stage state: %w", err)
	}
	h.cal.Restore(st.Calibration)
	h.store.Restore(st.Layers)
	return nil
}
