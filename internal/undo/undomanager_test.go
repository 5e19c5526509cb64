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
)

func snap(data string, at time.Time) Snapshot {
	return Snapshot{Blob: []byte(data), TS: at}
}

func TestPushUndoRedoCycle(t *testing.T) {
	m := NewManager(Config{MinInterval: time.Millisecond})
	base := time.Now()
	m.Push(snap("a", base))
	m.Push(snap("b", base.Add(time.Second)))

	s, ok := m.Undo()
	if !ok || string(s.Blob) != "b" {
		t.Fatalf("undo = %q %v", s.Blob, ok)
	}
	s, ok = m.Redo()
	if !ok || string(s.Blob) != "b" {
		t.Fatalf("redo = %q %v", s.Blob, ok)
	}
	if _, ok := m.Redo(); ok {
		t.Fatalf("redo on empty stack succeeded")
	}
}

func TestPushCoalescesWithinInterval(t *testing.T) {
	m := NewManager(Config{MinInterval: time.Second})
	base := time.Now()
	m.Push(snap("a", base))
	m.Push(snap("b", base.Add(100*time.Millisecond))) // replaces "a"
	if _, depth := m.Stats(); depth != 1 {
		t.Fatalf("depth = %d, want coalesced 1", depth)
	}
	s, _ := m.Peek()
	if string(s.Blob) != "b" {
		t.Fatalf("top = %q, want latest", s.Blob)
	}
}

func TestPushClearsRedo(t *testing.T) {
	m := NewManager(Config{MinInterval: time.Millisecond})
	base := time.Now()
	m.Push(snap("a", base))
	m.Push(snap("b", base.Add(time.Second)))
	if _, ok := m.Undo(); !ok {
		t.Fatalf("undo failed")
	}
	m.Push(snap("c", base.Add(2*time.Second)))
	if _, ok := m.Redo(); ok {
		t.Fatalf("redo survived a new push")
	}
}

func TestDepthCapDropsOldest(t *testing.T) {
	m := NewManager(Config{MaxDepth: 2, MinInterval: time.Millisecond})
	base := time.Now()
	m.Push(snap("a", base))
	m.Push(snap("b", base.Add(time.Second)))
	m.Push(snap("c", base.Add(2*time.Second)))
	if _, depth := m.Stats(); depth != 2 {
		t.Fatalf("depth = %d, want capped 2", depth)
	}
	s, _ := m.Undo()
	if string(s.Blob) != "c" {
		t.Fatalf("top after cap = %q", s.Blob)
	}
	s, _ = m.Undo()
	if string(s.Blob) != "b" {
		t.Fatalf("second after cap = %q, oldest should be gone", s.Blob)
	}
}

func TestByteCapPrunes(t *testing.T) {
	m := NewManager(Config{MaxBytes: 10, MinInterval: time.Millisecond})
	base := time.Now()
	m.Push(snap("aaaaaa", base))                     // 6 bytes
	m.Push(snap("bbbbbb", base.Add(time.Second)))    // 12 total, prunes "a"
	bytes, depth := m.Stats()
	if depth != 1 || bytes != 6 {
		t.Fatalf("stats = %d bytes, depth %d", bytes, depth)
	}
}

func TestClearDropsEverything(t *testing.T) {
	m := NewManager(Config{MinInterval: time.Millisecond})
	m.Push(snap("a", time.Now()))
	m.Clear()
	if _, ok := m.Undo(); ok {
		t.Fatalf("undo after clear succeeded")
	}
	if bytes, depth := m.Stats(); bytes != 0 || depth != 0 {
		t.Fatalf("stats not reset: %d %d", bytes, depth)
	}
}
