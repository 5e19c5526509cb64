/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"errors"
	"testing"
)

// exerciseBlobStore runs the shared contract against any implementation.
func exerciseBlobStore(t *testing.T, s BlobStore) {
	t.Helper()

	if _, err := s.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get missing = %v, want ErrNotFound", err)
	}

	if err := s.Put("autosave/project.json", []byte("v1")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Put("autosave/project.json", []byte("v2")); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	b, err := s.Get("autosave/project.json")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(b) != "v2" {
		t.Fatalf("got %q, want latest write", b)
	}

	if err := s.Put("exports/last.png", []byte{1, 2, 3}); err != nil {
		t.Fatalf("Put second: %v", err)
	}
	keys, err := s.List("autosave/")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(keys) != 1 || keys[0] != "autosave/project.json" {
		t.Fatalf("List = %v", keys)
	}

	if err := s.Delete("autosave/project.json"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete("autosave/project.json"); err != nil {
		t.Fatalf("Delete twice should be a no-op: %v", err)
	}
	if _, err := s.Get("autosave/project.json"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get after delete = %v, want ErrNotFound", err)
	}
}

func TestFileStoreContract(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	defer s.Close()
	exerciseBlobStore(t, s)
}

func TestFileStoreRejectsEscapingKeys(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	defer s.Close()
	for _, key := range []string{"../outside", "/abs/path", "."} {
		if err := s.Put(key, []byte("x")); err == nil {
			t.Fatalf("key %q accepted", key)
		}
	}
}

func TestSQLiteStoreContract(t *testing.T) {
	s, err := OpenSQLiteStore(t.TempDir())
	if err != nil {
		t.Fatalf("OpenSQLiteStore: %v", err)
	}
	defer s.Close()
	exerciseBlobStore(t, s)
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	root := t.TempDir()
	s, err := OpenSQLiteStore(root)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Put("autosave/project.json", []byte("kept")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := OpenSQLiteStore(root)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	b, err := s2.Get("autosave/project.json")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(b) != "kept" {
		t.Fatalf("got %q after reopen", b)
	}
}
