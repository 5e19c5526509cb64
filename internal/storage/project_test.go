/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"signstage/internal/domain"
)

func sampleProject() domain.Project {
	ppmm := 999.0 // deliberately wrong; must be recomputed on open
	return domain.Project{
		Name: "Shopfront",
		Calibration: domain.Calibration{
			Points:              []domain.Point{{X: 0, Y: 0}, {X: 100, Y: 0}},
			ReferenceDistanceMM: 50,
			PixelsPerMM:         &ppmm,
		},
		Layers: []domain.Layer{
			{
				ID:       "layer-1",
				Name:     "logo",
				Source:   `<svg width="100mm" height="100mm"/>`,
				Position: domain.Point{X: 60, Y: 60},
				Rotation: 30,
				Scale:    1.5,
				Opacity:  0.8,
				WidthMM:  100,
				HeightMM: 100,
			},
		},
	}
}

func TestInitSaveOpenRoundTrip(t *testing.T) {
	root := filepath.Join(t.TempDir(), "proj")
	ph, err := InitProject(root, sampleProject())
	if err != nil {
		t.Fatalf("InitProject: %v", err)
	}
	for _, d := range []string{"assets", "exports", BackupsDirName} {
		if _, err := os.Stat(filepath.Join(root, d)); err != nil {
			t.Fatalf("missing subdir %s: %v", d, err)
		}
	}

	got, err := Open(ph.Root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got.Project.Name != "Shopfront" {
		t.Fatalf("name = %q", got.Project.Name)
	}
	if len(got.Project.Layers) != 1 || got.Project.Layers[0].Rotation != 30 {
		t.Fatalf("layers round trip broken: %+v", got.Project.Layers)
	}
}

func TestOpenRecomputesCalibrationRatio(t *testing.T) {
	root := filepath.Join(t.TempDir(), "proj")
	if _, err := InitProject(root, sampleProject()); err != nil {
		t.Fatalf("InitProject: %v", err)
	}
	got, err := Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	r := got.Project.Calibration.PixelsPerMM
	if r == nil || math.Abs(*r-2.0) > 1e-9 {
		t.Fatalf("pixelsPerMM = %v, want recomputed 2.0", r)
	}
}

func TestSaveKeepsTimestampedBackup(t *testing.T) {
	root := filepath.Join(t.TempDir(), "proj")
	ph, err := InitProject(root, sampleProject())
	if err != nil {
		t.Fatalf("InitProject: %v", err)
	}
	ph.Project.Name = "Renamed"
	if err := Save(ph); err != nil {
		t.Fatalf("Save: %v", err)
	}
	ents, err := os.ReadDir(filepath.Join(root, BackupsDirName))
	if err != nil {
		t.Fatalf("read backups: %v", err)
	}
	if len(ents) == 0 {
		t.Fatalf("no backup written on second save")
	}
}

func TestOpenFallsBackToBackupOnCorruptManifest(t *testing.T) {
	root := filepath.Join(t.TempDir(), "proj")
	ph, err := InitProject(root, sampleProject())
	if err != nil {
		t.Fatalf("InitProject: %v", err)
	}
	// Second save creates a backup of the good manifest.
	if err := Save(ph); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := os.WriteFile(ph.ManifestPath, []byte("{ not json"), 0o644); err != nil {
		t.Fatalf("corrupt manifest: %v", err)
	}
	got, err := Open(root)
	if err != nil {
		t.Fatalf("Open with corrupt manifest: %v", err)
	}
	if got.Project.Name != "Shopfront" {
		t.Fatalf("recovered name = %q", got.Project.Name)
	}
}

func TestOpenFailsWithoutManifestOrBackup(t *testing.T) {
	if _, err := Open(t.TempDir()); err == nil {
		t.Fatalf("expected error for empty directory")
	}
}

func TestSaveAsRelocatesHandle(t *testing.T) {
	root := filepath.Join(t.TempDir(), "a")
	ph, err := InitProject(root, sampleProject())
	if err != nil {
		t.Fatalf("InitProject: %v", err)
	}
	newRoot := filepath.Join(t.TempDir(), "b")
	if err := SaveAs(ph, newRoot); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	if ph.Root != newRoot {
		t.Fatalf("handle root = %q", ph.Root)
	}
	if _, err := Open(newRoot); err != nil {
		t.Fatalf("Open new root: %v", err)
	}
}
