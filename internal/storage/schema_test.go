/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"os"
	"path/filepath"
	"testing"

	gojsonschema "github.com/xeipuuv/gojsonschema"
	"signstage/internal/domain"
)

func validateAgainstSchema(t *testing.T, manifest []byte) *gojsonschema.Result {
	t.Helper()
	schemaPath := filepath.Join("..", "..", "docs", "signstage.schema.json")
	schemaBytes, err := os.ReadFile(schemaPath)
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaBytes),
		gojsonschema.NewBytesLoader(manifest),
	)
	if err != nil {
		t.Fatalf("schema validate error: %v", err)
	}
	return result
}

func TestManifestConformsToSchema(t *testing.T) {
	root := t.TempDir()
	ph, err := InitProject(root, sampleProject())
	if err != nil {
		t.Fatalf("InitProject: %v", err)
	}
	data, err := os.ReadFile(ph.ManifestPath)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	result := validateAgainstSchema(t, data)
	if !result.Valid() {
		for _, e := range result.Errors() {
			t.Logf("schema error: %s", e)
		}
		t.Fatalf("manifest does not conform to schema")
	}
}

func TestEmptyProjectConformsToSchema(t *testing.T) {
	root := t.TempDir()
	ph, err := InitProject(root, domain.Project{Name: "Blank"})
	if err != nil {
		t.Fatalf("InitProject: %v", err)
	}
	data, err := os.ReadFile(ph.ManifestPath)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	result := validateAgainstSchema(t, data)
	if !result.Valid() {
		for _, e := range result.Errors() {
			t.Logf("schema error: %s", e)
		}
		t.Fatalf("empty project does not conform to schema")
	}
}

func TestSchemaRejectsBadLayer(t *testing.T) {
	bad := []byte(`{
	  "name": "x",
	  "calibration": {"points": []},
	  "layers": [{"id": "", "name": "n"}]
	}`)
	result := validateAgainstSchema(t, bad)
	if result.Valid() {
		t.Fatalf("schema accepted an invalid layer")
	}
}
