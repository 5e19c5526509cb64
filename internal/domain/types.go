/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany..
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the serialized data model for SignStage projects.
// Only transform state and re-resolvable source text are persisted; decoded
// graphic buffers never leave the process.

// Project is the persisted unit: a background reference, the calibration
// state, and the ordered overlay layer list (array order is z-order).
type Project struct {
	Name        string      `json:"name"`
	Background  string      `json:"background,omitempty"` // path or opaque ref resolved by the host
	Calibration Calibration `json:"calibration"`
	Layers      []Layer     `json:"layers"`
}

// Calibration stores the two reference points and the real-world distance
// between them. PixelsPerMM is derived; it is persisted for readability but
// recomputed on load.
type Calibration struct {
	Points              []Point  `json:"points"` // at most 2, oldest first
	ReferenceDistanceMM float64  `json:"referenceDistanceMM,omitempty"`
	PixelsPerMM         *float64 `json:"pixelsPerMM,omitempty"`
}

// Point is a position in stage pixel coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Layer is one manipulable overlay graphic. Source holds the raw vector
// text; the decoded payload is re-derived from it on load.
type Layer struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Source   string  `json:"source"`
	Position Point   `json:"position"` // top-left of the unrotated bounding box
	Rotation float64 `json:"rotationDegrees"`
	Scale    float64 `json:"scale"`
	Opacity  float64 `json:"opacityFraction"`
	Locked   bool    `json:"locked"`
	WidthMM  float64 `json:"originalWidthMM"`
	HeightMM float64 `json:"originalHeightMM"`
}
