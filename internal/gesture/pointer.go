/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package gesture

import "signstage/internal/geom"

// PointerSample is the normalized input event. Hosts translate their native
// touch/mouse/pen events into this shape at the boundary; all gesture logic
// operates only on it.
type PointerSample struct {
	ID          int // contact id, stable for the lifetime of one touch
	X, Y        float64
	TimestampMs int64
}

// Pt returns the sample position as a stage point.
func (s PointerSample) Pt() geom.Pt { return geom.Pt{X: s.X, Y: s.Y} }

// Velocity is the last applied movement delta of a drag session.
type Velocity struct {
	DX, DY float64
	DTMs   int64
}
