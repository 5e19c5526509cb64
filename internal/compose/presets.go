/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package compose

import (
	"fmt"
	"image/color"
	"strings"
)

// Preset is a named export resolution profile.
type Preset string

const (
	// PresetScreen exports at the logical stage size.
	PresetScreen Preset = "screen"
	// PresetHiDPI doubles the output resolution.
	PresetHiDPI Preset = "hidpi"
	// PresetPrint quadruples the output resolution.
	PresetPrint Preset = "print"
)

// Factor returns the output scale multiplier of the preset.
func (p Preset) Factor() float64 {
	switch p {
	case PresetHiDPI:
		return 2
	case PresetPrint:
		return 4
	default:
		return 1
	}
}

// ParsePreset normalizes a preset name; empty selects screen.
func ParsePreset(s string) (Preset, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(PresetScreen):
		return PresetScreen, nil
	case string(PresetHiDPI):
		return PresetHiDPI, nil
	case string(PresetPrint):
		return PresetPrint, nil
	default:
		return "", fmt.Errorf("unknown export preset: %s", s)
	}
}

// ParseHexColor reads an opaque #rrggbb (or rrggbb) background color.
func ParseHexColor(s string) (color.RGBA, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid hex color %q", s)
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(s, "%02x%02x%02x", &r, &g, &b); err != nil {
		return color.RGBA{}, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}
