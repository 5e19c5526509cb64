/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package asset

import "sort"

// Built-in sign shapes so a layer can be added without any file import.
// Sizes follow common traffic-sign blanks (millimetres).

var library = map[string]string{
	"round-600": `<svg xmlns="http://www.w3.org/2000/svg" width="600mm" height="600mm" viewBox="0 0 600 600">
<circle cx="300" cy="300" r="290" fill="#ffffff" stroke="#c1121f" stroke-width="60"/>
</svg>`,
	"square-500": `<svg xmlns="http://www.w3.org/2000/svg" width="500mm" height="500mm" viewBox="0 0 500 500">
<rect x="10" y="10" width="480" height="480" rx="40" fill="#1d4ed8"/>
</svg>`,
	"triangle-700": `<svg xmlns="http://www.w3.org/2000/svg" width="700mm" height="620mm" viewBox="0 0 700 620">
<path d="M350 20 L680 600 L20 600 Z" fill="#ffffff" stroke="#c1121f" stroke-width="50" stroke-linejoin="round"/>
</svg>`,
	"arrow-right": `<svg xmlns="http://www.w3.org/2000/svg" width="600mm" height="200mm" viewBox="0 0 600 200">
<rect width="600" height="200" fill="#1d4ed8"/>
<path d="M60 100 H440 M360 40 L460 100 L360 160" stroke="#ffffff" stroke-width="40" fill="none"/>
</svg>`,
	"plate-300x150": `<svg xmlns="http://www.w3.org/2000/svg" width="300mm" height="150mm" viewBox="0 0 300 150">
<rect x="5" y="5" width="290" height="140" rx="12" fill="#ffffff" stroke="#111111" stroke-width="8"/>
</svg>`,
}

// LibraryNames lists the built-in shapes in stable order.
func LibraryNames() []string {
	names := make([]string, 0, len(library))
	for n := range library {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// FromLibrary returns a freshly parsed Graphic for a built-in shape.
// Unknown names report ok=false.
func FromLibrary(name string) (*Graphic, bool) {
	src, ok := library[name]
	if !ok {
		return nil, false
	}
	return Parse(src, name), true
}
