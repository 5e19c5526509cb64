/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geom

import (
	"math"
	"testing"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestRectContainsAndCenter(t *testing.T) {
	r := R(10, 20, 100, 50)
	if !r.Contains(Pt{10, 20}) || !r.Contains(Pt{110, 70}) {
		t.Fatalf("expected edge points to be contained")
	}
	if c := r.Center(); c.X != 60 || c.Y != 45 {
		t.Fatalf("unexpected center: %+v", c)
	}
}

func TestAffineBasic(t *testing.T) {
	m := Translate(10, 5).Mul(Scale(2, 3))
	p := m.Apply(Pt{1, 1})
	if p.X != 12 || p.Y != 8 { // (1*2+10, 1*3+5)
		t.Fatalf("unexpected transform result: %+v", p)
	}
}

func TestInvertRoundTrip(t *testing.T) {
	m := Translate(3, -7).Mul(Rotate(DegToRad(30))).Mul(Scale(2, 2))
	p := Pt{11, 4}
	q := m.Invert().Apply(m.Apply(p))
	if !approx(q.X, p.X) || !approx(q.Y, p.Y) {
		t.Fatalf("inverse round trip failed: %+v", q)
	}
}

func TestDistAndAngle(t *testing.T) {
	if d := Dist(Pt{0, 0}, Pt{3, 4}); d != 5 {
		t.Fatalf("distance = %v, want 5", d)
	}
	if a := AngleDeg(Pt{0, 0}, Pt{0, 1}); !approx(a, 90) {
		t.Fatalf("angle = %v, want 90", a)
	}
}

func TestWrapDeg(t *testing.T) {
	cases := map[float64]float64{0: 0, 360: 0, 390: 30, -30: 330, 720: 0}
	for in, want := range cases {
		if got := WrapDeg(in); !approx(got, want) {
			t.Fatalf("WrapDeg(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestHitRotatedRect(t *testing.T) {
	r := R(0, 0, 100, 20)
	// Rotated 90 degrees about center (50,10), the rect occupies x in [40,60], y in [-40,60].
	if !HitRotatedRect(r, 90, Pt{50, 55}) {
		t.Fatalf("expected hit inside rotated extent")
	}
	if HitRotatedRect(r, 90, Pt{95, 10}) {
		t.Fatalf("expected miss outside rotated extent")
	}
	if !HitRotatedRect(r, 0, Pt{95, 10}) {
		t.Fatalf("unrotated rect should contain the point")
	}
}

func TestTransformBoundsRotation(t *testing.T) {
	r := R(0, 0, 100, 20)
	b := TransformBounds(r, AboutCenter(r, 90))
	if !approx(b.W, 20) || !approx(b.H, 100) {
		t.Fatalf("unexpected rotated bounds: %+v", b)
	}
}
