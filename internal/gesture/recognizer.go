/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package gesture classifies normalized pointer samples into discrete
// manipulation sessions (drag, rotate, resize, multi-touch) and applies the
// resulting transforms to the layer store. The recognizer is fully
// synchronous: it never spawns goroutines and only coalesces rapid
// pointer-move samples to one store update per display frame.
package gesture

import (
	"log/slog"

	"signstage/internal/geom"
	"signstage/internal/layers"
	applog "signstage/internal/log"
)

// State is the recognizer phase for one pointer stream.
type State int

const (
	Idle State = iota
	Dragging
	Rotating
	Resizing
	MultiTouching
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	case Rotating:
		return "rotating"
	case Resizing:
		return "resizing"
	case MultiTouching:
		return "multitouching"
	default:
		return "unknown"
	}
}

// Scale clamp for interactive resize; applied to both the multi-touch and
// handle resize paths.
const (
	ScaleMin = 0.1
	ScaleMax = 10.0
)

// RatioProvider supplies the current calibration ratio (ok=false while
// uncalibrated, which selects the 1:1 pixel fallback).
type RatioProvider interface {
	Ratio() (float64, bool)
}

// Options controls snapping and smoothing behavior.
type Options struct {
	// GridSnap enables rounding drag targets to GridCell corners.
	GridSnap bool
	GridCell float64
	// PrecisionFactor damps deltas while precision mode is held. Zero means
	// the default 0.3.
	PrecisionFactor float64
	// FrameIntervalMs is the coalescing cadence for pointer-move updates.
	// Zero means the default 16ms (~60 updates/sec).
	FrameIntervalMs int64
}

func (o Options) precision() float64 {
	if o.PrecisionFactor <= 0 || o.PrecisionFactor > 1 {
		return 0.3
	}
	return o.PrecisionFactor
}

func (o Options) frameInterval() int64 {
	if o.FrameIntervalMs <= 0 {
		return 16
	}
	return o.FrameIntervalMs
}

// session is the ephemeral per-interaction state. It exists exactly as long
// as its pointer contact(s).
type session struct {
	kind           State
	target         string
	startMs        int64
	grabOffset     geom.Pt // drag: pointer offset from layer top-left
	startPos       geom.Pt // drag: layer position at session start
	anchorCenter   geom.Pt // rotate/resize: layer center at session start
	anchorAngle    float64
	anchorDist     float64
	anchorScale    float64
	anchorRotation float64
	lastApplied    PointerSample
	hasApplied     bool
}

// Recognizer drives one pointer stream. Multiple streams (e.g. a second
// input device) get independent recognizers over the same store; sessions
// never cross-mutate because each one patches only its target layer.
type Recognizer struct {
	store *layers.Store
	ratio RatioProvider
	opts  Options
	log   *slog.Logger

	state     State
	sess      *session
	precision bool
	contacts  map[int]PointerSample
	velocity  Velocity

	pending       *PointerSample
	lastAppliedMs int64
}

// NewRecognizer wires a recognizer to the shared layer store.
func NewRecognizer(store *layers.Store, ratio RatioProvider, opts Options) *Recognizer {
	return &Recognizer{
		store:    store,
		ratio:    ratio,
		opts:     opts,
		log:      applog.WithComponent("gesture"),
		contacts: make(map[int]PointerSample),
	}
}

// State returns the current phase.
func (r *Recognizer) State() State { return r.state }

// Velocity returns the last applied drag delta (zero outside a drag).
func (r *Recognizer) Velocity() Velocity { return r.velocity }

// SetPrecision toggles precision mode; deltas are damped while active.
func (r *Recognizer) SetPrecision(on bool) { r.precision = on }

// PointerDown feeds a contact-start sample. On an unlocked layer it opens a
// drag session; a second contact while a layer is engaged upgrades to
// multi-touch. Samples over locked layers or empty stage are ignored.
func (r *Recognizer) PointerDown(s PointerSample) {
	r.contacts[s.ID] = s

	switch {
	case r.state == Idle:
		ppmm, cal := r.ppmm()
		l, ok := r.store.HitTest(s.Pt(), ppmm, cal)
		if !ok || l.Locked {
			return
		}
		r.store.Select(l.ID)
		r.sess = &session{
			kind:       Dragging,
			target:     l.ID,
			startMs:    s.TimestampMs,
			grabOffset: geom.Pt{X: s.X - l.Position.X, Y: s.Y - l.Position.Y},
			startPos:   l.Position,
		}
		r.state = Dragging
		r.log.Debug("session start", slog.String("kind", "drag"), slog.String("layer", l.ID))

	case len(r.contacts) == 2:
		// Second contact: combined scale+rotate on the engaged layer.
		target := r.targetOrActive()
		l, ok := r.store.Get(target)
		if !ok || l.Locked {
			return
		}
		a, b := r.twoContacts()
		r.sess = &session{
			kind:           MultiTouching,
			target:         l.ID,
			startMs:        s.TimestampMs,
			anchorAngle:    geom.AngleDeg(a.Pt(), b.Pt()),
			anchorDist:     geom.Dist(a.Pt(), b.Pt()),
			anchorScale:    l.Scale,
			anchorRotation: l.Rotation,
		}
		r.state = MultiTouching
		r.pending = nil
		r.log.Debug("session start", slog.String("kind", "multitouch"), slog.String("layer", l.ID))
	}
}

// BeginRotate opens a rotate session anchored on the active layer's center
// (handle-driven). Ignored when no unlocked layer is active.
func (r *Recognizer) BeginRotate(s PointerSample) {
	r.beginHandle(s, Rotating)
}

// BeginResize opens a resize session anchored on the active layer's center.
func (r *Recognizer) BeginResize(s PointerSample) {
	r.beginHandle(s, Resizing)
}

func (r *Recognizer) beginHandle(s PointerSample, kind State) {
	if r.state != Idle {
		return
	}
	l, ok := r.store.Active()
	if !ok || l.Locked {
		return
	}
	r.contacts[s.ID] = s
	ppmm, cal := r.ppmm()
	center := layers.Bounds(l, ppmm, cal).Center()
	r.sess = &session{
		kind:           kind,
		target:         l.ID,
		startMs:        s.TimestampMs,
		anchorCenter:   center,
		anchorAngle:    geom.AngleDeg(center, s.Pt()),
		anchorDist:     geom.Dist(center, s.Pt()),
		anchorScale:    l.Scale,
		anchorRotation: l.Rotation,
	}
	r.state = kind
	r.log.Debug("session start", slog.String("kind", kind.String()), slog.String("layer", l.ID))
}

// PointerMove feeds a movement sample. Updates are throttled to the frame
// cadence; samples arriving faster coalesce and only the latest one is
// applied at the next boundary.
func (r *Recognizer) PointerMove(s PointerSample) {
	if _, known := r.contacts[s.ID]; known {
		r.contacts[s.ID] = s
	}
	if r.sess == nil {
		return
	}
	if s.TimestampMs-r.lastAppliedMs >= r.opts.frameInterval() {
		r.apply(s)
		r.lastAppliedMs = s.TimestampMs
		r.pending = nil
		return
	}
	sample := s
	r.pending = &sample
}

// Flush applies a coalesced sample at a frame boundary, if one is held.
func (r *Recognizer) Flush() {
	if r.pending == nil || r.sess == nil {
		return
	}
	s := *r.pending
	r.pending = nil
	r.apply(s)
	r.lastAppliedMs = s.TimestampMs
}

// PointerUp ends a contact. The most recent coalesced sample is applied
// first so no movement is lost. When the last contact lifts, the session is
// destroyed and the recognizer returns to Idle.
func (r *Recognizer) PointerUp(s PointerSample) {
	r.Flush()
	delete(r.contacts, s.ID)
	if len(r.contacts) == 0 {
		r.endSession()
	}
}

// PointerCancel is handled exactly like PointerUp: no partial-commit state.
func (r *Recognizer) PointerCancel(s PointerSample) {
	r.PointerUp(s)
}

func (r *Recognizer) endSession() {
	if r.sess != nil {
		r.log.Debug("session end", slog.String("kind", r.sess.kind.String()), slog.String("layer", r.sess.target))
	}
	r.sess = nil
	r.state = Idle
	r.pending = nil
	r.velocity = Velocity{}
}

func (r *Recognizer) apply(s PointerSample) {
	sess := r.sess
	if sess == nil {
		return
	}
	switch sess.kind {
	case Dragging:
		r.applyDrag(sess, s)
	case Rotating:
		r.applyRotate(sess, s)
	case Resizing:
		r.applyResize(sess, s)
	case MultiTouching:
		r.applyMultiTouch(sess)
	}
}

func (r *Recognizer) applyDrag(sess *session, s PointerSample) {
	target := geom.Pt{X: s.X - sess.grabOffset.X, Y: s.Y - sess.grabOffset.Y}
	if r.precision {
		f := r.opts.precision()
		target = geom.Pt{
			X: sess.startPos.X + (target.X-sess.startPos.X)*f,
			Y: sess.startPos.Y + (target.Y-sess.startPos.Y)*f,
		}
	}
	if r.opts.GridSnap {
		target = SnapToGrid(target, r.opts.GridCell)
	}
	r.store.Mutate(sess.target, layers.Patch{Position: &target})

	if sess.hasApplied {
		r.velocity = Velocity{
			DX:   s.X - sess.lastApplied.X,
			DY:   s.Y - sess.lastApplied.Y,
			DTMs: s.TimestampMs - sess.lastApplied.TimestampMs,
		}
	}
	sess.lastApplied = s
	sess.hasApplied = true
}

func (r *Recognizer) applyRotate(sess *session, s PointerSample) {
	delta := geom.AngleDeg(sess.anchorCenter, s.Pt()) - sess.anchorAngle
	if r.precision {
		delta *= r.opts.precision()
	}
	rot := SnapAngle(sess.anchorRotation + delta)
	r.store.Mutate(sess.target, layers.Patch{Rotation: &rot})
}

func (r *Recognizer) applyResize(sess *session, s PointerSample) {
	if sess.anchorDist <= 0 {
		return
	}
	scale := sess.anchorScale * (geom.Dist(sess.anchorCenter, s.Pt()) / sess.anchorDist)
	if r.precision {
		scale = sess.anchorScale + (scale-sess.anchorScale)*r.opts.precision()
	}
	scale = SnapScale(geom.Clamp(scale, ScaleMin, ScaleMax))
	r.store.Mutate(sess.target, layers.Patch{Scale: &scale})
}

func (r *Recognizer) applyMultiTouch(sess *session) {
	if len(r.contacts) < 2 || sess.anchorDist <= 0 {
		return
	}
	a, b := r.twoContacts()
	dist := geom.Dist(a.Pt(), b.Pt())
	angle := geom.AngleDeg(a.Pt(), b.Pt())

	scaleRatio := dist / sess.anchorDist
	angleDelta := angle - sess.anchorAngle
	if r.precision {
		f := r.opts.precision()
		scaleRatio = 1 + (scaleRatio-1)*f
		angleDelta *= f
	}

	scale := SnapScale(geom.Clamp(sess.anchorScale*scaleRatio, ScaleMin, ScaleMax))
	rot := SnapAngle(sess.anchorRotation + angleDelta)
	r.store.Mutate(sess.target, layers.Patch{Scale: &scale, Rotation: &rot})
}

// twoContacts returns the two live contacts ordered by contact id for a
// stable angle orientation.
func (r *Recognizer) twoContacts() (PointerSample, PointerSample) {
	var a, b PointerSample
	first := true
	for _, c := range r.contacts {
		if first {
			a = c
			first = false
			continue
		}
		b = c
		break
	}
	if b.ID < a.ID {
		a, b = b, a
	}
	return a, b
}

func (r *Recognizer) targetOrActive() string {
	if r.sess != nil {
		return r.sess.target
	}
	return r.store.ActiveID()
}

func (r *Recognizer) ppmm() (float64, bool) {
	if r.ratio == nil {
		return 0, false
	}
	return r.ratio.Ratio()
}
