/* SPDX-License-Identifier: MPL-2.0
 * Copyright 2026 Vocaline SDK Contributors
 *
 * See CONTRIBUTORS.md for full contributor list.
 */

// Package audio holds the session's audio routing policy and host audio
// device enumeration. The Router decides modes and speakerphone state; the
// Output implementation applies them to the platform.
package audio

import "sync"

// Mode is a platform audio mode.
type Mode string

const (
	ModeNormal          Mode = "normal"
	ModeInCall          Mode = "in_call"
	ModeInCommunication Mode = "in_communication"
)

// Output applies routing decisions to the platform audio stack.
type Output interface {
	SetMode(mode Mode)
	SetSpeakerphone(on bool) error

	// RequestFocus asks the platform for exclusive voice-call audio focus.
	RequestFocus()

	// AbandonFocus releases previously requested focus.
	AbandonFocus()
}

// Router owns the audio routing policy:
//
//   - Call start: request focus, ModeInCommunication, apply the remembered
//     speaker preference.
//   - Speaker toggle during a call: ModeInCall, then speakerphone.
//   - Speaker toggle while idle: the preference is stored and applied on the
//     next call start. Last toggle wins.
//   - Reset (all connections gone): speakerphone off, ModeNormal, focus
//     abandoned.
type Router struct {
	mu        sync.Mutex
	out       Output
	speakerOn bool
	engaged   bool
}

// NewRouter creates a Router driving the given output.
func NewRouter(out Output) *Router {
	return &Router{out: out}
}

// CallStarted engages the route for a new call.
func (r *Router) CallStarted() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.engaged {
		return
	}
	r.engaged = true

	r.out.RequestFocus()
	r.out.SetMode(ModeInCommunication)
	_ = r.out.SetSpeakerphone(r.speakerOn)
}

// SetSpeaker records the speakerphone preference and, if a call is engaged,
// applies it immediately.
func (r *Router) SetSpeaker(on bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.speakerOn = on
	if !r.engaged {
		return nil
	}

	r.out.SetMode(ModeInCall)
	return r.out.SetSpeakerphone(on)
}

// Reset returns the route to the idle state. The speaker preference is kept.
func (r *Router) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.engaged {
		return
	}
	r.engaged = false

	_ = r.out.SetSpeakerphone(false)
	r.out.SetMode(ModeNormal)
	r.out.AbandonFocus()
}

// SpeakerOn returns the current speakerphone preference.
func (r *Router) SpeakerOn() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.speakerOn
}

// Engaged returns whether a call route is currently active.
func (r *Router) Engaged() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.engaged
}
