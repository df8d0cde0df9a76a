/* SPDX-License-Identifier: MPL-2.0
 * Copyright 2026 Vocaline SDK Contributors
 *
 * See CONTRIBUTORS.md for full contributor list.
 */

package audio

import (
	"sync"
	"testing"
)

// recordingOutput captures every call made against the audio output.
type recordingOutput struct {
	mu      sync.Mutex
	calls   []string
	speaker bool
	mode    Mode
	err     error
}

func (o *recordingOutput) SetMode(mode Mode) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.mode = mode
	o.calls = append(o.calls, "mode:"+string(mode))
}

func (o *recordingOutput) SetSpeakerphone(on bool) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return o.err
	}
	o.speaker = on
	if on {
		o.calls = append(o.calls, "speaker:on")
	} else {
		o.calls = append(o.calls, "speaker:off")
	}
	return nil
}

func (o *recordingOutput) RequestFocus() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, "focus:request")
}

func (o *recordingOutput) AbandonFocus() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, "focus:abandon")
}

func (o *recordingOutput) callLog() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]string, len(o.calls))
	copy(out, o.calls)
	return out
}

func assertCalls(t *testing.T, out *recordingOutput, want []string) {
	t.Helper()
	got := out.callLog()
	if len(got) != len(want) {
		t.Fatalf("Expected calls %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected calls %v, got %v", want, got)
		}
	}
}

func TestCallStarted(t *testing.T) {
	t.Run("Engages route with stored preference", func(t *testing.T) {
		out := &recordingOutput{}
		r := NewRouter(out)

		r.CallStarted()

		if !r.Engaged() {
			t.Errorf("Expected router to be engaged")
		}
		assertCalls(t, out, []string{"focus:request", "mode:in_communication", "speaker:off"})
	})

	t.Run("Applies speaker preference set while idle", func(t *testing.T) {
		out := &recordingOutput{}
		r := NewRouter(out)

		// Preference only; no route change while idle
		if err := r.SetSpeaker(true); err != nil {
			t.Fatalf("SetSpeaker failed: %v", err)
		}
		assertCalls(t, out, nil)

		r.CallStarted()
		assertCalls(t, out, []string{"focus:request", "mode:in_communication", "speaker:on"})
	})

	t.Run("Second call start is a no-op", func(t *testing.T) {
		out := &recordingOutput{}
		r := NewRouter(out)

		r.CallStarted()
		before := len(out.callLog())
		r.CallStarted()

		if got := len(out.callLog()); got != before {
			t.Errorf("Expected no additional calls, got %d extra", got-before)
		}
	})
}

func TestSetSpeaker(t *testing.T) {
	t.Run("During call switches route immediately", func(t *testing.T) {
		out := &recordingOutput{}
		r := NewRouter(out)
		r.CallStarted()

		if err := r.SetSpeaker(true); err != nil {
			t.Fatalf("SetSpeaker failed: %v", err)
		}

		log := out.callLog()
		tail := log[len(log)-2:]
		if tail[0] != "mode:in_call" || tail[1] != "speaker:on" {
			t.Errorf("Expected in-call mode then speaker on, got %v", tail)
		}
		if !r.SpeakerOn() {
			t.Errorf("Expected SpeakerOn to be true")
		}
	})

	t.Run("While idle only stores preference", func(t *testing.T) {
		out := &recordingOutput{}
		r := NewRouter(out)

		if err := r.SetSpeaker(true); err != nil {
			t.Fatalf("SetSpeaker failed: %v", err)
		}

		assertCalls(t, out, nil)
		if !r.SpeakerOn() {
			t.Errorf("Expected preference stored")
		}
	})

	t.Run("Last toggle wins", func(t *testing.T) {
		out := &recordingOutput{}
		r := NewRouter(out)

		_ = r.SetSpeaker(true)
		_ = r.SetSpeaker(false)

		r.CallStarted()
		assertCalls(t, out, []string{"focus:request", "mode:in_communication", "speaker:off"})
	})
}

func TestReset(t *testing.T) {
	t.Run("Restores normal route", func(t *testing.T) {
		out := &recordingOutput{}
		r := NewRouter(out)
		r.CallStarted()
		_ = r.SetSpeaker(true)

		r.Reset()

		if r.Engaged() {
			t.Errorf("Expected router to be disengaged after reset")
		}
		log := out.callLog()
		tail := log[len(log)-3:]
		if tail[0] != "speaker:off" || tail[1] != "mode:normal" || tail[2] != "focus:abandon" {
			t.Errorf("Expected speaker off, normal mode, focus abandon; got %v", tail)
		}
	})

	t.Run("Preference survives reset", func(t *testing.T) {
		out := &recordingOutput{}
		r := NewRouter(out)
		r.CallStarted()
		_ = r.SetSpeaker(true)
		r.Reset()

		if !r.SpeakerOn() {
			t.Errorf("Expected speaker preference to survive reset")
		}

		out.calls = nil
		r.CallStarted()
		assertCalls(t, out, []string{"focus:request", "mode:in_communication", "speaker:on"})
	})

	t.Run("Reset while idle is a no-op", func(t *testing.T) {
		out := &recordingOutput{}
		r := NewRouter(out)

		r.Reset()
		assertCalls(t, out, nil)
	})
}
