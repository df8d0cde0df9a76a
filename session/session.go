/* SPDX-License-Identifier: MPL-2.0
 * Copyright 2026 Vocaline SDK Contributors
 *
 * See CONTRIBUTORS.md for full contributor list.
 */

// Package session implements the Vocaline session controller. A Session owns
// the credential/device/connection lifecycle for one client: it fetches
// capability tokens for the submitted profile, keeps a single voice-engine
// device refreshed in place, manages the pending and active connection slots,
// drives the audio route, and delivers every outward event through one
// ordered queue.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vocaline/vocaline-go-sdk/audio"
	"github.com/vocaline/vocaline-go-sdk/capability"
	"github.com/vocaline/vocaline-go-sdk/credential"
	"github.com/vocaline/vocaline-go-sdk/notify"
	"github.com/vocaline/vocaline-go-sdk/vocalinesdk"
)

// Profile selects the capabilities a client wants. Submitting a new profile
// supersedes any in-flight credential fetch for an older one.
type Profile struct {
	// AllowOutgoing requests outgoing-call capability.
	AllowOutgoing bool

	// AllowIncoming requests incoming-call capability under ClientName.
	AllowIncoming bool

	// ClientName is the incoming-call address. Ignored unless AllowIncoming
	// is set.
	ClientName string
}

// Config holds the configuration for a Session
type Config struct {
	// EventQueueSize is the buffer of the outward event queue. Default: 64.
	EventQueueSize int

	// FetchTimeout bounds a single credential fetch. Default: 30s.
	FetchTimeout time.Duration
}

// DefaultConfig returns the default configuration for a Session
func DefaultConfig() *Config {
	return &Config{
		EventQueueSize: 64,
		FetchTimeout:   30 * time.Second,
	}
}

// queuedEvent is one entry of the outward event queue.
type queuedEvent struct {
	key  EventKey
	data interface{}
}

// Session is the owner of all session state. All mutation is serialized
// through its lock; engine callbacks re-enter through the listener methods.
// Outward events are delivered in order by a single dispatch goroutine, so a
// slow handler never blocks session methods mid-mutation.
type Session struct {
	mu sync.RWMutex

	core     *vocalinesdk.Client
	config   *Config
	fetcher  *credential.Fetcher
	provider capability.Provider
	router   *audio.Router

	sessionID string

	profile    Profile
	hasProfile bool
	// profileSeq is the profile generation counter. A credential fetch is
	// applied only when its generation is still current.
	profileSeq uint64

	device         capability.Device
	initialized    bool
	creatingDevice bool
	fatal          bool
	registered     bool

	pending capability.Connection
	active  capability.Connection
	state   ConnectionState

	notifier *notify.Client

	// Events
	Emitter *EventEmitter

	eventCh   chan queuedEvent
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a Session. provider is the voice engine; router may be nil if
// the host has no audio policy to drive. The session's event dispatcher
// starts immediately; call Close to stop it.
func New(core *vocalinesdk.Client, fetcher *credential.Fetcher, provider capability.Provider, router *audio.Router, config *Config) *Session {
	if config == nil {
		config = DefaultConfig()
	}

	s := &Session{
		core:      core,
		config:    config,
		fetcher:   fetcher,
		provider:  provider,
		router:    router,
		sessionID: uuid.New().String(),
		state:     StateIdle,
		Emitter:   NewEventEmitter(),
		eventCh:   make(chan queuedEvent, config.EventQueueSize),
		done:      make(chan struct{}),
	}

	go s.dispatchLoop()

	return s
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.sessionID
}

// State returns the current connection state.
func (s *Session) State() ConnectionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// IsRegistered returns whether the device is listening for incoming
// connections.
func (s *Session) IsRegistered() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registered
}

// HasDevice returns whether a voice-engine device has been created.
func (s *Session) HasDevice() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.device != nil
}

// Profile returns the most recently submitted profile.
func (s *Session) Profile() Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile
}

// ---- Profile & credentials ----

// ApplyProfile submits a profile and starts an asynchronous credential fetch
// for it. The most recently submitted profile always wins: when an older
// fetch completes after a newer submission, its credential is discarded.
func (s *Session) ApplyProfile(p Profile) error {
	s.mu.Lock()
	if s.fatal {
		s.mu.Unlock()
		return newFault(FaultSdkInitFailed, nil, "session is in a fatal state")
	}
	s.profile = p
	s.hasProfile = true
	s.profileSeq++
	seq := s.profileSeq
	s.mu.Unlock()

	go s.fetchCredential(seq, p)
	return nil
}

// fetchCredential performs one credential fetch for generation seq and
// applies the result if the generation is still current.
func (s *Session) fetchCredential(seq uint64, p Profile) {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.FetchTimeout)
	defer cancel()

	token, err := s.fetcher.Fetch(ctx, credential.Params{
		AllowOutgoing: p.AllowOutgoing,
		AllowIncoming: p.AllowIncoming,
		ClientName:    p.ClientName,
	})
	if err != nil {
		s.mu.Lock()
		if seq != s.profileSeq {
			// A newer profile owns the session now; this failure is moot.
			s.mu.Unlock()
			s.core.GetLogger().Printf("session %s: ignoring failed fetch for superseded profile", s.sessionID)
			return
		}
		s.post(EventFaultOccurred, newFault(FaultCredentialFetchFailed, err, "capability token fetch failed"))
		s.mu.Unlock()
		return
	}

	s.applyCredential(seq, token)
}

// applyCredential installs a fetched capability token: the first credential
// creates the device, every later one refreshes it in place.
func (s *Session) applyCredential(seq uint64, token string) {
	s.mu.Lock()
	if seq != s.profileSeq {
		s.mu.Unlock()
		s.core.GetLogger().Printf("session %s: discarding stale credential (generation %d, current %d)", s.sessionID, seq, s.profileSeq)
		return
	}
	if s.fatal {
		s.mu.Unlock()
		return
	}

	dev := s.device
	creating := dev == nil && !s.creatingDevice
	needInit := creating && !s.initialized
	if creating {
		s.creatingDevice = true
	}
	s.mu.Unlock()

	if creating {
		// Engine calls (and their synchronous callbacks) run outside the lock.
		if needInit {
			if err := s.provider.Initialize(); err != nil {
				s.mu.Lock()
				s.creatingDevice = false
				s.fatal = true
				s.post(EventFaultOccurred, newFault(FaultSdkInitFailed, err, "voice engine failed to initialize"))
				s.mu.Unlock()
				return
			}
			s.mu.Lock()
			s.initialized = true
			s.mu.Unlock()
		}

		newDev, err := s.provider.NewDevice(token, s)

		s.mu.Lock()
		s.creatingDevice = false
		if err != nil {
			s.post(EventFaultOccurred, newFault(FaultDeviceError, err, "voice engine failed to create device"))
			s.mu.Unlock()
			return
		}
		s.device = newDev
		s.mu.Unlock()

		s.core.GetLogger().Printf("session %s: device created", s.sessionID)
		return
	}

	if dev == nil {
		// A concurrent create is in flight; it will carry the newest token
		// on its next refresh.
		return
	}

	if err := dev.UpdateToken(token); err != nil {
		s.mu.Lock()
		s.post(EventFaultOccurred, newFault(FaultDeviceError, err, "capability token refresh failed"))
		s.mu.Unlock()
		return
	}

	s.core.GetLogger().Printf("session %s: capability token refreshed", s.sessionID)
}

// ---- Connection control ----

// Connect starts an outgoing connection. When isPhoneNumber is false the
// contact is normalized to a client address: "client:" + trimmed contact.
func (s *Session) Connect(contact string, isPhoneNumber bool) error {
	s.mu.Lock()
	if s.fatal {
		s.mu.Unlock()
		return newFault(FaultSdkInitFailed, nil, "session is in a fatal state")
	}
	if s.device == nil || !s.registered {
		f := newFault(FaultNoDevice, nil, "no registered device: submit a profile and wait for registration")
		s.post(EventFaultOccurred, f)
		s.mu.Unlock()
		return f
	}
	if s.active != nil {
		s.mu.Unlock()
		return fmt.Errorf("a connection is already active")
	}
	dev := s.device
	s.mu.Unlock()

	to := contact
	if !isPhoneNumber {
		to = "client:" + strings.TrimSpace(contact)
	}

	conn, err := dev.Connect(capability.ConnectParams{To: to}, s)
	if err != nil {
		f := newFault(FaultConnectionError, err, "connect to %s failed", to)
		s.mu.Lock()
		s.post(EventFaultOccurred, f)
		s.mu.Unlock()
		return f
	}

	s.mu.Lock()
	s.active = conn
	s.setState(StateConnecting)
	s.mu.Unlock()

	if s.router != nil {
		s.router.CallStarted()
	}

	return nil
}

// Answer accepts the pending incoming connection and promotes it to the
// active slot. Like Connect, it refuses while another connection is active;
// the pending ring keeps ringing until answered, ignored or superseded.
func (s *Session) Answer() error {
	s.mu.Lock()
	p := s.pending
	if p == nil {
		f := newFault(FaultNoPendingConnection, nil, "no pending connection to answer")
		s.post(EventFaultOccurred, f)
		s.mu.Unlock()
		return f
	}
	if s.active != nil {
		s.mu.Unlock()
		return fmt.Errorf("a connection is already active")
	}
	s.mu.Unlock()

	if err := p.Accept(s); err != nil {
		f := newFault(FaultConnectionError, err, "accept failed")
		s.mu.Lock()
		if s.pending == p {
			s.pending = nil
			s.recomputeIdle()
		}
		s.post(EventFaultOccurred, f)
		s.mu.Unlock()
		return f
	}

	s.mu.Lock()
	if s.pending == p {
		s.pending = nil
	}
	s.active = p
	s.setState(StateConnecting)
	s.mu.Unlock()

	if s.router != nil {
		s.router.CallStarted()
	}

	return nil
}

// IgnoreIncoming declines the pending incoming connection. With nothing
// pending it is a no-op, never an error: rejection must be safe to call from
// any cancel path.
func (s *Session) IgnoreIncoming() error {
	s.mu.Lock()
	p := s.pending
	s.pending = nil
	s.recomputeIdle()
	s.mu.Unlock()

	if p == nil {
		return nil
	}
	return p.Ignore()
}

// Disconnect terminates the active connection, if any. The slot is cleared
// immediately rather than waiting for the engine's terminal callback, so a
// second Disconnect is a no-op.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	a := s.active
	if a == nil {
		s.mu.Unlock()
		return nil
	}
	s.active = nil
	s.setState(StateDisconnected)
	if s.pending != nil {
		s.setState(StatePending)
	} else {
		s.setState(StateIdle)
	}
	s.mu.Unlock()

	if s.router != nil {
		s.router.Reset()
	}

	return a.Disconnect()
}

// SetMuted sets the microphone mute state of the active connection. With no
// active connection it is a no-op.
func (s *Session) SetMuted(on bool) error {
	s.mu.RLock()
	a := s.active
	s.mu.RUnlock()

	if a == nil {
		return nil
	}
	return a.Mute(on)
}

// DisconnectAll terminates every connection: the pending one is ignored and
// the device drops the rest.
func (s *Session) DisconnectAll() {
	s.mu.Lock()
	dev := s.device
	p := s.pending
	s.pending = nil
	s.mu.Unlock()

	if p != nil {
		_ = p.Ignore()
	}
	if dev != nil {
		dev.DisconnectAll()
	}
}

// SetSpeaker sets the speakerphone preference. During a call the route is
// switched immediately; while idle the preference applies on the next call.
func (s *Session) SetSpeaker(on bool) error {
	if s.router == nil {
		return fmt.Errorf("no audio router configured")
	}

	err := s.router.SetSpeaker(on)

	s.mu.Lock()
	s.post(EventSpeakerChanged, on)
	s.mu.Unlock()

	return err
}

// ---- Device listener (capability.DeviceListener) ----

// OnStartListening is called by the engine when the device can receive
// incoming connections.
func (s *Session) OnStartListening(d capability.Device) {
	s.mu.Lock()
	s.registered = true
	s.post(EventRegistrationChanged, true)
	s.mu.Unlock()
}

// OnStopListening is called by the engine when the device loses its
// registration.
func (s *Session) OnStopListening(d capability.Device, err error) {
	s.mu.Lock()
	s.registered = false
	s.post(EventRegistrationChanged, false)
	if err != nil {
		s.post(EventFaultOccurred, newFault(FaultDeviceError, err, "device stopped listening"))
	}
	s.mu.Unlock()
}

// OnIncoming parks a ringing connection in the pending slot. When one is
// already pending, the older connection is superseded: it is ignored and the
// newest ring wins.
func (s *Session) OnIncoming(d capability.Device, conn capability.Connection) {
	s.mu.Lock()
	old := s.pending
	s.pending = conn
	if s.active == nil {
		s.setState(StatePending)
	}
	s.post(EventIncomingRinging, conn.Parameters())
	s.mu.Unlock()

	if old != nil {
		s.core.GetLogger().Printf("session %s: superseding pending connection with newer ring", s.sessionID)
		_ = old.Ignore()
	}
}

// OnPresenceChanged is called by the engine when the availability of a
// contact changes. The session does not track presence; the update is logged
// and otherwise discarded.
func (s *Session) OnPresenceChanged(d capability.Device, p capability.Presence) {
	s.core.GetLogger().Printf("session %s: presence of %s changed, available=%t", s.sessionID, p.Contact, p.Available)
}

// ---- Connection listener (capability.ConnectionListener) ----

// OnConnecting is called by the engine while the active connection is being
// established.
func (s *Session) OnConnecting(conn capability.Connection) {
	s.mu.Lock()
	if conn == s.active {
		s.setState(StateConnecting)
	}
	s.mu.Unlock()
}

// OnConnected is called by the engine when the active connection is up.
func (s *Session) OnConnected(conn capability.Connection) {
	s.mu.Lock()
	if conn == s.active {
		s.setState(StateConnected)
	}
	s.mu.Unlock()
}

// OnDisconnected clears the slot holding conn. The comparison is by pointer
// identity: a stale callback from a connection that has already been replaced
// must not clear the current one.
func (s *Session) OnDisconnected(conn capability.Connection) {
	s.mu.Lock()
	match := false
	activeCleared := false
	if conn == s.active {
		s.active = nil
		match = true
		activeCleared = true
	}
	if conn == s.pending {
		s.pending = nil
		match = true
	}
	if !match {
		s.mu.Unlock()
		s.core.GetLogger().Printf("session %s: ignoring disconnect from replaced connection", s.sessionID)
		return
	}

	if activeCleared {
		s.setState(StateDisconnected)
		if s.pending != nil {
			s.setState(StatePending)
		} else {
			s.setState(StateIdle)
		}
	} else {
		s.recomputeIdle()
	}
	s.mu.Unlock()

	if activeCleared && s.router != nil {
		s.router.Reset()
	}
}

// OnError surfaces an engine connection failure as a fault and then treats
// the connection as disconnected, under the same identity rule.
func (s *Session) OnError(conn capability.Connection, code int, message string) {
	f := &Fault{
		Code:       FaultConnectionError,
		Message:    message,
		EngineCode: code,
	}

	s.mu.Lock()
	s.post(EventFaultOccurred, f)
	s.mu.Unlock()

	s.OnDisconnected(conn)
}

// ---- Notification channel ----

// AttachNotifier wires the push notification channel into the session and
// connects it. credential.refresh events re-apply the current profile; ring
// events are hints only; the authoritative incoming path is the engine.
func (s *Session) AttachNotifier(n *notify.Client) error {
	s.mu.Lock()
	s.notifier = n
	s.mu.Unlock()

	n.On("session.ring", func(ev *notify.Event) {
		s.core.GetLogger().Printf("session %s: ring hint received (event %s)", s.sessionID, ev.ID)
	})

	n.On("credential.refresh", func(ev *notify.Event) {
		s.mu.RLock()
		has := s.hasProfile
		p := s.profile
		s.mu.RUnlock()
		if has {
			_ = s.ApplyProfile(p)
		}
	})

	return n.Connect()
}

// ---- Shutdown ----

// Close tears the session down: connections are dropped, the device is
// released, the notifier disconnected, and the event queue drained and
// stopped. Close is idempotent.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		n := s.notifier
		s.notifier = nil
		dev := s.device
		p := s.pending
		a := s.active
		s.pending = nil
		s.active = nil
		s.mu.Unlock()

		if n != nil {
			_ = n.Disconnect()
		}
		if p != nil {
			_ = p.Ignore()
		}
		if a != nil {
			_ = a.Disconnect()
		}
		if dev != nil {
			_ = dev.Release()
		}

		close(s.done)
	})
	return nil
}

// ---- Internal ----

// setState records a transition and queues the state event. Caller holds the
// lock.
func (s *Session) setState(next ConnectionState) {
	if s.state == next {
		return
	}
	s.state = next
	s.post(EventConnectionStateChanged, next)
}

// recomputeIdle returns the machine to Idle when both slots are empty.
// Caller holds the lock.
func (s *Session) recomputeIdle() {
	if s.active == nil && s.pending == nil {
		s.setState(StateIdle)
	}
}

// post queues an outward event. Caller holds the lock; posting under the lock
// is what guarantees handlers observe events in mutation order.
func (s *Session) post(key EventKey, data interface{}) {
	select {
	case s.eventCh <- queuedEvent{key: key, data: data}:
	case <-s.done:
	}
}

// dispatchLoop delivers queued events one at a time, draining the queue on
// shutdown.
func (s *Session) dispatchLoop() {
	for {
		select {
		case ev := <-s.eventCh:
			s.Emitter.Emit(string(ev.key), ev.data)
		case <-s.done:
			for {
				select {
				case ev := <-s.eventCh:
					s.Emitter.Emit(string(ev.key), ev.data)
				default:
					return
				}
			}
		}
	}
}
