/* SPDX-License-Identifier: MPL-2.0
 * Copyright 2026 Vocaline SDK Contributors
 *
 * See CONTRIBUTORS.md for full contributor list.
 */

package session

import "sync"

// ---- Connection State & Event Enums ----

// ConnectionState represents the state of the session's connection machine
type ConnectionState string

const (
	StateIdle         ConnectionState = "idle"
	StatePending      ConnectionState = "pending"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
	StateDisconnected ConnectionState = "disconnected"
)

// EventKey identifies the type of session event
type EventKey string

const (
	// EventRegistrationChanged carries a bool: whether the device is
	// listening for incoming connections.
	EventRegistrationChanged EventKey = "registrationStateChanged"

	// EventConnectionStateChanged carries the new ConnectionState.
	EventConnectionStateChanged EventKey = "connectionStateChanged"

	// EventIncomingRinging carries the ringing connection's parameter map.
	EventIncomingRinging EventKey = "incomingConnectionRinging"

	// EventFaultOccurred carries a *Fault.
	EventFaultOccurred EventKey = "faultOccurred"

	// EventSpeakerChanged carries a bool: the new speakerphone preference.
	EventSpeakerChanged EventKey = "speakerChanged"
)

// ---- Event Emitter ----

// EventHandler is a callback function for events
type EventHandler func(data interface{})

// EventEmitter provides a simple event pub/sub system
type EventEmitter struct {
	mu       sync.RWMutex
	handlers map[string][]EventHandler
}

// NewEventEmitter creates a new EventEmitter
func NewEventEmitter() *EventEmitter {
	return &EventEmitter{
		handlers: make(map[string][]EventHandler),
	}
}

// On registers an event handler for a specific event type
func (e *EventEmitter) On(event string, handler EventHandler) {
	if handler == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[event] = append(e.handlers[event], handler)
}

// Off removes all handlers for a specific event type
func (e *EventEmitter) Off(event string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.handlers, event)
}

// Emit fires an event, calling all registered handlers
func (e *EventEmitter) Emit(event string, data interface{}) {
	e.mu.RLock()
	handlers := make([]EventHandler, len(e.handlers[event]))
	copy(handlers, e.handlers[event])
	e.mu.RUnlock()

	for _, handler := range handlers {
		handler(data)
	}
}
