/* SPDX-License-Identifier: MPL-2.0
 * Copyright 2026 Vocaline SDK Contributors
 *
 * See CONTRIBUTORS.md for full contributor list.
 */

// Package capability defines the contract between the session controller and
// a voice engine implementation. The SDK orchestrates devices and connections
// through these interfaces; it never touches media or signaling directly, so
// any engine (native binding, soft stub, test fake) can be plugged in.
package capability

// ConnectParams carries the destination and any engine-specific extras for
// an outgoing connection.
type ConnectParams struct {
	// To is the normalized destination: an E.164 number or a "client:" address.
	To string

	// Extras are passed through to the engine untouched.
	Extras map[string]string
}

// Provider creates devices from capability tokens. A provider represents one
// voice engine.
type Provider interface {
	// Initialize performs the engine's one-time setup. It is called once,
	// before the first NewDevice; failure is fatal for the session.
	Initialize() error

	// NewDevice creates a registered endpoint bound to the token. Failure
	// here is not fatal: a later credential may try again.
	NewDevice(token string, listener DeviceListener) (Device, error)
}

// Device is a registered endpoint of the voice engine. A device is created
// once per session and refreshed in place with new capability tokens.
type Device interface {
	// UpdateToken replaces the device's capability token without tearing
	// down the registration.
	UpdateToken(token string) error

	// Connect starts an outgoing connection to the given destination.
	Connect(params ConnectParams, listener ConnectionListener) (Connection, error)

	// DisconnectAll terminates every connection owned by this device.
	DisconnectAll()

	// Release shuts the device down. After Release the device is unusable.
	Release() error
}

// Connection is a single call leg, incoming or outgoing.
type Connection interface {
	// Accept answers an incoming connection and installs the listener that
	// will observe its lifecycle.
	Accept(listener ConnectionListener) error

	// Ignore declines an incoming connection without signaling busy.
	Ignore() error

	// Disconnect terminates the connection.
	Disconnect() error

	// Mute sets the microphone mute state of the connection.
	Mute(on bool) error

	// Parameters returns the connection metadata (caller, callee, engine ids).
	Parameters() map[string]string
}

// Presence reports the availability of a contact known to the device.
type Presence struct {
	Contact   string
	Available bool
}

// DeviceListener observes device-level events from the engine.
type DeviceListener interface {
	// OnStartListening fires when the device is registered and able to
	// receive incoming connections.
	OnStartListening(d Device)

	// OnStopListening fires when the device loses its registration. err is
	// nil for a deliberate stop.
	OnStopListening(d Device, err error)

	// OnIncoming fires when a new incoming connection is ringing.
	OnIncoming(d Device, conn Connection)

	// OnPresenceChanged fires when the availability of a contact changes.
	// Engines that do not track presence never call it.
	OnPresenceChanged(d Device, p Presence)
}

// ConnectionListener observes the lifecycle of a single connection.
type ConnectionListener interface {
	OnConnecting(conn Connection)
	OnConnected(conn Connection)
	OnDisconnected(conn Connection)

	// OnError fires when the engine reports a failure on the connection.
	// code and message come straight from the engine.
	OnError(conn Connection, code int, message string)
}
