/* SPDX-License-Identifier: MPL-2.0
 * Copyright 2026 Vocaline SDK Contributors
 *
 * See CONTRIBUTORS.md for full contributor list.
 */

package session

import (
	"errors"
	"fmt"
)

// FaultCode classifies a session fault.
type FaultCode string

const (
	// FaultCredentialFetchFailed means the capability token request failed.
	// The session keeps its previous credentials; nothing is retried.
	FaultCredentialFetchFailed FaultCode = "credential_fetch_failed"

	// FaultSdkInitFailed means the voice engine could not create a device.
	// This fault is fatal: the session refuses further connects.
	FaultSdkInitFailed FaultCode = "sdk_init_failed"

	// FaultDeviceError means an operation on an existing device failed.
	// The device is retained.
	FaultDeviceError FaultCode = "device_error"

	// FaultNoDevice means a connect was attempted before any credential
	// produced a device.
	FaultNoDevice FaultCode = "no_device"

	// FaultNoPendingConnection means Answer or IgnoreIncoming was called
	// with nothing ringing.
	FaultNoPendingConnection FaultCode = "no_pending_connection"

	// FaultConnectionError carries an engine-reported connection failure.
	FaultConnectionError FaultCode = "connection_error"
)

// Fault is the error type for all session failures. It is both returned from
// session methods and emitted as a faultOccurred event.
type Fault struct {
	// Code classifies the fault.
	Code FaultCode

	// Message is a human-readable description.
	Message string

	// EngineCode is the engine's numeric error code for connection faults,
	// zero otherwise.
	EngineCode int

	// Err is an optional wrapped cause.
	Err error
}

// Error implements the error interface.
func (f *Fault) Error() string {
	msg := fmt.Sprintf("session fault %s", f.Code)
	if f.EngineCode != 0 {
		msg += fmt.Sprintf(" (code %d)", f.EngineCode)
	}
	if f.Message != "" {
		msg += ": " + f.Message
	}
	return msg
}

// Unwrap returns the wrapped cause, if any.
func (f *Fault) Unwrap() error {
	return f.Err
}

// newFault creates a Fault with a formatted message.
func newFault(code FaultCode, err error, format string, v ...any) *Fault {
	return &Fault{
		Code:    code,
		Message: fmt.Sprintf(format, v...),
		Err:     err,
	}
}

// FaultCodeOf extracts the FaultCode from err, or "" if err is not a Fault.
func FaultCodeOf(err error) FaultCode {
	var f *Fault
	if errors.As(err, &f) {
		return f.Code
	}
	return ""
}

// IsFatal reports whether err is a fault the session cannot recover from.
func IsFatal(err error) bool {
	return FaultCodeOf(err) == FaultSdkInitFailed
}
