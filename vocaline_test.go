/* SPDX-License-Identifier: MPL-2.0
 * Copyright 2026 Vocaline SDK Contributors
 *
 * See CONTRIBUTORS.md for full contributor list.
 */

package vocaline

import (
	"testing"
)

func TestNewClient(t *testing.T) {
	client, err := NewClient("test-token", nil)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	if client == nil {
		t.Fatal("Expected non-nil client")
	}

	if _, err := NewClient("", nil); err == nil {
		t.Error("Expected error for empty access token")
	}
}

func TestVocalineClientAccessors(t *testing.T) {
	client, err := NewClient("test-token", nil)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	if client.Core() == nil {
		t.Error("Expected Core() to return non-nil core client")
	}

	// Plugin accessors are lazy singletons
	creds := client.Credentials()
	if creds == nil {
		t.Fatal("Expected non-nil credential plugin")
	}
	if client.Credentials() != creds {
		t.Error("Expected repeated Credentials() calls to return the same instance")
	}

	n := client.Notify()
	if n == nil {
		t.Fatal("Expected non-nil notify plugin")
	}
	if client.Notify() != n {
		t.Error("Expected repeated Notify() calls to return the same instance")
	}
}
