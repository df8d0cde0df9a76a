/* SPDX-License-Identifier: MPL-2.0
 * Copyright 2026 Vocaline SDK Contributors
 *
 * See CONTRIBUTORS.md for full contributor list.
 */

package vocaline

import (
	"sync"

	"github.com/vocaline/vocaline-go-sdk/audio"
	"github.com/vocaline/vocaline-go-sdk/capability"
	"github.com/vocaline/vocaline-go-sdk/credential"
	"github.com/vocaline/vocaline-go-sdk/notify"
	"github.com/vocaline/vocaline-go-sdk/session"
	"github.com/vocaline/vocaline-go-sdk/vocalinesdk"
)

// VocalineClient is the top-level client for the Vocaline API
type VocalineClient struct {
	// Core client for the Vocaline API
	core *vocalinesdk.Client

	// Plugins
	credentialClient *credential.Fetcher

	// Internal plugins
	notifyClient *notify.Client

	// Mutex for thread-safe lazy initialization of plugins
	mu sync.Mutex
}

// NewClient creates a new Vocaline client with the given access token and
// optional configuration
func NewClient(accessToken string, config *vocalinesdk.Config) (*VocalineClient, error) {
	core, err := vocalinesdk.NewClient(accessToken, config)
	if err != nil {
		return nil, err
	}

	client := &VocalineClient{
		core: core,
	}

	return client, nil
}

// Credentials returns the Credential plugin
func (c *VocalineClient) Credentials() *credential.Fetcher {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.credentialClient == nil {
		c.credentialClient = credential.New(c.core, nil)
	}
	return c.credentialClient
}

// Notify returns the Notify plugin (internal)
func (c *VocalineClient) Notify() *notify.Client {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.notifyClient == nil {
		c.notifyClient = notify.New(c.core, nil)
	}
	return c.notifyClient
}

// NewSession returns a fully-wired session controller for the given voice
// engine.
//
// This is a convenience method that abstracts away the manual setup of the
// credential fetcher, audio router, and push notification wiring. out may be
// nil when the host has no audio policy to drive; the session then skips
// route management. The notification channel is attached and connected as
// part of the wiring.
//
// Simple usage:
//
//	sess, err := client.NewSession(engine, out, nil)
//	sess.Emitter.On(string(session.EventIncomingRinging), handler)
//	sess.ApplyProfile(session.Profile{AllowOutgoing: true})
//	defer sess.Close()
//
// For advanced control over the fetcher, router, or notifier, use the
// lower-level APIs directly (credential.New, audio.NewRouter, notify.New,
// session.New).
func (c *VocalineClient) NewSession(provider capability.Provider, out audio.Output, config *session.Config) (*session.Session, error) {
	var router *audio.Router
	if out != nil {
		router = audio.NewRouter(out)
	}

	sess := session.New(c.core, c.Credentials(), provider, router, config)

	if err := sess.AttachNotifier(c.Notify()); err != nil {
		_ = sess.Close()
		return nil, err
	}

	return sess, nil
}

// Core returns the core Vocaline client
func (c *VocalineClient) Core() *vocalinesdk.Client {
	return c.core
}
