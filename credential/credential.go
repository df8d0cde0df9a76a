/* SPDX-License-Identifier: MPL-2.0
 * Copyright 2026 Vocaline SDK Contributors
 *
 * See CONTRIBUTORS.md for full contributor list.
 */

// Package credential fetches capability tokens from the Vocaline auth
// endpoint. Tokens are opaque to the session controller; Introspect offers a
// best-effort peek at expiry for refresh scheduling.
package credential

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-jose/go-jose/v4"

	"github.com/vocaline/vocaline-go-sdk/vocalinesdk"
)

// Config holds the configuration for the credential fetcher
type Config struct {
	// TokenPath is the path of the capability token endpoint, relative to
	// the core client's base URL.
	TokenPath string
}

// DefaultConfig returns the default configuration for the credential fetcher
func DefaultConfig() *Config {
	return &Config{
		TokenPath: "auth/token",
	}
}

// Params selects the capabilities requested for a token. The query string is
// built from these fields:
//
//   - allowOutgoing=true is sent only when AllowOutgoing is set; the
//     parameter is never sent as "false".
//   - client=<name> is sent only when AllowIncoming is set and ClientName is
//     non-empty.
type Params struct {
	AllowOutgoing bool
	AllowIncoming bool
	ClientName    string
}

// Fetcher retrieves capability tokens.
type Fetcher struct {
	core   *vocalinesdk.Client
	config *Config
}

// New creates a new credential Fetcher.
func New(core *vocalinesdk.Client, config *Config) *Fetcher {
	if config == nil {
		config = DefaultConfig()
	}

	return &Fetcher{
		core:   core,
		config: config,
	}
}

// Fetch requests a capability token for the given params. The response body
// is the token as raw text; it is returned verbatim. Fetch never retries,
// the caller decides whether and when to ask again.
func (f *Fetcher) Fetch(ctx context.Context, params Params) (string, error) {
	values := url.Values{}
	if params.AllowOutgoing {
		values.Set("allowOutgoing", "true")
	}
	if params.AllowIncoming && params.ClientName != "" {
		values.Set("client", params.ClientName)
	}

	body, status, err := f.core.RequestRaw(ctx, http.MethodGet, f.config.TokenPath, values)
	if err != nil {
		return "", fmt.Errorf("capability token fetch failed: %w", err)
	}

	token := string(body)
	if token == "" {
		return "", fmt.Errorf("capability token endpoint returned empty body (status %d)", status)
	}

	f.core.GetLogger().Printf("Fetched capability token (%d bytes)", len(token))
	return token, nil
}

// TokenInfo is the advisory metadata decoded from a capability token.
type TokenInfo struct {
	// ExpiresAt is the token expiry, zero if the token carries none.
	ExpiresAt time.Time

	// AccountID is the issuing account, from the iss claim.
	AccountID string

	// Identity is the client identity embedded in the token, if any.
	Identity string
}

// tokenClaims is the subset of JWT claims Introspect reads.
type tokenClaims struct {
	Exp      int64  `json:"exp"`
	Iss      string `json:"iss"`
	Identity string `json:"identity"`
}

// introspectionAlgs are the signature algorithms accepted when decoding a
// token. The signature is never verified (the client holds no key), so the
// list only gates parsing.
var introspectionAlgs = []jose.SignatureAlgorithm{
	jose.HS256, jose.RS256, jose.ES256,
}

// Introspect decodes a capability token as a JWS without verifying its
// signature and returns the expiry and identity claims. Tokens are minted by
// the service and treated as opaque; introspection exists only so callers can
// schedule refreshes before expiry. An unparsable token yields an error, but
// such a token is still usable with the voice engine.
func Introspect(token string) (*TokenInfo, error) {
	jws, err := jose.ParseSigned(token, introspectionAlgs)
	if err != nil {
		return nil, fmt.Errorf("token is not a parsable JWS: %w", err)
	}

	payload := jws.UnsafePayloadWithoutVerification()

	var claims tokenClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, fmt.Errorf("token payload is not valid JSON: %w", err)
	}

	info := &TokenInfo{
		AccountID: claims.Iss,
		Identity:  claims.Identity,
	}
	if claims.Exp > 0 {
		info.ExpiresAt = time.Unix(claims.Exp, 0)
	}

	return info, nil
}

// ExpiresSoon reports whether the token behind info expires within leeway.
// A zero expiry is never considered soon.
func ExpiresSoon(info *TokenInfo, leeway time.Duration) bool {
	if info == nil || info.ExpiresAt.IsZero() {
		return false
	}
	return time.Until(info.ExpiresAt) < leeway
}
