/* SPDX-License-Identifier: MPL-2.0
 * Copyright 2026 Vocaline SDK Contributors
 *
 * See CONTRIBUTORS.md for full contributor list.
 */

package credential

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vocaline/vocaline-go-sdk/vocalinesdk"
)

func newTestFetcher(t *testing.T, handler http.HandlerFunc) (*Fetcher, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	core, err := vocalinesdk.NewClient("test-token", &vocalinesdk.Config{
		BaseURL: server.URL,
		Timeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("Failed to create core client: %v", err)
	}

	return New(core, nil), server
}

func TestFetch(t *testing.T) {
	t.Run("Outgoing only", func(t *testing.T) {
		fetcher, _ := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				t.Errorf("Expected GET, got %s", r.Method)
			}
			if r.URL.Path != "/auth/token" {
				t.Errorf("Expected path '/auth/token', got %q", r.URL.Path)
			}

			q := r.URL.Query()
			if q.Get("allowOutgoing") != "true" {
				t.Errorf("Expected allowOutgoing=true, got %q", q.Get("allowOutgoing"))
			}
			if q.Has("client") {
				t.Errorf("Expected no client param, got %q", q.Get("client"))
			}

			fmt.Fprint(w, "tok-outgoing")
		})

		token, err := fetcher.Fetch(context.Background(), Params{AllowOutgoing: true})
		if err != nil {
			t.Fatalf("Fetch failed: %v", err)
		}
		if token != "tok-outgoing" {
			t.Errorf("Expected token 'tok-outgoing', got %q", token)
		}
	})

	t.Run("Incoming with client name", func(t *testing.T) {
		fetcher, _ := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			if q.Has("allowOutgoing") {
				t.Errorf("Expected no allowOutgoing param, got %q", q.Get("allowOutgoing"))
			}
			if q.Get("client") != "alice" {
				t.Errorf("Expected client=alice, got %q", q.Get("client"))
			}

			fmt.Fprint(w, "tok-incoming")
		})

		token, err := fetcher.Fetch(context.Background(), Params{
			AllowIncoming: true,
			ClientName:    "alice",
		})
		if err != nil {
			t.Fatalf("Fetch failed: %v", err)
		}
		if token != "tok-incoming" {
			t.Errorf("Expected token 'tok-incoming', got %q", token)
		}
	})

	t.Run("Incoming without client name omits client param", func(t *testing.T) {
		fetcher, _ := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Has("client") {
				t.Errorf("Expected no client param when name is empty")
			}
			fmt.Fprint(w, "tok")
		})

		if _, err := fetcher.Fetch(context.Background(), Params{AllowIncoming: true}); err != nil {
			t.Fatalf("Fetch failed: %v", err)
		}
	})

	t.Run("Client name without incoming omits client param", func(t *testing.T) {
		fetcher, _ := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Has("client") {
				t.Errorf("Expected no client param when incoming is not allowed")
			}
			fmt.Fprint(w, "tok")
		})

		if _, err := fetcher.Fetch(context.Background(), Params{ClientName: "alice"}); err != nil {
			t.Fatalf("Fetch failed: %v", err)
		}
	})

	t.Run("Token returned verbatim", func(t *testing.T) {
		raw := "  eyJhbGciOiJIUzI1NiJ9.payload.sig \n"
		fetcher, _ := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, raw)
		})

		token, err := fetcher.Fetch(context.Background(), Params{AllowOutgoing: true})
		if err != nil {
			t.Fatalf("Fetch failed: %v", err)
		}
		if token != raw {
			t.Errorf("Expected token returned verbatim, got %q", token)
		}
	})

	t.Run("Empty body is an error", func(t *testing.T) {
		fetcher, _ := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

		if _, err := fetcher.Fetch(context.Background(), Params{AllowOutgoing: true}); err == nil {
			t.Errorf("Expected error for empty body")
		}
	})

	t.Run("Never retries", func(t *testing.T) {
		var attempts int
		fetcher, _ := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
			attempts++
			w.WriteHeader(http.StatusServiceUnavailable)
		})

		if _, err := fetcher.Fetch(context.Background(), Params{AllowOutgoing: true}); err == nil {
			t.Errorf("Expected error for 503 response")
		}
		if attempts != 1 {
			t.Errorf("Expected exactly 1 attempt, got %d", attempts)
		}
	})

	t.Run("Error status surfaces APIError", func(t *testing.T) {
		fetcher, _ := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"message":"bad credentials"}`)
		})

		_, err := fetcher.Fetch(context.Background(), Params{AllowOutgoing: true})
		if err == nil {
			t.Fatalf("Expected error for 401 response")
		}
		if !vocalinesdk.IsAuthError(err) {
			t.Errorf("Expected auth error, got %v", err)
		}
	})
}

// makeToken builds an unsigned compact JWS for introspection tests.
func makeToken(t *testing.T, payload string) string {
	t.Helper()
	enc := base64.RawURLEncoding
	header := enc.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	body := enc.EncodeToString([]byte(payload))
	sig := enc.EncodeToString([]byte("not-a-real-signature"))
	return header + "." + body + "." + sig
}

func TestIntrospect(t *testing.T) {
	t.Run("Decodes claims", func(t *testing.T) {
		exp := time.Now().Add(time.Hour).Unix()
		token := makeToken(t, fmt.Sprintf(`{"exp":%d,"iss":"AC123","identity":"alice"}`, exp))

		info, err := Introspect(token)
		if err != nil {
			t.Fatalf("Introspect failed: %v", err)
		}

		if info.AccountID != "AC123" {
			t.Errorf("Expected AccountID 'AC123', got %q", info.AccountID)
		}
		if info.Identity != "alice" {
			t.Errorf("Expected Identity 'alice', got %q", info.Identity)
		}
		if info.ExpiresAt.Unix() != exp {
			t.Errorf("Expected ExpiresAt %d, got %d", exp, info.ExpiresAt.Unix())
		}
	})

	t.Run("Missing exp yields zero expiry", func(t *testing.T) {
		token := makeToken(t, `{"iss":"AC123"}`)

		info, err := Introspect(token)
		if err != nil {
			t.Fatalf("Introspect failed: %v", err)
		}
		if !info.ExpiresAt.IsZero() {
			t.Errorf("Expected zero ExpiresAt, got %v", info.ExpiresAt)
		}
	})

	t.Run("Garbage token is an error", func(t *testing.T) {
		if _, err := Introspect("not-a-jws"); err == nil {
			t.Errorf("Expected error for garbage token")
		}
	})
}

func TestExpiresSoon(t *testing.T) {
	tests := []struct {
		name   string
		info   *TokenInfo
		leeway time.Duration
		want   bool
	}{
		{
			name:   "Nil info",
			info:   nil,
			leeway: time.Minute,
			want:   false,
		},
		{
			name:   "Zero expiry",
			info:   &TokenInfo{},
			leeway: time.Minute,
			want:   false,
		},
		{
			name:   "Expires within leeway",
			info:   &TokenInfo{ExpiresAt: time.Now().Add(30 * time.Second)},
			leeway: time.Minute,
			want:   true,
		},
		{
			name:   "Expires after leeway",
			info:   &TokenInfo{ExpiresAt: time.Now().Add(time.Hour)},
			leeway: time.Minute,
			want:   false,
		},
		{
			name:   "Already expired",
			info:   &TokenInfo{ExpiresAt: time.Now().Add(-time.Minute)},
			leeway: time.Minute,
			want:   true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExpiresSoon(tc.info, tc.leeway); got != tc.want {
				t.Errorf("Expected %v, got %v", tc.want, got)
			}
		})
	}
}
