/* SPDX-License-Identifier: MPL-2.0
 * Copyright 2026 Vocaline SDK Contributors
 *
 * See CONTRIBUTORS.md for full contributor list.
 */

package vocalinesdk

import (
	"errors"
	"net/http"
	"testing"
	"time"
)

func makeResponse(statusCode int, headers map[string]string) *http.Response {
	h := http.Header{}
	for k, v := range headers {
		h.Set(k, v)
	}
	return &http.Response{
		StatusCode: statusCode,
		Status:     http.StatusText(statusCode),
		Header:     h,
	}
}

func TestNewAPIError(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		headers    map[string]string
		body       string
		check      func(t *testing.T, err error)
	}{
		{
			name:       "401 returns AuthError",
			statusCode: http.StatusUnauthorized,
			body:       `{"message":"invalid token","trackingId":"trk-401"}`,
			check: func(t *testing.T, err error) {
				if !IsAuthError(err) {
					t.Errorf("Expected IsAuthError to be true, got %v", err)
				}
				var apiErr *APIError
				if !errors.As(err, &apiErr) {
					t.Fatalf("Expected APIError in chain")
				}
				if apiErr.Message != "invalid token" {
					t.Errorf("Expected message 'invalid token', got %q", apiErr.Message)
				}
				if apiErr.TrackingID != "trk-401" {
					t.Errorf("Expected trackingId 'trk-401', got %q", apiErr.TrackingID)
				}
			},
		},
		{
			name:       "403 returns ForbiddenError",
			statusCode: http.StatusForbidden,
			check: func(t *testing.T, err error) {
				if !IsForbidden(err) {
					t.Errorf("Expected IsForbidden to be true, got %v", err)
				}
			},
		},
		{
			name:       "404 returns NotFoundError",
			statusCode: http.StatusNotFound,
			check: func(t *testing.T, err error) {
				if !IsNotFound(err) {
					t.Errorf("Expected IsNotFound to be true, got %v", err)
				}
			},
		},
		{
			name:       "429 returns RateLimitError with Retry-After",
			statusCode: http.StatusTooManyRequests,
			headers:    map[string]string{"Retry-After": "30"},
			check: func(t *testing.T, err error) {
				if !IsRateLimited(err) {
					t.Errorf("Expected IsRateLimited to be true, got %v", err)
				}
				var apiErr *APIError
				if !errors.As(err, &apiErr) {
					t.Fatalf("Expected APIError in chain")
				}
				if apiErr.RetryAfter != 30*time.Second {
					t.Errorf("Expected RetryAfter 30s, got %v", apiErr.RetryAfter)
				}
			},
		},
		{
			name:       "503 returns ServerError",
			statusCode: http.StatusServiceUnavailable,
			check: func(t *testing.T, err error) {
				if !IsServerError(err) {
					t.Errorf("Expected IsServerError to be true, got %v", err)
				}
			},
		},
		{
			name:       "400 returns plain APIError",
			statusCode: http.StatusBadRequest,
			check: func(t *testing.T, err error) {
				var apiErr *APIError
				if !errors.As(err, &apiErr) {
					t.Fatalf("Expected APIError, got %T", err)
				}
				if IsAuthError(err) || IsNotFound(err) || IsRateLimited(err) || IsServerError(err) {
					t.Errorf("Expected no sub-type match for 400")
				}
			},
		},
		{
			name:       "Non-JSON body preserved in RawBody",
			statusCode: http.StatusBadRequest,
			body:       "plain text error",
			check: func(t *testing.T, err error) {
				var apiErr *APIError
				if !errors.As(err, &apiErr) {
					t.Fatalf("Expected APIError, got %T", err)
				}
				if apiErr.Message != "" {
					t.Errorf("Expected empty Message for non-JSON body, got %q", apiErr.Message)
				}
				if string(apiErr.RawBody) != "plain text error" {
					t.Errorf("Expected RawBody preserved, got %q", string(apiErr.RawBody))
				}
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := makeResponse(tc.statusCode, tc.headers)
			err := NewAPIError(resp, []byte(tc.body))
			if err == nil {
				t.Fatalf("Expected error, got nil")
			}
			tc.check(t, err)
		})
	}
}

func TestAPIErrorMessage(t *testing.T) {
	err := &APIError{
		StatusCode: 404,
		Message:    "not here",
		TrackingID: "trk-9",
	}

	got := err.Error()
	want := "API error: 404 - not here (trackingId: trk-9)"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}
