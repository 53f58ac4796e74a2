package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// WebhookTokenHeader carries the shared secret on inbound webhooks.
const WebhookTokenHeader = "X-Webhook-Token"

// WebhookToken checks the request's shared secret against the token that
// sourceOf selects for it, in constant time. The token comes from the
// X-Webhook-Token header or the token query parameter. Sources without a
// configured token are rejected.
func WebhookToken(tokens map[string]string, sourceOf func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			expected := tokens[strings.ToLower(sourceOf(r))]
			if expected == "" {
				unauthorized(w, "webhook source not configured")
				return
			}
			got := r.Header.Get(WebhookTokenHeader)
			if got == "" {
				got = r.URL.Query().Get("token")
			}
			if subtle.ConstantTimeCompare([]byte(got), []byte(expected)) != 1 {
				unauthorized(w, "invalid webhook token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// StaticSource returns a source selector that always yields name.
func StaticSource(name string) func(*http.Request) string {
	return func(*http.Request) string { return name }
}
