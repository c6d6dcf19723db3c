package middleware

import (
	"net/http"
)

// AuthConfig holds API key authentication configuration.
type AuthConfig struct {
	apiKeys map[string]struct{}
	enabled bool
}

// NewAuthConfig creates an AuthConfig from a key list. An empty list
// disables authentication entirely.
func NewAuthConfig(apiKeys []string) AuthConfig {
	keys := make(map[string]struct{}, len(apiKeys))
	for _, k := range apiKeys {
		if k != "" {
			keys[k] = struct{}{}
		}
	}
	if len(keys) == 0 {
		return AuthConfig{enabled: false}
	}
	return AuthConfig{apiKeys: keys, enabled: true}
}

// Enabled returns true if authentication is enabled.
func (c AuthConfig) Enabled() bool { return c.enabled }

// APIKey returns a middleware that requires a valid X-API-KEY header.
// With no keys configured all requests pass through.
func APIKey(config AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !config.enabled {
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get("X-API-KEY")
			if key == "" {
				writeUnauthorized(w, "X-API-KEY header is required")
				return
			}
			if _, ok := config.apiKeys[key]; !ok {
				writeUnauthorized(w, "Invalid API key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, detail string) {
	WriteJSON(w, http.StatusUnauthorized, ErrorResponse{
		Errors: []APIError{{
			Status: http.StatusText(http.StatusUnauthorized),
			Title:  "Unauthorized",
			Detail: detail,
		}},
	})
}
