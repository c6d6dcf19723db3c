package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAPIKey_MissingKeyRejected(t *testing.T) {
	handler := APIKey(NewAuthConfig([]string{"secret"}))(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("no key: status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestAPIKey_InvalidKeyRejected(t *testing.T) {
	handler := APIKey(NewAuthConfig([]string{"secret"}))(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("X-API-KEY", "wrong")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("invalid key: status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestAPIKey_ValidKeyPasses(t *testing.T) {
	handler := APIKey(NewAuthConfig([]string{"secret", "other"}))(okHandler())

	for _, key := range []string{"secret", "other"} {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("X-API-KEY", key)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("key %q: status = %d, want %d", key, w.Code, http.StatusOK)
		}
	}
}

func TestAPIKey_DisabledPassesAll(t *testing.T) {
	handler := APIKey(NewAuthConfig(nil))(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("auth disabled: status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestNewAuthConfig_IgnoresEmptyKeys(t *testing.T) {
	if NewAuthConfig([]string{"", ""}).Enabled() {
		t.Error("blank keys should not enable authentication")
	}
	if !NewAuthConfig([]string{"", "secret"}).Enabled() {
		t.Error("one real key should enable authentication")
	}
}
