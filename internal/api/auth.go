package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"happdash/internal/config"
)

const apiKeyHeaderDefault = "x-api-key"

// auth provides API-key checking for the HTTP endpoints. Keys are compared
// in constant time; an empty key list with auth enabled rejects everything.
type auth struct {
	cfg    config.APIAuthConfig
	header string
}

func newAuth(cfg config.APIAuthConfig) *auth {
	header := strings.ToLower(strings.TrimSpace(cfg.Header))
	if header == "" {
		header = apiKeyHeaderDefault
	}
	return &auth{cfg: cfg, header: header}
}

func (a *auth) wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.cfg.Enabled || r.URL.Path == "/healthz" {
			next.ServeHTTP(w, r)
			return
		}

		key := strings.TrimSpace(r.Header.Get(a.header))
		if key == "" {
			writeError(w, http.StatusUnauthorized, "missing api key")
			return
		}
		if !a.validKey(key) {
			writeError(w, http.StatusUnauthorized, "invalid api key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (a *auth) validKey(key string) bool {
	valid := false
	for _, candidate := range a.cfg.Keys {
		if subtle.ConstantTimeCompare([]byte(candidate), []byte(key)) == 1 {
			valid = true
		}
	}
	return valid
}
