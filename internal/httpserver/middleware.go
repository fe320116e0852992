// filepath: internal/httpserver/middleware.go
package httpserver

import (
	"crypto/subtle"
	"net/http"

	"sqlgrid/internal/config"
	"sqlgrid/internal/logging"

	"golang.org/x/crypto/bcrypt"
)

// BasicAuthMiddleware checks HTTP Basic credentials against the configured
// username and bcrypt password hash. When auth is disabled in the config the
// middleware passes every request through untouched.
func BasicAuthMiddleware(auth config.AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !auth.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			username, password, ok := r.BasicAuth()
			if !ok {
				w.Header().Set("WWW-Authenticate", `Basic realm="restricted"`)
				respondWithError(w, http.StatusUnauthorized, "Authorization required")
				return
			}

			if subtle.ConstantTimeCompare([]byte(username), []byte(auth.Username)) != 1 {
				logging.Log.Warnf("BasicAuthMiddleware: unknown user '%s'", username)
				respondWithError(w, http.StatusUnauthorized, "Authentication failed")
				return
			}
			if err := bcrypt.CompareHashAndPassword([]byte(auth.PasswordHash), []byte(password)); err != nil {
				logging.Log.Warnf("BasicAuthMiddleware: bad password for user '%s'", username)
				respondWithError(w, http.StatusUnauthorized, "Authentication failed")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
