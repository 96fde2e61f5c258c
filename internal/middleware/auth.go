package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/Dan9191/aromastream/internal/auth"
	"github.com/sirupsen/logrus"
)

// RefreshedTokenHeader carries a renewed token when the presented one is
// still inside its refresh window.
const RefreshedTokenHeader = "X-Refreshed-Token"

const (
	msgNoCredentials = "Authentication credentials were not provided."
	msgInvalidToken  = "Given token not valid for any token type"
)

// AuthMiddleware rejects requests without a valid bearer token
func AuthMiddleware(tokens auth.TokenIssuer, log *logrus.Logger) func(http.Handler) http.Handler {
	return authenticate(tokens, log, true)
}

// OptionalAuthMiddleware attaches the identity when a token is presented and
// lets anonymous requests through. A presented but invalid token is rejected.
func OptionalAuthMiddleware(tokens auth.TokenIssuer, log *logrus.Logger) func(http.Handler) http.Handler {
	return authenticate(tokens, log, false)
}

func authenticate(tokens auth.TokenIssuer, log *logrus.Logger, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				if required {
					writeErr(w, http.StatusUnauthorized, msgNoCredentials)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			tokenString, ok := bearerToken(header)
			if !ok {
				writeErr(w, http.StatusUnauthorized, msgInvalidToken)
				return
			}

			claims, err := tokens.Validate(tokenString)
			if err != nil {
				log.WithFields(logrus.Fields{
					"path":  r.URL.Path,
					"error": err.Error(),
				}).Info("Rejected bearer token")
				writeErr(w, http.StatusUnauthorized, msgInvalidToken)
				return
			}

			if refreshed, err := tokens.Refresh(tokenString); err == nil {
				w.Header().Set(RefreshedTokenHeader, refreshed)
			}

			ctx := WithUserID(r.Context(), claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func writeErr(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	if code == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
	}
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": message})
}
