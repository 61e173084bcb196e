// Package middleware implements the control surface's cross-cutting HTTP
// concerns: bearer-token auth, structured request logging, and panic
// recovery. Grounded on the teacher's internal/api/middleware package
// (auth.go/jwt.go/logging.go/recovery.go), trimmed to the subset the
// synthesis core's control surface needs — there is no admin-session
// cookie flow here, only the bearer-JWT path the teacher uses for its
// mobile app API, since §6's Handle/Player operations are invoked by a
// single authenticated remote-control client, not by end users.
package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

type contextKey string

const handleIDKey contextKey = "handle_id"

// tokenTTL is the lifetime of a control-surface bearer token.
const tokenTTL = 24 * time.Hour

// Claims holds the JWT claims for a control-surface session, scoped to
// one Handle so a leaked token cannot be replayed against a different
// module.
type Claims struct {
	HandleID string `json:"handle_id"`
	jwt.RegisteredClaims
}

// GenerateToken creates a signed JWT authorizing control-surface calls
// against handleID.
func GenerateToken(secret []byte, handleID string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(tokenTTL)

	claims := Claims{
		HandleID: handleID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Issuer:    "kunquatd",
			Subject:   handleID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// RequireBearerAuth returns middleware that validates a JWT bearer token
// and stores its handle_id claim in the request context. A zero-length
// secret disables auth entirely (local/test harness mode), matching the
// teacher's pattern of making auth opt-in when no secret is configured.
func RequireBearerAuth(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(secret) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeJWTError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				writeJWTError(w, http.StatusUnauthorized, "invalid authorization header")
				return
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return secret, nil
			})
			if err != nil || !token.Valid {
				slog.Debug("control surface: invalid jwt", "error", err)
				writeJWTError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), handleIDKey, claims.HandleID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// HandleIDFromContext retrieves the authenticated token's handle_id
// claim. Returns "" if no token was presented (auth disabled).
func HandleIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(handleIDKey).(string)
	return id
}

type jwtEnvelope struct {
	Error string `json:"error,omitempty"`
}

func writeJWTError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(jwtEnvelope{Error: msg}) //nolint:errcheck
}
