// shared/session/middleware.go
package session

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Ftotnem/HACKATHON-SERVICES/shared/api"
	"github.com/Ftotnem/HACKATHON-SERVICES/shared/logger"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = fmt.Errorf("missing auth token")
	ErrInvalidToken = fmt.Errorf("invalid auth token")
)

// Claims are the token claims issued by the identity provider.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Authenticator verifies bearer tokens signed with a shared HS256 secret.
type Authenticator struct {
	secret  []byte
	tracker *Tracker
	log     *logger.Logger
}

// NewAuthenticator creates an Authenticator. tracker may be nil.
func NewAuthenticator(secret string, tracker *Tracker, log *logger.Logger) *Authenticator {
	return &Authenticator{secret: []byte(secret), tracker: tracker, log: log}
}

// Parse validates tokenStr and returns the identity and token expiry. The
// expiry is zero when the token carries none.
func (a *Authenticator) Parse(tokenStr string) (Identity, time.Time, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Identity{}, time.Time{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	email := NormalizeEmail(claims.Email)
	if email == "" {
		return Identity{}, time.Time{}, fmt.Errorf("%w: no email claim", ErrInvalidToken)
	}
	var expires time.Time
	if claims.ExpiresAt != nil {
		expires = claims.ExpiresAt.Time
	}
	return Identity{Email: email}, expires, nil
}

// Middleware rejects requests without a valid bearer token and stores the
// caller's identity on the request context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			api.WriteError(w, http.StatusUnauthorized, ErrMissingToken.Error())
			return
		}

		id, expires, err := a.Parse(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			a.log.Debug("rejected bearer token", "path", r.URL.Path, "error", err)
			api.WriteError(w, http.StatusUnauthorized, ErrInvalidToken.Error())
			return
		}

		if a.tracker != nil {
			a.tracker.Observe(r.Context(), id, expires)
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}
