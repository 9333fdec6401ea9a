package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrUnauthenticated means no candidate token was supplied while the
	// gate is enabled.
	ErrUnauthenticated = errors.New("no token supplied")
	// ErrForbidden means a candidate token was supplied but did not check
	// out.
	ErrForbidden = errors.New("token rejected")
)

// Mode selects how a candidate token is checked.
type Mode string

const (
	// ModeStatic compares the candidate byte-for-byte against the
	// configured token string.
	ModeStatic Mode = "static"
	// ModeSigned treats the configured token string as an HS256 signing
	// secret and expects the candidate to be a valid JWT.
	ModeSigned Mode = "signed"
)

// Gate is the token check guarding queries and socket upgrades.
type Gate struct {
	Enabled bool
	Mode    Mode
	Token   string
}

// CandidateToken extracts the caller-supplied token from the request: the
// "token" query parameter wins, otherwise the Authorization header (a
// "Bearer " prefix is tolerated and stripped).
func CandidateToken(r *http.Request) (string, bool) {
	if token := r.URL.Query().Get("token"); token != "" {
		return token, true
	}
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	return strings.TrimPrefix(header, "Bearer "), true
}

// Check validates the request against the gate. A disabled gate allows
// everything.
func (g *Gate) Check(r *http.Request) error {
	if !g.Enabled {
		return nil
	}
	candidate, ok := CandidateToken(r)
	if !ok {
		return ErrUnauthenticated
	}
	if g.Mode == ModeSigned {
		return g.checkSigned(candidate)
	}
	if subtle.ConstantTimeCompare([]byte(candidate), []byte(g.Token)) != 1 {
		return ErrForbidden
	}
	return nil
}

func (g *Gate) checkSigned(candidate string) error {
	token, err := jwt.Parse(candidate, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(g.Token), nil
	})
	if err != nil || !token.Valid {
		return ErrForbidden
	}
	return nil
}

// Middleware adapts the gate to HTTP handlers: missing token -> 401,
// rejected token -> 403.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch err := g.Check(r); {
		case errors.Is(err, ErrUnauthenticated):
			http.Error(w, "token required", http.StatusUnauthorized)
		case errors.Is(err, ErrForbidden):
			http.Error(w, "invalid token", http.StatusForbidden)
		case err != nil:
			http.Error(w, "auth check failed", http.StatusInternalServerError)
		default:
			next.ServeHTTP(w, r)
		}
	})
}
