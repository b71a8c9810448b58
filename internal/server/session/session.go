// Package session issues and reads the signed cookie tokens that carry
// role-scoped claims. Tokens are HS256 JWTs: claims plus an issue
// timestamp, valid for a fixed window from issuance with no renewal.
// Nothing is persisted server-side; logout only deletes the cookie, so
// a captured token stays usable until its window elapses.
package session

import (
	"fmt"
	"net/http"
	"time"

	"github.com/dealerdesk/dealerdesk/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

const DefaultTTL = 24 * time.Hour

// Issuer builds and validates session tokens and manages the cookies
// that carry them.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	secure bool

	// now is replaceable in tests.
	now func() time.Time
}

func NewIssuer(secret string, ttl time.Duration, secure bool) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{
		secret: []byte(secret),
		ttl:    ttl,
		secure: secure,
		now:    time.Now,
	}
}

// CookieName returns the cookie carrying sessions for the given role,
// e.g. "admin_session".
func CookieName(role models.Role) string {
	return fmt.Sprintf("%s_session", role)
}

// Issue signs the claims with the current issue timestamp and returns
// the cookie value.
func (i *Issuer) Issue(claims models.SessionClaims) (string, error) {
	now := i.now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(i.ttl))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// Read decodes a cookie value into claims. Any parse or signature
// problem means unauthenticated, never an error: malformed cookies are
// an expected input. A decodable token is additionally rejected once
// the issue timestamp is older than the validity window. Read never
// touches the cookie itself; only an explicit logout clears it.
func (i *Issuer) Read(tokenString string) (*models.SessionClaims, bool) {
	claims := &models.SessionClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !token.Valid {
		return nil, false
	}

	if claims.IssuedAt == nil || i.now().Sub(claims.IssuedAt.Time) > i.ttl {
		return nil, false
	}

	return claims, true
}

// SetCookie attaches the session token to the response: HTTP-only,
// SameSite=Lax, Secure in production, root path, max-age matching the
// token validity window.
func (i *Issuer) SetCookie(w http.ResponseWriter, name, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   i.secure,
		MaxAge:   int(i.ttl.Seconds()),
	})
}

// Revoke deletes the session cookie. Idempotent.
func (i *Issuer) Revoke(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   i.secure,
		MaxAge:   -1,
	})
}
