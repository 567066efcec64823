// Package auth provides the Google OAuth flow and signed session cookies.
//
// Identity is never global state: the middleware validates the session
// token once per request and hands the resolved user to downstream
// handlers through the request context.
package auth

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// SessionCookieName carries the signed session token.
	SessionCookieName = "charachat_session"

	sessionTTL = 24 * time.Hour
)

type sessionClaims struct {
	DisplayName string `json:"name"`
	jwt.RegisteredClaims
}

func newSessionToken(secret []byte, userID, displayName string, now time.Time) (string, error) {
	claims := sessionClaims{
		DisplayName: displayName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(sessionTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

func parseSessionToken(secret []byte, raw string) (userID, displayName string, err error) {
	var claims sessionClaims
	_, err = jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", "", fmt.Errorf("parse session token: %w", err)
	}
	if claims.Subject == "" {
		return "", "", fmt.Errorf("session token has no subject")
	}
	return claims.Subject, claims.DisplayName, nil
}

// sessionCookie builds the session cookie. Cross-site frontends need
// SameSite=None with Secure, which only works over HTTPS; development
// falls back to Lax.
func sessionCookie(value string, maxAge time.Duration, isDev bool) *http.Cookie {
	c := &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   !isDev,
	}
	if !isDev {
		c.SameSite = http.SameSiteNoneMode
	}
	if maxAge > 0 {
		c.Expires = time.Now().Add(maxAge)
	}
	return c
}
