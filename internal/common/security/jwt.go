package security

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/golang-jwt/jwt/v5"
)

// SessionTTL is the fixed lifetime of a session token. Validity is purely
// cryptographic plus expiry; there is no server-side revocation list.
const SessionTTL = 7 * 24 * time.Hour

// SessionCookieName is the cookie jwtauth.TokenFromCookie reads from.
const SessionCookieName = "jwt"

// SessionManager mints and describes session tokens. The token payload
// carries only the user id as subject; role and identity are re-read from
// the store on every authenticated request.
type SessionManager struct {
	auth *jwtauth.JWTAuth
}

func NewSessionManager(key []byte) *SessionManager {
	return &SessionManager{auth: jwtauth.New("HS256", key, nil)}
}

// JWTAuth exposes the underlying verifier for router middleware.
func (s *SessionManager) JWTAuth() *jwtauth.JWTAuth {
	return s.auth
}

func (s *SessionManager) GenerateToken(userID string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": userID,
		"exp": now.Add(SessionTTL).Unix(),
		"iat": now.Unix(),
	}
	_, tokenString, err := s.auth.Encode(claims)
	return tokenString, err
}

// SessionCookie wraps a token in the HTTP-only session cookie. The Secure
// flag is dropped only in development.
func (s *SessionManager) SessionCookie(token string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	}
}

// ExpiredSessionCookie returns a cookie that clears the session client-side.
func (s *SessionManager) ExpiredSessionCookie(secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	}
}

func UserIDFromClaims(claims map[string]interface{}) (string, error) {
	id, ok := claims["sub"].(string)
	if !ok || id == "" {
		return "", errors.New("sub claim is missing or not a string")
	}
	return id, nil
}
