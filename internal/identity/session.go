package identity

import (
	"strconv"
	"time"

	"github.com/go-jose/go-jose/v3/jwt"
)

type Session struct {
	IDToken      string
	RefreshToken string
	Email        string
	UserID       string
	ExpiresAt    time.Time
}

// Expired reports whether the id token expires within leeway of now.
func (s *Session) Expired(now time.Time, leeway time.Duration) bool {
	return s.ExpiresAt.IsZero() || !now.Add(leeway).Before(s.ExpiresAt)
}

type tokenClaims struct {
	jwt.Claims
	Email string `json:"email"`
}

func newSession(idToken string, refreshToken string, email string, userID string, expiresIn string) *Session {
	s := &Session{
		IDToken:      idToken,
		RefreshToken: refreshToken,
		Email:        email,
		UserID:       userID,
	}

	if claims, ok := parseClaims(idToken); ok {
		if claims.Expiry != nil {
			s.ExpiresAt = claims.Expiry.Time()
		}
		if s.Email == "" {
			s.Email = claims.Email
		}
		if s.UserID == "" {
			s.UserID = claims.Subject
		}
	}
	if s.ExpiresAt.IsZero() {
		if seconds, err := strconv.Atoi(expiresIn); err == nil {
			s.ExpiresAt = time.Now().Add(time.Duration(seconds) * time.Second)
		}
	}
	return s
}

// parseClaims reads the token claims without verifying the signature.
// The backend verifies the token, the client only needs the expiry.
func parseClaims(idToken string) (tokenClaims, bool) {
	var claims tokenClaims
	token, err := jwt.ParseSigned(idToken)
	if err != nil {
		return claims, false
	}
	if err = token.UnsafeClaimsWithoutVerification(&claims); err != nil {
		return claims, false
	}
	return claims, true
}
