package tokenstore

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// ExpiryOf reads the exp claim of an access token without verifying the
// signature; the client only uses it for display and oauth2.Token.Valid.
// A zero time is returned for opaque tokens or tokens without exp.
func ExpiryOf(accessToken string) time.Time {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, &claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

// NewToken builds the persisted token pair.
func NewToken(access, refresh string) *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		Expiry:       ExpiryOf(access),
	}
}
