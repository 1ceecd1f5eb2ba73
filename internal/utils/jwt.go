package utils // package utils provides token helpers shared by tests and the dev token tool

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/tournament-checkin/internal/model"
)

// AccessToken is a signed HS256 JWT and its expiry.
type AccessToken struct {
	Token string
	Exp   time.Time
}

// NewAccessToken signs a token carrying who's user id (sub) and role, the
// two claims the middleware reads. Production tokens come from the
// tabulation system's login; this helper mints equivalent ones for tests
// and local tooling.
func NewAccessToken(secret string, who model.Requester, ttl time.Duration) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := jwt.MapClaims{
		"sub":  who.UserID,
		"role": who.Role,
		"exp":  exp.Unix(),
		"iat":  now.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}
