package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5" // JWT library for parsing and validating tokens
	"github.com/labstack/echo/v4"  // Echo framework used for defining middleware and handlers

	"github.com/iliyamo/tournament-checkin/internal/model"
)

var errNoBearer = errors.New("missing bearer token")

// JWTAuth returns an Echo middleware that requires a valid HS256 Bearer
// token and stores the resulting model.Requester in the context. Tokens
// are issued by the tabulation system; this service only verifies them.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			who, err := parseBearer(authorization(c), secret)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
			}
			setRequester(c, who)
			return next(c)
		}
	}
}

// OptionalJWT is JWTAuth for public routes: a request without a token
// proceeds as an anonymous requester, a request with a bad token is
// rejected.
func OptionalJWT(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			who, err := parseBearer(authorization(c), secret)
			switch {
			case errors.Is(err, errNoBearer):
				setRequester(c, model.Requester{})
			case err != nil:
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
			default:
				setRequester(c, who)
			}
			return next(c)
		}
	}
}

// authorization returns the Authorization header. Browsers cannot set
// headers on WebSocket handshakes, so upgrade requests may pass the token
// as ?access_token= instead.
func authorization(c echo.Context) string {
	if h := c.Request().Header.Get("Authorization"); h != "" {
		return h
	}
	if c.IsWebSocket() {
		if tok := c.QueryParam("access_token"); tok != "" {
			return "Bearer " + tok
		}
	}
	return ""
}

func parseBearer(header, secret string) (model.Requester, error) {
	if !strings.HasPrefix(header, "Bearer ") {
		return model.Requester{}, errNoBearer
	}
	raw := strings.TrimPrefix(header, "Bearer ")

	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, echo.ErrUnauthorized
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return model.Requester{}, errors.New("invalid token")
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return model.Requester{}, errors.New("invalid claims")
	}
	role, _ := claims["role"].(string)
	return model.Requester{UserID: subject(claims["sub"]), Role: role}, nil
}

// subject accepts the numeric and string forms of the sub claim.
func subject(v interface{}) uint64 {
	switch s := v.(type) {
	case float64:
		if s > 0 {
			return uint64(s)
		}
	case string:
		if n, err := strconv.ParseUint(s, 10, 64); err == nil {
			return n
		}
	}
	return 0
}
