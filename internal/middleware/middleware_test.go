package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/tournament-checkin/internal/config"
	"github.com/iliyamo/tournament-checkin/internal/model"
)

const secret = "test-secret"

func sign(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func run(mw echo.MiddlewareFunc, header string) (*httptest.ResponseRecorder, model.Requester, bool) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	var got model.Requester
	called := false
	_ = mw(func(c echo.Context) error {
		called = true
		got = Requester(c)
		return c.NoContent(http.StatusOK)
	})(c)
	return rec, got, called
}

func TestJWTAuth(t *testing.T) {
	valid := sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{
		"sub": 42, "role": model.RoleAdministrator, "exp": time.Now().Add(time.Hour).Unix(),
	})
	expired := sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{
		"sub": 42, "role": model.RoleAdministrator, "exp": time.Now().Add(-time.Hour).Unix(),
	})

	t.Run("valid token yields requester", func(t *testing.T) {
		rec, who, called := run(JWTAuth(secret), "Bearer "+valid)
		require.True(t, called)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, uint64(42), who.UserID)
		assert.True(t, who.IsAdministrator())
	})

	t.Run("missing token is unauthorized", func(t *testing.T) {
		rec, _, called := run(JWTAuth(secret), "")
		assert.False(t, called)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("expired token is unauthorized", func(t *testing.T) {
		rec, _, called := run(JWTAuth(secret), "Bearer "+expired)
		assert.False(t, called)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong secret is unauthorized", func(t *testing.T) {
		other := sign(t, jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{"sub": 1})
		rec, _, _ := run(JWTAuth(secret), "Bearer "+other)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestOptionalJWT(t *testing.T) {
	rec, who, called := run(OptionalJWT(secret), "")
	require.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, who.IsAdministrator())

	rec, _, called = run(OptionalJWT(secret), "Bearer garbage")
	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	tok := sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{"sub": "7", "role": "VIEWER"})
	_, who, called = run(OptionalJWT(secret), "Bearer "+tok)
	require.True(t, called)
	assert.Equal(t, uint64(7), who.UserID)
	assert.False(t, who.IsAdministrator())
}

func TestRequireRole(t *testing.T) {
	admin := sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{"sub": 1, "role": model.RoleAdministrator})
	viewer := sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{"sub": 2, "role": "VIEWER"})
	chain := func(next echo.HandlerFunc) echo.HandlerFunc {
		return JWTAuth(secret)(RequireRole(model.RoleAdministrator)(next))
	}

	rec, _, called := run(chain, "Bearer "+admin)
	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _, called = run(chain, "Bearer "+viewer)
	assert.False(t, called)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPut, "/v1/tournaments/wudc/checkin/venues/3", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/tournaments/:tournament/checkin/:kind/:id")
	c.SetParamNames("tournament", "kind", "id")
	c.SetParamValues("wudc", "venues", "3")

	key := buildRateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip_user"}, c)
	assert.Equal(t, "rl:t:wudc:ip:10.0.0.1:user:guest", key)
}

func TestNewTokenBucketWithoutRedisIsPassThrough(t *testing.T) {
	mw := NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil, nil)
	rec, _, called := run(mw, "")
	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
}
