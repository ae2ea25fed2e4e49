package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func ok(c *fiber.Ctx) error { return c.SendString("ok") }

func TestAdminAuth(t *testing.T) {
	log := zap.NewNop().Sugar()
	auth := NewAdminAuth("s3cret", "legal-agent", log)
	app := fiber.New()
	app.Get("/admin", auth.Handler(), ok)

	call := func(header string) int {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp.StatusCode
	}

	token, err := auth.Issue("admin-1", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, call("Bearer "+token))

	t.Run("missing and malformed headers", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, call(""))
		assert.Equal(t, http.StatusUnauthorized, call("Token "+token))
		assert.Equal(t, http.StatusUnauthorized, call("Bearer garbage"))
	})

	t.Run("expired token", func(t *testing.T) {
		old, err := auth.Issue("admin-1", -time.Minute)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, call("Bearer "+old))
	})

	t.Run("other issuer or secret", func(t *testing.T) {
		other, err := NewAdminAuth("s3cret", "someone-else", log).Issue("x", time.Hour)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, call("Bearer "+other))

		forged, err := NewAdminAuth("wrong", "legal-agent", log).Issue("x", time.Hour)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, call("Bearer "+forged))
	})

	t.Run("non-admin role is forbidden", func(t *testing.T) {
		claims := jwt.MapClaims{"sub": "u1", "role": "user", "iss": "legal-agent", "exp": time.Now().Add(time.Hour).Unix()}
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("s3cret"))
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, call("Bearer "+s))
	})
}

func TestIPRateLimiter(t *testing.T) {
	rl := NewIPRateLimiter(60, zap.NewNop().Sugar())
	defer rl.Close()

	app := fiber.New()
	app.Use(rl.Handler())
	app.Get("/", ok)

	codes := map[int]int{}
	for range 8 {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
		require.NoError(t, err)
		codes[resp.StatusCode]++
	}
	assert.GreaterOrEqual(t, codes[http.StatusOK], 5)
	assert.GreaterOrEqual(t, codes[http.StatusTooManyRequests], 1)
}

func TestRedisRateLimiterFailsOpen(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	defer rdb.Close()

	app := fiber.New()
	app.Use(NewRedisRateLimiter(rdb, "legal", 1, time.Minute, zap.NewNop().Sugar()).Handler())
	app.Get("/", ok)

	for range 3 {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}
}
