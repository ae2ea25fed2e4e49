package middleware

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const AdminRole = "admin"

type AdminAuth struct {
	secret []byte
	issuer string
	log    *zap.SugaredLogger
}

func NewAdminAuth(secret, issuer string, log *zap.SugaredLogger) *AdminAuth {
	return &AdminAuth{secret: []byte(secret), issuer: issuer, log: log}
}

// Issue signs an admin token for subject, valid for ttl.
func (a *AdminAuth) Issue(subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": AdminRole,
		"iss":  a.issuer,
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Handler accepts HS256 bearer tokens from the configured issuer that carry
// the admin role.
func (a *AdminAuth) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		auth := c.Get("Authorization")
		if auth == "" {
			return unauthorized(c, "missing authorization")
		}
		if !strings.HasPrefix(auth, "Bearer ") {
			return unauthorized(c, "invalid authorization header")
		}
		tokenStr := strings.TrimPrefix(auth, "Bearer ")

		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("invalid signing method")
			}
			return a.secret, nil
		}, jwt.WithIssuer(a.issuer), jwt.WithExpirationRequired())
		if err != nil || !token.Valid {
			a.log.Debugw("jwt invalid", "err", err)
			return unauthorized(c, "invalid or expired token")
		}
		if role, _ := claims["role"].(string); role != AdminRole {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"status": "error", "message": "admin role required"})
		}

		sub, _ := claims.GetSubject()
		c.Locals("user_id", sub)
		return c.Next()
	}
}

func unauthorized(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"status": "error", "message": msg})
}
