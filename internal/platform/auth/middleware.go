// Package auth guards the ops server's trigger endpoints with HMAC-signed
// bearer tokens. Tokens are minted by the token subcommand and verified here;
// there is no external identity provider in the loop.
package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	// SubjectKey carries the verified token subject on the request context.
	SubjectKey contextKey = "auth_subject"

	// DefaultIssuer is stamped into minted tokens and required on
	// verification.
	DefaultIssuer = "radpipe"
)

// Claims carried by ops tokens.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role,omitempty"`
}

// Config for token minting and verification. SigningKey is the shared HMAC
// secret; Issuer defaults to DefaultIssuer when empty.
type Config struct {
	SigningKey []byte
	Issuer     string
}

func (c Config) issuer() string {
	if c.Issuer == "" {
		return DefaultIssuer
	}
	return c.Issuer
}

// Middleware verifies HS256 bearer tokens and stores the subject on the
// request context. Requests without a valid token get 401.
func Middleware(cfg Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if header == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(parts[1], claims,
				func(t *jwt.Token) (interface{}, error) { return cfg.SigningKey, nil },
				jwt.WithValidMethods([]string{"HS256"}),
				jwt.WithIssuer(cfg.issuer()),
				jwt.WithExpirationRequired(),
			)
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			ctx := context.WithValue(c.Request().Context(), SubjectKey, claims.Subject)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// Mint signs a token for subject, valid for ttl.
func Mint(cfg Config, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.issuer(),
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role: "operator",
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(cfg.SigningKey)
}

// SubjectFromContext returns the verified token subject, or "" when the
// request was not authenticated.
func SubjectFromContext(ctx context.Context) string {
	sub, _ := ctx.Value(SubjectKey).(string)
	return sub
}
