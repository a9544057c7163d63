package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/anonto42/concordance/backend/internal/models"
	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
)

// ClaimsKey is where the authenticated API caller's claims live in the echo context
const ClaimsKey = "user"

// JWTAuthMiddleware authenticates "Bearer <token>" or "JWT <token>" headers.
// Requests without the header pass through anonymously; a bad token is rejected.
func JWTAuthMiddleware(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return next(c)
			}

			parts := strings.Fields(authHeader)
			if len(parts) != 2 || !isAuthScheme(parts[0]) {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid Authorization header format")
			}

			claims, err := ParseToken(parts[1], secret)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
			}

			c.Set(ClaimsKey, claims)
			return next(c)
		}
	}
}

func isAuthScheme(s string) bool {
	return strings.EqualFold(s, "bearer") || strings.EqualFold(s, "jwt")
}

// ParseToken verifies signature and expiry of a token signed with secret
func ParseToken(tokenString, secret string, opts ...jwt.ParserOption) (*models.JwtCustomClaims, error) {
	claims := &models.JwtCustomClaims{}
	token, err := jwt.NewParser(opts...).ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// ClaimsFromContext returns the caller's claims, or nil for anonymous requests
func ClaimsFromContext(c echo.Context) *models.JwtCustomClaims {
	claims, _ := c.Get(ClaimsKey).(*models.JwtCustomClaims)
	return claims
}

// RequireAuth rejects anonymous callers
func RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if ClaimsFromContext(c) == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Authentication credentials were not provided.")
			}
			return next(c)
		}
	}
}

// ReadOnlyForAnonymous lets anonymous callers use safe methods only
func ReadOnlyForAnonymous() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if isSafeMethod(c.Request().Method) || ClaimsFromContext(c) != nil {
				return next(c)
			}
			return echo.NewHTTPError(http.StatusUnauthorized, "Authentication credentials were not provided.")
		}
	}
}

func isSafeMethod(method string) bool {
	return method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions
}
