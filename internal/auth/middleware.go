package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/agentchat/pkg/models"
)

// userContextKey is the echo context key holding the resolved user
const userContextKey = "auth.user"

// Identify is middleware that resolves the requesting user. With a valid
// bearer token the token's user is attached; without one, open mode falls
// back to the first admin account and the stricter modes reject.
func Identify(policy Policy, tokens *TokenService, users UserStore) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader != "" {
				parts := strings.Split(authHeader, " ")
				if len(parts) != 2 || parts[0] != "Bearer" {
					return echo.NewHTTPError(http.StatusUnauthorized, "Invalid authorization header format")
				}

				claims, err := tokens.ValidateToken(parts[1])
				if err != nil {
					return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
				}

				user, err := users.Get(c.Request().Context(), claims.UserID)
				if err != nil || !user.IsActive {
					return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
				}

				c.Set(userContextKey, user)
				return next(c)
			}

			if policy.Mode != ModeOpen {
				return echo.NewHTTPError(http.StatusUnauthorized, "Authorization header required")
			}

			// Open mode: anonymous requests act as the first admin
			user, err := users.FirstAdmin(c.Request().Context())
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "No default admin account configured")
			}
			c.Set(userContextKey, user)
			return next(c)
		}
	}
}

// CurrentUser returns the user resolved by Identify, or nil
func CurrentUser(c echo.Context) *models.User {
	user, _ := c.Get(userContextKey).(*models.User)
	return user
}

// Require checks the policy for the current user and maps authorization
// failures to HTTP errors
func Require(c echo.Context, policy Policy, adminOnly bool) (*models.User, error) {
	user := CurrentUser(c)
	switch err := policy.Check(user, adminOnly); err {
	case nil:
		return user, nil
	case ErrUnauthenticated:
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
	default:
		return nil, echo.NewHTTPError(http.StatusForbidden, "Permission denied")
	}
}
