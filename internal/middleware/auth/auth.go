package auth

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/stepline/dance_catalog/internal/httperr"
	"github.com/stepline/dance_catalog/internal/logging"
	"github.com/stepline/dance_catalog/internal/models"
	"github.com/stepline/dance_catalog/internal/tokens"
)

const (
	accountKey = "account"
	claimsKey  = "claims"
)

type Middleware struct {
	DB        *gorm.DB
	JWTSecret []byte
}

// BearerToken extracts the token from the Authorization header. Any other
// scheme or a malformed header counts as absent.
func BearerToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// RequireAuth verifies the bearer token, loads the active account and attaches
// both to the request context.
func (m *Middleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw := BearerToken(c)
		if raw == "" {
			return httperr.Authentication("MISSING_TOKEN", "missing bearer token")
		}

		claims, err := tokens.ParseAccessToken(raw, m.JWTSecret)
		if err != nil {
			return httperr.Authentication("AUTH_ERROR", "invalid token: "+err.Error())
		}

		user, err := m.loadActiveUser(claims.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return httperr.Authentication("USER_NOT_FOUND", "user not found")
			}
			return httperr.Internal(err)
		}

		c.Set(accountKey, user)
		c.Set(claimsKey, claims)

		logging.FromContext(c.Request().Context()).Info("authenticated request",
			"method", c.Request().Method,
			"path", c.Path(),
			"user", user.Username,
			"remote_ip", c.RealIP(),
		)

		return next(c)
	}
}

// RequireRole composes after RequireAuth. Admins always pass.
func (m *Middleware) RequireRole(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := CurrentUser(c)
			if user == nil {
				return httperr.Authentication("MISSING_TOKEN", "missing bearer token")
			}
			if user.Role != role && user.Role != models.RoleAdmin {
				return httperr.Authorization("insufficient role")
			}
			return next(c)
		}
	}
}

// OptionalAuth performs the same extraction and verification but proceeds
// anonymously on any failure.
func (m *Middleware) OptionalAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw := BearerToken(c)
		if raw == "" {
			return next(c)
		}

		claims, err := tokens.ParseAccessToken(raw, m.JWTSecret)
		if err != nil {
			return next(c)
		}

		user, err := m.loadActiveUser(claims.UserID)
		if err != nil {
			return next(c)
		}

		c.Set(accountKey, user)
		c.Set(claimsKey, claims)
		return next(c)
	}
}

func (m *Middleware) loadActiveUser(id uint) (*models.User, error) {
	var user models.User
	if err := m.DB.Where("id = ? AND is_active = ?", id, true).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func CurrentUser(c echo.Context) *models.User {
	if v, ok := c.Get(accountKey).(*models.User); ok {
		return v
	}
	return nil
}

func CurrentClaims(c echo.Context) *tokens.AccessClaims {
	if v, ok := c.Get(claimsKey).(*tokens.AccessClaims); ok {
		return v
	}
	return nil
}
