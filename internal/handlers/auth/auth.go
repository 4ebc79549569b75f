package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/stepline/dance_catalog/internal/events"
	"github.com/stepline/dance_catalog/internal/hash"
	"github.com/stepline/dance_catalog/internal/httperr"
	"github.com/stepline/dance_catalog/internal/logging"
	mwauth "github.com/stepline/dance_catalog/internal/middleware/auth"
	"github.com/stepline/dance_catalog/internal/models"
	"github.com/stepline/dance_catalog/internal/tokens"
)

type Handler struct {
	DB            *gorm.DB
	JWTSecret     []byte
	RefreshSecret []byte
	Producer      *events.Producer

	// SecureCookies is off in permissive-CORS (development) deployments.
	SecureCookies bool
}

func (h *Handler) publish(c echo.Context, key string, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, events.TopicUserEvents, key, event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka publish failed", "error", err)
	}
}

func (h *Handler) Register(c echo.Context) error {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return httperr.Validation("invalid request body")
	}

	var issues []string
	issues = append(issues, validateUsername(req.Username)...)
	issues = append(issues, validateEmail(req.Email)...)
	issues = append(issues, validatePassword(req.Password)...)
	if len(issues) > 0 {
		return httperr.Validation("registration failed", issues...)
	}

	// Fast-path check for a friendlier message; the unique indexes are the
	// authoritative enforcement and the ErrDuplicatedKey branch below is the
	// backstop for races.
	var existing models.User
	err := h.DB.Where("email = ? OR username = ?", req.Email, req.Username).First(&existing).Error
	if err == nil {
		return httperr.Conflict("email or username already taken")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return httperr.Internal(err)
	}

	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		return httperr.Internal(err)
	}

	user := models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: pwHash,
		Role:         models.RoleUser,
		IsActive:     true,
	}
	if err := h.DB.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return httperr.Conflict("email or username already taken")
		}
		return httperr.Internal(err)
	}

	access, refresh, err := h.issueTokens(&user)
	if err != nil {
		return httperr.Internal(err)
	}

	c.SetCookie(accessCookie(access, h.SecureCookies))

	h.publish(c, fmt.Sprint(user.ID), map[string]any{
		"type":     "user_registered",
		"userID":   user.ID,
		"username": user.Username,
	})

	return c.JSON(http.StatusCreated, echo.Map{
		"access_token":  access,
		"refresh_token": refresh,
		"user":          user,
	})
}

func (h *Handler) Login(c echo.Context) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return httperr.Validation("invalid request body")
	}

	// The same generic response for an unknown email and a wrong password, so
	// the endpoint cannot be used to enumerate accounts.
	invalid := httperr.Authentication("AUTH_ERROR", "incorrect email or password")

	var user models.User
	if err := h.DB.Where("email = ? AND is_active = ?", req.Email, true).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return invalid
		}
		return httperr.Internal(err)
	}

	if !hash.CheckPassword(user.PasswordHash, req.Password) {
		return invalid
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := h.DB.Model(&user).Update("last_login_at", now).Error; err != nil {
		return httperr.Internal(err)
	}

	access, refresh, err := h.issueTokens(&user)
	if err != nil {
		return httperr.Internal(err)
	}

	c.SetCookie(accessCookie(access, h.SecureCookies))

	h.publish(c, fmt.Sprint(user.ID), map[string]any{
		"type":     "user_logged_in",
		"userID":   user.ID,
		"username": user.Username,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"access_token":  access,
		"refresh_token": refresh,
		"user":          user,
	})
}

func (h *Handler) Refresh(c echo.Context) error {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
		return httperr.Authentication("AUTH_ERROR", "refresh token required")
	}

	claims, err := tokens.ParseRefreshToken(req.RefreshToken, h.RefreshSecret)
	if err != nil {
		return httperr.Authentication("AUTH_ERROR", "invalid refresh token: "+err.Error())
	}
	if claims.UserID == 0 {
		return httperr.Authentication("AUTH_ERROR", "invalid refresh token: missing subject")
	}

	var user models.User
	if err := h.DB.Where("id = ? AND is_active = ?", claims.UserID, true).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httperr.Authentication("USER_NOT_FOUND", "user not found")
		}
		return httperr.Internal(err)
	}

	// The refresh token is not rotated; only a fresh access token is issued.
	access, err := tokens.NewAccessToken(&user, h.JWTSecret)
	if err != nil {
		return httperr.Internal(err)
	}

	return c.JSON(http.StatusOK, echo.Map{"access_token": access})
}

func (h *Handler) Logout(c echo.Context) error {
	// Stateless: tokens stay valid until natural expiry, only the cookie goes.
	c.SetCookie(clearCookie(h.SecureCookies))
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

func (h *Handler) Me(c echo.Context) error {
	raw := mwauth.BearerToken(c)
	if raw == "" {
		return httperr.Authentication("MISSING_TOKEN", "missing bearer token")
	}

	claims, err := tokens.ParseAccessToken(raw, h.JWTSecret)
	if err != nil {
		return httperr.Authentication("AUTH_ERROR", "invalid token: "+err.Error())
	}

	var user models.User
	if err := h.DB.Where("id = ? AND is_active = ?", claims.UserID, true).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httperr.Authentication("USER_NOT_FOUND", "user not found")
		}
		return httperr.Internal(err)
	}

	return c.JSON(http.StatusOK, echo.Map{"user": user})
}

func (h *Handler) issueTokens(user *models.User) (access, refresh string, err error) {
	access, err = tokens.NewAccessToken(user, h.JWTSecret)
	if err != nil {
		return "", "", err
	}
	refresh, err = tokens.NewRefreshToken(user, h.RefreshSecret)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}
