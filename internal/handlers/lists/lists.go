package lists

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/stepline/dance_catalog/internal/authz"
	"github.com/stepline/dance_catalog/internal/events"
	"github.com/stepline/dance_catalog/internal/httperr"
	"github.com/stepline/dance_catalog/internal/logging"
	mwauth "github.com/stepline/dance_catalog/internal/middleware/auth"
	"github.com/stepline/dance_catalog/internal/models"
	"github.com/stepline/dance_catalog/internal/util"
)

type Handler struct {
	DB       *gorm.DB
	Producer *events.Producer
}

func (h *Handler) publish(c echo.Context, key string, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, events.TopicListEvents, key, event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka publish failed", "error", err)
	}
}

// loadListWithRole fetches the list plus the caller's membership row and
// resolves the effective role through one shared function, so the
// owner/editor/viewer/public tie-break is identical in every handler.
func (h *Handler) loadListWithRole(c echo.Context) (*models.List, authz.Role, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return nil, authz.RoleNone, httperr.Validation("invalid list id")
	}

	var list models.List
	if err := h.DB.First(&list, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, authz.RoleNone, httperr.NotFound("list not found")
		}
		return nil, authz.RoleNone, httperr.Internal(err)
	}

	var callerID uint
	if user := mwauth.CurrentUser(c); user != nil {
		callerID = user.ID
	}

	var membership *models.ListMember
	if callerID != 0 && callerID != list.OwnerID {
		var row models.ListMember
		err := h.DB.Where("list_id = ? AND user_id = ?", list.ID, callerID).First(&row).Error
		switch {
		case err == nil:
			membership = &row
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, authz.RoleNone, httperr.Internal(err)
		}
	}

	return &list, authz.EffectiveRole(callerID, &list, membership), nil
}

func (h *Handler) Create(c echo.Context) error {
	user := mwauth.CurrentUser(c)

	var req struct {
		Name       string `json:"name"`
		Visibility string `json:"visibility"`
	}
	if err := c.Bind(&req); err != nil {
		return httperr.Validation("invalid request body")
	}
	if req.Name == "" {
		return httperr.Validation("list name is required")
	}
	if req.Visibility == "" {
		req.Visibility = models.VisibilityPrivate
	}
	switch req.Visibility {
	case models.VisibilityPrivate, models.VisibilityShared, models.VisibilityPublic:
	default:
		return httperr.Validation("visibility must be private, shared or public")
	}

	var existing models.List
	err := h.DB.Where("owner_id = ? AND name = ?", user.ID, req.Name).First(&existing).Error
	if err == nil {
		return httperr.Conflict("a list with this name already exists")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return httperr.Internal(err)
	}

	list := models.List{
		OwnerID:    user.ID,
		Name:       req.Name,
		Visibility: req.Visibility,
	}
	if list.Visibility == models.VisibilityShared {
		list.ShareToken = uuid.NewString()
	}

	if err := h.DB.Create(&list).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return httperr.Conflict("a list with this name already exists")
		}
		return httperr.Internal(err)
	}

	h.publish(c, fmt.Sprint(list.ID), map[string]any{
		"type":   "list_created",
		"listID": list.ID,
		"userID": user.ID,
	})

	return c.JSON(http.StatusCreated, list)
}

// Index returns lists the caller owns, is a member of, or that are public.
func (h *Handler) Index(c echo.Context) error {
	user := mwauth.CurrentUser(c)

	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	memberOf := h.DB.Model(&models.ListMember{}).Select("list_id").Where("user_id = ?", user.ID)
	visible := func() *gorm.DB {
		return h.DB.Model(&models.List{}).Where(
			h.DB.Where("owner_id = ?", user.ID).
				Or("visibility = ?", models.VisibilityPublic).
				Or("id IN (?)", memberOf),
		)
	}

	var total int64
	if err := visible().Count(&total).Error; err != nil {
		return httperr.Internal(err)
	}

	var lists []models.List
	if err := visible().Order("id ASC").Offset(offset).Limit(limit).Find(&lists).Error; err != nil {
		return httperr.Internal(err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"data": lists,
		"meta": echo.Map{"page": page, "size": limit, "total": total},
	})
}

func (h *Handler) Get(c echo.Context) error {
	list, role, err := h.loadListWithRole(c)
	if err != nil {
		return err
	}
	if !role.CanRead() {
		return httperr.Forbidden("ACCESS_DENIED", "you do not have access to this list")
	}

	var moves []models.ListMove
	if err := h.DB.Where("list_id = ?", list.ID).Order("added_at ASC").Find(&moves).Error; err != nil {
		return httperr.Internal(err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"list":  list,
		"moves": moves,
		"role":  role,
	})
}

func (h *Handler) Update(c echo.Context) error {
	list, role, err := h.loadListWithRole(c)
	if err != nil {
		return err
	}
	if !role.CanEdit() {
		return httperr.Forbidden("ACCESS_DENIED", "only the owner or an editor may change this list")
	}

	var req struct {
		Name       string `json:"name"`
		Visibility string `json:"visibility"`
	}
	if err := c.Bind(&req); err != nil {
		return httperr.Validation("invalid request body")
	}

	if req.Name != "" && req.Name != list.Name {
		var existing models.List
		err := h.DB.Where("owner_id = ? AND name = ? AND id <> ?", list.OwnerID, req.Name, list.ID).First(&existing).Error
		if err == nil {
			return httperr.Conflict("a list with this name already exists")
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return httperr.Internal(err)
		}
		list.Name = req.Name
	}

	if req.Visibility != "" {
		switch req.Visibility {
		case models.VisibilityPrivate, models.VisibilityShared, models.VisibilityPublic:
		default:
			return httperr.Validation("visibility must be private, shared or public")
		}
		list.Visibility = req.Visibility
		switch {
		case list.Visibility == models.VisibilityShared && list.ShareToken == "":
			list.ShareToken = uuid.NewString()
		case list.Visibility == models.VisibilityPrivate:
			// Going private revokes the link; re-sharing mints a fresh token.
			list.ShareToken = ""
		}
	}

	if err := h.DB.Save(list).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return httperr.Conflict("a list with this name already exists")
		}
		return httperr.Internal(err)
	}

	return c.JSON(http.StatusOK, list)
}

// Delete removes the list and cascades to its saved moves and memberships.
// Editors are not enough here: only the owner or a global admin.
func (h *Handler) Delete(c echo.Context) error {
	list, role, err := h.loadListWithRole(c)
	if err != nil {
		return err
	}

	user := mwauth.CurrentUser(c)
	if role != authz.RoleOwner && user.Role != models.RoleAdmin {
		return httperr.Forbidden("ACCESS_DENIED", "only the owner may delete this list")
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("list_id = ?", list.ID).Delete(&models.ListMove{}).Error; err != nil {
			return err
		}
		if err := tx.Where("list_id = ?", list.ID).Delete(&models.ListMember{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.List{}, list.ID).Error
	})
	if err != nil {
		return httperr.Internal(err)
	}

	h.publish(c, fmt.Sprint(list.ID), map[string]any{
		"type":   "list_deleted",
		"listID": list.ID,
		"userID": user.ID,
	})

	return c.JSON(http.StatusOK, echo.Map{"message": "list deleted"})
}

// GetShared resolves a list by its share token, no authentication required.
func (h *Handler) GetShared(c echo.Context) error {
	token := c.Param("token")
	if token == "" {
		return httperr.Validation("missing share token")
	}

	var list models.List
	if err := h.DB.Where("share_token = ?", token).First(&list).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httperr.NotFound("list not found")
		}
		return httperr.Internal(err)
	}

	var moves []models.ListMove
	if err := h.DB.Where("list_id = ?", list.ID).Order("added_at ASC").Find(&moves).Error; err != nil {
		return httperr.Internal(err)
	}

	return c.JSON(http.StatusOK, echo.Map{"list": list, "moves": moves})
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}
