package lists

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/stepline/dance_catalog/internal/httperr"
	"github.com/stepline/dance_catalog/internal/models"
)

// AddMember grants a non-owner account editor or viewer access.
func (h *Handler) AddMember(c echo.Context) error {
	list, role, err := h.loadListWithRole(c)
	if err != nil {
		return err
	}
	if !role.CanEdit() {
		return httperr.Forbidden("ACCESS_DENIED", "only the owner or an editor may manage members")
	}

	var req struct {
		UserID uint   `json:"user_id"`
		Role   string `json:"role"`
	}
	if err := c.Bind(&req); err != nil || req.UserID == 0 {
		return httperr.Validation("user_id is required")
	}
	if req.Role != models.RoleEditorMember && req.Role != models.RoleViewerMember {
		return httperr.Validation("role must be editor or viewer")
	}
	if req.UserID == list.OwnerID {
		return httperr.Validation("the owner cannot be added as a member")
	}

	var target models.User
	if err := h.DB.Where("id = ? AND is_active = ?", req.UserID, true).First(&target).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httperr.NotFound("user not found")
		}
		return httperr.Internal(err)
	}

	var existing models.ListMember
	err = h.DB.Where("list_id = ? AND user_id = ?", list.ID, req.UserID).First(&existing).Error
	if err == nil {
		return httperr.Conflict("user is already a member")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return httperr.Internal(err)
	}

	member := models.ListMember{
		ListID: list.ID,
		UserID: req.UserID,
		Role:   req.Role,
	}
	if err := h.DB.Create(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return httperr.Conflict("user is already a member")
		}
		return httperr.Internal(err)
	}

	return c.JSON(http.StatusCreated, member)
}

func (h *Handler) RemoveMember(c echo.Context) error {
	list, role, err := h.loadListWithRole(c)
	if err != nil {
		return err
	}
	if !role.CanEdit() {
		return httperr.Forbidden("ACCESS_DENIED", "only the owner or an editor may manage members")
	}

	userID, err := strconv.Atoi(c.Param("userId"))
	if err != nil || userID <= 0 {
		return httperr.Validation("invalid user id")
	}

	res := h.DB.Where("list_id = ? AND user_id = ?", list.ID, userID).Delete(&models.ListMember{})
	if res.Error != nil {
		return httperr.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return httperr.NotFound("member not found")
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "member removed"})
}
