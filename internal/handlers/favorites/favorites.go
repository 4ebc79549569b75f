package favorites

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/stepline/dance_catalog/internal/httperr"
	mwauth "github.com/stepline/dance_catalog/internal/middleware/auth"
	"github.com/stepline/dance_catalog/internal/models"
)

type Handler struct {
	DB *gorm.DB
}

func (h *Handler) Index(c echo.Context) error {
	user := mwauth.CurrentUser(c)

	var favorites []models.Favorite
	if err := h.DB.Where("user_id = ?", user.ID).Order("created_at DESC").Find(&favorites).Error; err != nil {
		return httperr.Internal(err)
	}

	return c.JSON(http.StatusOK, favorites)
}

func (h *Handler) Add(c echo.Context) error {
	user := mwauth.CurrentUser(c)

	var req struct {
		MoveID uint `json:"move_id"`
	}
	if err := c.Bind(&req); err != nil || req.MoveID == 0 {
		return httperr.Validation("move_id is required")
	}

	var move models.Move
	if err := h.DB.First(&move, req.MoveID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httperr.NotFound("move not found")
		}
		return httperr.Internal(err)
	}

	var existing models.Favorite
	err := h.DB.Where("user_id = ? AND move_id = ?", user.ID, req.MoveID).First(&existing).Error
	if err == nil {
		return httperr.Conflict("move already in favorites")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return httperr.Internal(err)
	}

	favorite := models.Favorite{UserID: user.ID, MoveID: req.MoveID}
	if err := h.DB.Create(&favorite).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return httperr.Conflict("move already in favorites")
		}
		return httperr.Internal(err)
	}

	return c.JSON(http.StatusCreated, favorite)
}

func (h *Handler) Remove(c echo.Context) error {
	user := mwauth.CurrentUser(c)

	moveID, err := strconv.Atoi(c.Param("moveId"))
	if err != nil || moveID <= 0 {
		return httperr.Validation("invalid move id")
	}

	res := h.DB.Where("user_id = ? AND move_id = ?", user.ID, moveID).Delete(&models.Favorite{})
	if res.Error != nil {
		return httperr.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return httperr.NotFound("favorite not found")
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "favorite removed"})
}
