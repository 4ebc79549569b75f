package moves

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/stepline/dance_catalog/internal/es"
	"github.com/stepline/dance_catalog/internal/httperr"
	"github.com/stepline/dance_catalog/internal/logging"
	mwauth "github.com/stepline/dance_catalog/internal/middleware/auth"
	"github.com/stepline/dance_catalog/internal/models"
	"github.com/stepline/dance_catalog/internal/service/search"
	"github.com/stepline/dance_catalog/internal/util"
)

// Handler serves the move catalog. Reads are public; mutations are gated on
// the teacher role (admins pass).
type Handler struct {
	DB *gorm.DB
	ES *elasticsearch.Client
}

func (h *Handler) index(c echo.Context, move *models.Move) {
	if h.ES == nil {
		return
	}
	if err := search.IndexMove(c.Request().Context(), h.ES, es.MovesIndex, move); err != nil {
		logging.FromContext(c.Request().Context()).Error("elasticsearch index failed", "move_id", move.ID, "error", err)
	}
}

func (h *Handler) Get(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return httperr.Validation("invalid move id")
	}

	var move models.Move
	if err := h.DB.First(&move, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httperr.NotFound("move not found")
		}
		return httperr.Internal(err)
	}

	return c.JSON(http.StatusOK, move)
}

func (h *Handler) Index(c echo.Context) error {
	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	query := h.DB.Model(&models.Move{})
	if style := c.QueryParam("style"); style != "" {
		query = query.Where("style = ?", style)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return httperr.Internal(err)
	}

	var items []models.Move
	if err := query.Order("id ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return httperr.Internal(err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"data": items,
		"meta": echo.Map{
			"page":        page,
			"size":        limit,
			"total":       total,
			"total_pages": (total + int64(limit) - 1) / int64(limit),
		},
	})
}

func (h *Handler) Create(c echo.Context) error {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Style       string `json:"style"`
		Difficulty  string `json:"difficulty"`
		GifURL      string `json:"gif_url"`
	}
	if err := c.Bind(&req); err != nil {
		return httperr.Validation("invalid request body")
	}
	if req.Name == "" {
		return httperr.Validation("move name is required")
	}

	user := mwauth.CurrentUser(c)
	move := models.Move{
		Name:        req.Name,
		Description: req.Description,
		Style:       req.Style,
		Difficulty:  req.Difficulty,
		GifURL:      req.GifURL,
		CreatedBy:   user.ID,
	}
	if err := h.DB.Create(&move).Error; err != nil {
		return httperr.Internal(err)
	}

	h.index(c, &move)

	return c.JSON(http.StatusCreated, move)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return httperr.Validation("invalid move id")
	}

	var move models.Move
	if err := h.DB.First(&move, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httperr.NotFound("move not found")
		}
		return httperr.Internal(err)
	}

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Style       string `json:"style"`
		Difficulty  string `json:"difficulty"`
		GifURL      string `json:"gif_url"`
	}
	if err := c.Bind(&req); err != nil {
		return httperr.Validation("invalid request body")
	}

	if req.Name != "" {
		move.Name = req.Name
	}
	if req.Description != "" {
		move.Description = req.Description
	}
	if req.Style != "" {
		move.Style = req.Style
	}
	if req.Difficulty != "" {
		move.Difficulty = req.Difficulty
	}
	if req.GifURL != "" {
		move.GifURL = req.GifURL
	}

	if err := h.DB.Save(&move).Error; err != nil {
		return httperr.Internal(err)
	}

	h.index(c, &move)

	return c.JSON(http.StatusOK, move)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return httperr.Validation("invalid move id")
	}

	res := h.DB.Delete(&models.Move{}, id)
	if res.Error != nil {
		return httperr.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return httperr.NotFound("move not found")
	}

	if h.ES != nil {
		if err := search.DeleteMove(c.Request().Context(), h.ES, es.MovesIndex, uint(id)); err != nil {
			logging.FromContext(c.Request().Context()).Error("elasticsearch delete failed", "move_id", id, "error", err)
		}
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "move deleted"})
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
