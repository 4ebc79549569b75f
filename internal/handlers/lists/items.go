package lists

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/stepline/dance_catalog/internal/httperr"
	mwauth "github.com/stepline/dance_catalog/internal/middleware/auth"
	"github.com/stepline/dance_catalog/internal/models"
)

// AddMove attaches a single move to the list. A move id appears at most once
// per list; a duplicate add is a conflict, not a silent no-op.
func (h *Handler) AddMove(c echo.Context) error {
	list, role, err := h.loadListWithRole(c)
	if err != nil {
		return err
	}
	if !role.CanEdit() {
		return httperr.Forbidden("ACCESS_DENIED", "only the owner or an editor may add moves")
	}

	var req struct {
		MoveID uint `json:"move_id"`
	}
	if err := c.Bind(&req); err != nil || req.MoveID == 0 {
		return httperr.Validation("move_id is required")
	}

	if err := h.moveExists(req.MoveID); err != nil {
		return err
	}

	var existing models.ListMove
	err = h.DB.Where("list_id = ? AND move_id = ?", list.ID, req.MoveID).First(&existing).Error
	if err == nil {
		return httperr.Conflict("move already in list")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return httperr.Internal(err)
	}

	user := mwauth.CurrentUser(c)
	item := models.ListMove{
		ListID:  list.ID,
		MoveID:  req.MoveID,
		AddedBy: user.ID,
	}
	if err := h.DB.Create(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return httperr.Conflict("move already in list")
		}
		return httperr.Internal(err)
	}

	h.publish(c, fmt.Sprint(list.ID), map[string]any{
		"type":   "list_move_added",
		"listID": list.ID,
		"moveID": req.MoveID,
		"userID": user.ID,
	})

	return c.JSON(http.StatusCreated, item)
}

// AddMovesBatch inserts several moves in one transaction. Moves already in the
// list are skipped; if nothing in the batch is new, that is a conflict. Either
// every new move lands or none of them do.
func (h *Handler) AddMovesBatch(c echo.Context) error {
	list, role, err := h.loadListWithRole(c)
	if err != nil {
		return err
	}
	if !role.CanEdit() {
		return httperr.Forbidden("ACCESS_DENIED", "only the owner or an editor may add moves")
	}

	var req struct {
		MoveIDs []uint `json:"move_ids"`
	}
	if err := c.Bind(&req); err != nil || len(req.MoveIDs) == 0 {
		return httperr.Validation("move_ids is required")
	}

	user := mwauth.CurrentUser(c)

	var added []models.ListMove
	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		var present []uint
		if err := tx.Model(&models.ListMove{}).
			Where("list_id = ? AND move_id IN (?)", list.ID, req.MoveIDs).
			Pluck("move_id", &present).Error; err != nil {
			return err
		}

		presentSet := make(map[uint]bool, len(present))
		for _, id := range present {
			presentSet[id] = true
		}

		seen := make(map[uint]bool, len(req.MoveIDs))
		for _, moveID := range req.MoveIDs {
			if moveID == 0 || presentSet[moveID] || seen[moveID] {
				continue
			}
			seen[moveID] = true
			item := models.ListMove{ListID: list.ID, MoveID: moveID, AddedBy: user.ID}
			if err := tx.Create(&item).Error; err != nil {
				return err
			}
			added = append(added, item)
		}

		if len(added) == 0 {
			return httperr.Conflict("all moves already in list")
		}
		return nil
	})
	if txErr != nil {
		if e, ok := httperr.From(txErr); ok {
			return e
		}
		// A concurrent writer can land the same row between the pre-check
		// and the insert; the unique index reports it.
		if errors.Is(txErr, gorm.ErrDuplicatedKey) {
			return httperr.Conflict("move already in list")
		}
		return httperr.Internal(txErr)
	}

	h.publish(c, fmt.Sprint(list.ID), map[string]any{
		"type":   "list_moves_added",
		"listID": list.ID,
		"count":  len(added),
		"userID": user.ID,
	})

	return c.JSON(http.StatusCreated, echo.Map{"added": added})
}

func (h *Handler) RemoveMove(c echo.Context) error {
	list, role, err := h.loadListWithRole(c)
	if err != nil {
		return err
	}
	if !role.CanEdit() {
		return httperr.Forbidden("ACCESS_DENIED", "only the owner or an editor may remove moves")
	}

	moveID, err := strconv.Atoi(c.Param("moveId"))
	if err != nil || moveID <= 0 {
		return httperr.Validation("invalid move id")
	}

	res := h.DB.Where("list_id = ? AND move_id = ?", list.ID, moveID).Delete(&models.ListMove{})
	if res.Error != nil {
		return httperr.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return httperr.NotFound("move not in list")
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "move removed"})
}

func (h *Handler) moveExists(moveID uint) error {
	var move models.Move
	if err := h.DB.First(&move, moveID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httperr.NotFound("move not found")
		}
		return httperr.Internal(err)
	}
	return nil
}
