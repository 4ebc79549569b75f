package searchhdl

import (
	"net/http"
	"strconv"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"

	"github.com/stepline/dance_catalog/internal/httperr"
	"github.com/stepline/dance_catalog/internal/service/search"
	"github.com/stepline/dance_catalog/internal/util"
)

type Handler struct {
	ES    *elasticsearch.Client
	Index string
}

func (h *Handler) Search(c echo.Context) error {
	if h.ES == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "search is not configured")
	}

	q := c.QueryParam("q")
	if q == "" {
		return httperr.Validation("query parameter q is required")
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("size"))
	from, size := util.Calculate(page, size)

	total, moves, err := search.Search(c.Request().Context(), h.ES, h.Index, q, from, size)
	if err != nil {
		return httperr.Internal(err)
	}

	return c.JSON(http.StatusOK, echo.Map{"total": total, "moves": moves})
}
