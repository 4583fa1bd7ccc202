package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-seating/internal/repository"
	"github.com/iliyamo/restaurant-seating/internal/service"
)

// AvailabilityHandler answers public availability lookups.
type AvailabilityHandler struct {
	calc *service.Calculator
}

// NewAvailabilityHandler panics if calc is nil.
func NewAvailabilityHandler(calc *service.Calculator) *AvailabilityHandler {
	if calc == nil {
		panic("nil calculator passed to NewAvailabilityHandler")
	}
	return &AvailabilityHandler{calc: calc}
}

// GetAvailability handles GET /v1/availability?date=YYYY-MM-DD&party_size=N
// and returns the open start times in venue local time.
func (h *AvailabilityHandler) GetAvailability(c echo.Context) error {
	date := c.QueryParam("date")
	size, err := strconv.Atoi(c.QueryParam("party_size"))
	if err != nil {
		return writeError(c, repository.Validationf("party_size must be a number"))
	}
	slots, err := h.calc.AvailableSlots(c.Request().Context(), date, size)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"date": date, "party_size": size, "slots": slots})
}
