package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-seating/internal/model"
	"github.com/iliyamo/restaurant-seating/internal/repository"
)

// getUserID extracts the user_id set by JWTAuth and converts it to uint64.
func getUserID(c echo.Context) (uint64, error) {
	switch t := c.Get("user_id").(type) {
	case uint64:
		return t, nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

// parseOptionalTime reads an RFC 3339 timestamp; empty means nil.
func parseOptionalTime(s, field string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, repository.Validationf("%s must be an RFC 3339 timestamp", field)
	}
	return &t, nil
}

func formatOptional(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

// occupantBody is the occupant reference accepted by every seating call.
type occupantBody struct {
	OccupantType string `json:"occupant_type"`
	OccupantID   uint64 `json:"occupant_id"`
}

func (b occupantBody) ref() (model.OccupantRef, error) {
	kind, err := model.ParseOccupantKind(b.OccupantType)
	if err != nil {
		return model.OccupantRef{}, repository.Validationf("occupant_type must be reservation or waitlist")
	}
	if b.OccupantID == 0 {
		return model.OccupantRef{}, repository.Validationf("occupant_id is required")
	}
	return model.OccupantRef{Kind: kind, ID: b.OccupantID}, nil
}

// writeError maps an error kind to its HTTP status and JSON body.
func writeError(c echo.Context, err error) error {
	body := echo.Map{"error": err.Error()}
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, repository.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, repository.ErrValidation):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, repository.ErrSeatConflict):
		status = http.StatusConflict
		body["conflicts"] = repository.ConflictingSeats(err)
	case errors.Is(err, repository.ErrInsufficientConsecutiveSeats),
		errors.Is(err, repository.ErrInvalidTransition):
		status = http.StatusConflict
	case errors.Is(err, repository.ErrTransient):
		status = http.StatusServiceUnavailable
		body["retryable"] = true
	default:
		c.Logger().Errorf("handler: %s %s: %v", c.Request().Method, c.Path(), err)
		body["error"] = "internal error"
	}
	return c.JSON(status, body)
}
