package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-seating/internal/model"
	"github.com/iliyamo/restaurant-seating/internal/repository"
)

// OccupantHandler is booking intake: it records reservations and walk-ins
// so the seating core has occupants to act on.
type OccupantHandler struct {
	occupants *repository.OccupantRepo
}

// NewOccupantHandler panics if occupants is nil.
func NewOccupantHandler(occupants *repository.OccupantRepo) *OccupantHandler {
	if occupants == nil {
		panic("nil repository passed to NewOccupantHandler")
	}
	return &OccupantHandler{occupants: occupants}
}

type reservationResponse struct {
	ID              uint64  `json:"id"`
	StartTime       string  `json:"start_time"`
	EndTime         *string `json:"end_time"`
	PartySize       int     `json:"party_size"`
	ContactName     string  `json:"contact_name"`
	ContactPhone    string  `json:"contact_phone,omitempty"`
	ContactEmail    string  `json:"contact_email,omitempty"`
	SpecialRequests string  `json:"special_requests,omitempty"`
	Status          string  `json:"status"`
	CreatedAt       string  `json:"created_at"`
}

func toReservationResponse(r *model.Reservation) reservationResponse {
	return reservationResponse{
		ID:              r.ID,
		StartTime:       r.StartTime.UTC().Format(time.RFC3339),
		EndTime:         formatOptional(r.EndTime),
		PartySize:       r.PartySize,
		ContactName:     r.ContactName,
		ContactPhone:    r.ContactPhone,
		ContactEmail:    r.ContactEmail,
		SpecialRequests: r.SpecialRequests,
		Status:          string(r.Status),
		CreatedAt:       r.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type waitlistResponse struct {
	ID           uint64 `json:"id"`
	PartySize    int    `json:"party_size"`
	ContactName  string `json:"contact_name"`
	ContactPhone string `json:"contact_phone,omitempty"`
	CheckInTime  string `json:"check_in_time"`
	Status       string `json:"status"`
}

func toWaitlistResponse(w *model.WaitlistEntry) waitlistResponse {
	return waitlistResponse{
		ID:           w.ID,
		PartySize:    w.PartySize,
		ContactName:  w.ContactName,
		ContactPhone: w.ContactPhone,
		CheckInTime:  w.CheckInTime.UTC().Format(time.RFC3339),
		Status:       string(w.Status),
	}
}

// CreateReservation handles POST /v1/reservations.
func (h *OccupantHandler) CreateReservation(c echo.Context) error {
	var body struct {
		StartTime       string `json:"start_time"`
		EndTime         string `json:"end_time"`
		PartySize       int    `json:"party_size"`
		ContactName     string `json:"contact_name"`
		ContactPhone    string `json:"contact_phone"`
		ContactEmail    string `json:"contact_email"`
		SpecialRequests string `json:"special_requests"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	start, err := parseOptionalTime(body.StartTime, "start_time")
	if err != nil {
		return writeError(c, err)
	}
	if start == nil {
		return writeError(c, repository.Validationf("start_time is required"))
	}
	end, err := parseOptionalTime(body.EndTime, "end_time")
	if err != nil {
		return writeError(c, err)
	}
	res := &model.Reservation{
		StartTime:       *start,
		EndTime:         end,
		PartySize:       body.PartySize,
		ContactName:     body.ContactName,
		ContactPhone:    body.ContactPhone,
		ContactEmail:    body.ContactEmail,
		SpecialRequests: body.SpecialRequests,
	}
	if err := h.occupants.CreateReservation(c.Request().Context(), res); err != nil {
		return writeError(c, repository.Classify(err))
	}
	return c.JSON(http.StatusCreated, toReservationResponse(res))
}

// GetReservation handles GET /v1/reservations/:id.
func (h *OccupantHandler) GetReservation(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	res, err := h.occupants.GetReservation(c.Request().Context(), id)
	if err != nil {
		return writeError(c, repository.Classify(err))
	}
	return c.JSON(http.StatusOK, toReservationResponse(res))
}

// CreateWaitlistEntry handles POST /v1/waitlist.
func (h *OccupantHandler) CreateWaitlistEntry(c echo.Context) error {
	var body struct {
		PartySize    int    `json:"party_size"`
		ContactName  string `json:"contact_name"`
		ContactPhone string `json:"contact_phone"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	w := &model.WaitlistEntry{PartySize: body.PartySize, ContactName: body.ContactName, ContactPhone: body.ContactPhone}
	if err := h.occupants.CreateWaitlistEntry(c.Request().Context(), w); err != nil {
		return writeError(c, repository.Classify(err))
	}
	return c.JSON(http.StatusCreated, toWaitlistResponse(w))
}

// GetWaitlistEntry handles GET /v1/waitlist/:id.
func (h *OccupantHandler) GetWaitlistEntry(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid waitlist id"})
	}
	w, err := h.occupants.GetWaitlistEntry(c.Request().Context(), id)
	if err != nil {
		return writeError(c, repository.Classify(err))
	}
	return c.JSON(http.StatusOK, toWaitlistResponse(w))
}

// ListWaitlist handles GET /v1/waitlist: parties still waiting, oldest
// check-in first.
func (h *OccupantHandler) ListWaitlist(c echo.Context) error {
	entries, err := h.occupants.ListWaiting(c.Request().Context())
	if err != nil {
		return writeError(c, repository.Classify(err))
	}
	out := make([]waitlistResponse, 0, len(entries))
	for i := range entries {
		out = append(out, toWaitlistResponse(&entries[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}
