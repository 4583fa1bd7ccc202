package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-seating/internal/model"
	"github.com/iliyamo/restaurant-seating/internal/repository"
)

// SeatHandler serves the seat inventory.  Listing is public; changes are
// for admins.
type SeatHandler struct {
	seats  *repository.SeatRepo
	claims *repository.AllocationRepo
	now    func() time.Time
}

// NewSeatHandler panics if any repository is nil.
func NewSeatHandler(seats *repository.SeatRepo, claims *repository.AllocationRepo) *SeatHandler {
	if seats == nil || claims == nil {
		panic("nil repository passed to NewSeatHandler")
	}
	return &SeatHandler{seats: seats, claims: claims, now: time.Now}
}

type seatResponse struct {
	ID          uint64 `json:"id"`
	Label       string `json:"label"`
	Capacity    uint32 `json:"capacity"`
	IsActive    bool   `json:"is_active"`
	OccupiedNow *bool  `json:"occupied_now,omitempty"`
	SectionID   uint64 `json:"section_id"`
}

type sectionResponse struct {
	ID          uint64         `json:"id"`
	Name        string         `json:"name"`
	SectionType string         `json:"section_type"`
	Seats       []seatResponse `json:"seats"`
}

// ListSeats handles GET /v1/seats.  It returns active seats grouped by
// section, each flagged occupied_now when an active claim covers the
// current instant.  The flag is read from the ledger on every call, so
// this route must not sit behind the response cache.
func (h *SeatHandler) ListSeats(c echo.Context) error { return h.list(c, true) }

// ListLayout handles GET /v1/seat-sections: the same grouping as ListSeats
// without occupancy, so it only changes when the layout does.
func (h *SeatHandler) ListLayout(c echo.Context) error { return h.list(c, false) }

func (h *SeatHandler) list(c echo.Context, occupancy bool) error {
	ctx := c.Request().Context()
	sections, err := h.seats.ListSections(ctx)
	if err != nil {
		return writeError(c, repository.Classify(err))
	}
	seats, err := h.seats.ListActive(ctx)
	if err != nil {
		return writeError(c, repository.Classify(err))
	}
	var occupied map[uint64]bool
	if occupancy {
		occupied, err = h.claims.OccupiedSeatIDs(ctx, h.now())
		if err != nil {
			return writeError(c, repository.Classify(err))
		}
	}

	out := make([]sectionResponse, 0, len(sections))
	index := make(map[uint64]int, len(sections))
	for _, s := range sections {
		index[s.ID] = len(out)
		out = append(out, sectionResponse{ID: s.ID, Name: s.Name, SectionType: s.SectionType, Seats: []seatResponse{}})
	}
	for _, s := range seats {
		i, ok := index[s.SectionID]
		if !ok {
			continue
		}
		r := toSeatResponse(s)
		if occupancy {
			busy := occupied[s.ID]
			r.OccupiedNow = &busy
		}
		out[i].Seats = append(out[i].Seats, r)
	}
	return c.JSON(http.StatusOK, echo.Map{"sections": out})
}

func toSeatResponse(s model.Seat) seatResponse {
	return seatResponse{
		ID:        s.ID,
		Label:     s.Label,
		Capacity:  s.Capacity,
		IsActive:  s.IsActive,
		SectionID: s.SectionID,
	}
}

// CreateSection handles POST /v1/seat-sections.
func (h *SeatHandler) CreateSection(c echo.Context) error {
	var body struct {
		Name        string `json:"name"`
		SectionType string `json:"section_type"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	name := strings.TrimSpace(body.Name)
	if name == "" {
		return writeError(c, repository.Validationf("name is required"))
	}
	s := model.SeatSection{Name: name, SectionType: strings.ToLower(strings.TrimSpace(body.SectionType))}
	if s.SectionType == "" {
		s.SectionType = "counter"
	}
	if err := h.seats.CreateSection(c.Request().Context(), &s); err != nil {
		return writeError(c, repository.Classify(err))
	}
	return c.JSON(http.StatusCreated, sectionResponse{ID: s.ID, Name: s.Name, SectionType: s.SectionType, Seats: []seatResponse{}})
}

// CreateSeat handles POST /v1/seats.  Capacity defaults to one.
func (h *SeatHandler) CreateSeat(c echo.Context) error {
	var body struct {
		SectionID uint64  `json:"section_id"`
		Label     string  `json:"label"`
		Capacity  *uint32 `json:"capacity"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.SectionID == 0 {
		return writeError(c, repository.Validationf("section_id is required"))
	}
	label := strings.ToUpper(strings.TrimSpace(body.Label))
	if label == "" {
		return writeError(c, repository.Validationf("label is required"))
	}
	capacity := uint32(1)
	if body.Capacity != nil {
		capacity = *body.Capacity
	}
	ctx := c.Request().Context()
	sections, err := h.seats.ListSections(ctx)
	if err != nil {
		return writeError(c, repository.Classify(err))
	}
	found := false
	for _, s := range sections {
		found = found || s.ID == body.SectionID
	}
	if !found {
		return writeError(c, repository.ErrNotFound)
	}
	s := model.Seat{SectionID: body.SectionID, Label: label, Capacity: capacity, IsActive: true}
	if err := h.seats.Create(ctx, &s); err != nil {
		return writeError(c, repository.Classify(err))
	}
	return c.JSON(http.StatusCreated, toSeatResponse(s))
}

// UpdateSeat handles PATCH /v1/seats/:id.  Only is_active can change;
// deactivating a seat leaves its claims in place but stops new admissions
// on it.
func (h *SeatHandler) UpdateSeat(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid seat id"})
	}
	var body struct {
		IsActive *bool `json:"is_active"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.IsActive == nil {
		return writeError(c, repository.Validationf("is_active is required"))
	}
	ctx := c.Request().Context()
	if err := h.seats.SetActive(ctx, id, *body.IsActive); err != nil {
		return writeError(c, repository.Classify(err))
	}
	s, err := h.seats.GetByID(ctx, id)
	if err != nil {
		return writeError(c, repository.Classify(err))
	}
	return c.JSON(http.StatusOK, toSeatResponse(*s))
}
