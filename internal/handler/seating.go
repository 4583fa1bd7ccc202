package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-seating/internal/model"
	"github.com/iliyamo/restaurant-seating/internal/repository"
	"github.com/iliyamo/restaurant-seating/internal/service"
)

// SeatingHandler exposes the admission controller to floor staff.
type SeatingHandler struct {
	ctl   *service.Controller
	venue *time.Location
}

// NewSeatingHandler panics if ctl is nil.  venue is the zone a date query
// parameter is read in; nil means UTC.
func NewSeatingHandler(ctl *service.Controller, venue *time.Location) *SeatingHandler {
	if ctl == nil {
		panic("nil controller passed to NewSeatingHandler")
	}
	if venue == nil {
		venue = time.UTC
	}
	return &SeatingHandler{ctl: ctl, venue: venue}
}

type claimResponse struct {
	ID           uint64  `json:"id"`
	SeatID       uint64  `json:"seat_id"`
	OccupantType string  `json:"occupant_type"`
	OccupantID   uint64  `json:"occupant_id"`
	StartAt      string  `json:"start_at"`
	EndAt        string  `json:"end_at"`
	ReleasedAt   *string `json:"released_at"`
	CreatedAt    string  `json:"created_at"`

	// only set on listings
	SeatLabel         string `json:"seat_label,omitempty"`
	OccupantName      string `json:"occupant_name,omitempty"`
	OccupantPartySize int    `json:"occupant_party_size,omitempty"`
	OccupantStatus    string `json:"occupant_status,omitempty"`
}

func toClaimResponse(a model.SeatAllocation) claimResponse {
	return claimResponse{
		ID:           a.ID,
		SeatID:       a.SeatID,
		OccupantType: string(a.Occupant.Kind),
		OccupantID:   a.Occupant.ID,
		StartAt:      a.StartAt.UTC().Format(time.RFC3339),
		EndAt:        a.EndAt.UTC().Format(time.RFC3339),
		ReleasedAt:   formatOptional(a.ReleasedAt),
		CreatedAt:    a.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type resultResponse struct {
	OccupantType string          `json:"occupant_type"`
	OccupantID   uint64          `json:"occupant_id"`
	Status       string          `json:"status"`
	PartySize    int             `json:"party_size"`
	Claims       []claimResponse `json:"claims"`
}

func toResultResponse(r *service.Result) resultResponse {
	ref := r.Occupant.Ref()
	out := resultResponse{
		OccupantType: string(ref.Kind),
		OccupantID:   ref.ID,
		Status:       string(r.Occupant.CurrentStatus()),
		PartySize:    r.Occupant.Size(),
		Claims:       make([]claimResponse, 0, len(r.Claims)),
	}
	for _, a := range r.Claims {
		out.Claims = append(out.Claims, toClaimResponse(a))
	}
	return out
}

// ListAllocations handles GET /v1/seat-allocations.  Query parameters
// from and to (RFC 3339) select claims overlapping [from, to); date
// (YYYY-MM-DD) selects the venue's calendar day instead.  seat_id,
// occupant_type with occupant_id, and include_released narrow further.
func (h *SeatingHandler) ListAllocations(c echo.Context) error {
	var f repository.ClaimFilter
	var err error
	if f.From, err = parseOptionalTime(c.QueryParam("from"), "from"); err != nil {
		return writeError(c, err)
	}
	if f.To, err = parseOptionalTime(c.QueryParam("to"), "to"); err != nil {
		return writeError(c, err)
	}
	if d := c.QueryParam("date"); d != "" {
		if f.From != nil || f.To != nil {
			return writeError(c, repository.Validationf("date cannot be combined with from or to"))
		}
		day, err := time.ParseInLocation("2006-01-02", d, h.venue)
		if err != nil {
			return writeError(c, repository.Validationf("date must be YYYY-MM-DD"))
		}
		next := day.AddDate(0, 0, 1)
		f.From, f.To = &day, &next
	}
	if s := c.QueryParam("seat_id"); s != "" {
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return writeError(c, repository.Validationf("seat_id must be numeric"))
		}
		f.SeatID = &id
	}
	if s := c.QueryParam("occupant_type"); s != "" {
		id, _ := strconv.ParseUint(c.QueryParam("occupant_id"), 10, 64)
		ref, err := occupantBody{OccupantType: s, OccupantID: id}.ref()
		if err != nil {
			return writeError(c, err)
		}
		f.Occupant = &ref
	}
	f.IncludeReleased, _ = strconv.ParseBool(c.QueryParam("include_released"))

	views, err := h.ctl.ListActiveClaims(c.Request().Context(), f)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]claimResponse, 0, len(views))
	for _, v := range views {
		r := toClaimResponse(v.SeatAllocation)
		r.SeatLabel = v.SeatLabel
		r.OccupantName = v.OccupantName
		r.OccupantPartySize = v.OccupantPartySize
		r.OccupantStatus = string(v.OccupantStatus)
		out = append(out, r)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

type admitBody struct {
	occupantBody
	SeatIDs []uint64 `json:"seat_ids"`
	StartAt string   `json:"start_at"`
	EndAt   string   `json:"end_at"`
}

func (b admitBody) request() (service.AdmitRequest, error) {
	ref, err := b.ref()
	if err != nil {
		return service.AdmitRequest{}, err
	}
	start, err := parseOptionalTime(b.StartAt, "start_at")
	if err != nil {
		return service.AdmitRequest{}, err
	}
	end, err := parseOptionalTime(b.EndAt, "end_at")
	if err != nil {
		return service.AdmitRequest{}, err
	}
	return service.AdmitRequest{Occupant: ref, SeatIDs: b.SeatIDs, Start: start, End: end}, nil
}

// Admit handles POST /v1/seat-allocations and seats an occupant on the
// given seats.
func (h *SeatingHandler) Admit(c echo.Context) error {
	return h.claim(c, "admit", h.ctl.Admit)
}

// Reserve handles POST /v1/seat-allocations/reserve.
func (h *SeatingHandler) Reserve(c echo.Context) error {
	return h.claim(c, "reserve", h.ctl.Reserve)
}

func (h *SeatingHandler) claim(c echo.Context, op string, fn func(context.Context, service.AdmitRequest) (*service.Result, error)) error {
	var body admitBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	req, err := body.request()
	if err != nil {
		return writeError(c, err)
	}
	res, err := fn(c.Request().Context(), req)
	if err != nil {
		return writeError(c, err)
	}
	h.audit(c, op, req.Occupant)
	return c.JSON(http.StatusCreated, toResultResponse(res))
}

type partyBody struct {
	occupantBody
	StartSeatID uint64 `json:"start_seat_id"`
	StartAt     string `json:"start_at"`
	EndAt       string `json:"end_at"`
	Reserve     bool   `json:"reserve"`
}

// AdmitParty handles POST /v1/seat-allocations/party and seats a party on
// consecutive single seats beginning at start_seat_id.
func (h *SeatingHandler) AdmitParty(c echo.Context) error {
	var body partyBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	ref, err := body.ref()
	if err != nil {
		return writeError(c, err)
	}
	start, err := parseOptionalTime(body.StartAt, "start_at")
	if err != nil {
		return writeError(c, err)
	}
	end, err := parseOptionalTime(body.EndAt, "end_at")
	if err != nil {
		return writeError(c, err)
	}
	res, err := h.ctl.AdmitParty(c.Request().Context(), service.PartyRequest{
		Occupant: ref, StartSeatID: body.StartSeatID, Start: start, End: end, Reserve: body.Reserve,
	})
	if err != nil {
		return writeError(c, err)
	}
	h.audit(c, "admit-party", ref)
	return c.JSON(http.StatusCreated, toResultResponse(res))
}

// Arrive handles POST /v1/seat-allocations/arrive.
func (h *SeatingHandler) Arrive(c echo.Context) error {
	return h.transition(c, "arrive", h.ctl.Arrive)
}

// NoShow handles POST /v1/seat-allocations/no-show.
func (h *SeatingHandler) NoShow(c echo.Context) error {
	return h.transition(c, "no-show", h.ctl.NoShow)
}

// Cancel handles POST /v1/seat-allocations/cancel.
func (h *SeatingHandler) Cancel(c echo.Context) error {
	return h.transition(c, "cancel", h.ctl.Cancel)
}

// Finish handles POST /v1/seat-allocations/finish.
func (h *SeatingHandler) Finish(c echo.Context) error {
	return h.transition(c, "finish", h.ctl.Finish)
}

func (h *SeatingHandler) transition(c echo.Context, op string, fn func(context.Context, model.OccupantRef) (*service.Result, error)) error {
	var body occupantBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	ref, err := body.ref()
	if err != nil {
		return writeError(c, err)
	}
	res, err := fn(c.Request().Context(), ref)
	if err != nil {
		return writeError(c, err)
	}
	h.audit(c, op, ref)
	return c.JSON(http.StatusOK, toResultResponse(res))
}

// Release handles DELETE /v1/seat-allocations/:id and frees one seat.
// Releasing an already released claim returns 200 with the claim as is.
func (h *SeatingHandler) Release(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid allocation id"})
	}
	res, err := h.ctl.ReleaseClaim(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	h.audit(c, "release", res.Occupant.Ref())
	return c.JSON(http.StatusOK, toResultResponse(res))
}

// audit records which staff member acted on an occupant.
func (h *SeatingHandler) audit(c echo.Context, op string, ref model.OccupantRef) {
	uid, err := getUserID(c)
	if err != nil {
		return
	}
	c.Logger().Infof("seating: user %d %s %s", uid, op, ref)
}
