package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-seating/internal/handler"
	"github.com/iliyamo/restaurant-seating/internal/middleware"
)

// RegisterStaff registers floor-staff endpoints under /v1.  All routes
// require a valid JWT with a staff, admin or super_admin role.
func RegisterStaff(e *echo.Echo, s *handler.SeatingHandler, o *handler.OccupantHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(middleware.RoleStaff, middleware.RoleAdmin, middleware.RoleSuperAdmin),
	)

	// ---- Seat allocations ----
	g.GET("/seat-allocations", s.ListAllocations)
	g.POST("/seat-allocations", s.Admit)
	g.POST("/seat-allocations/reserve", s.Reserve)
	g.POST("/seat-allocations/party", s.AdmitParty)
	g.POST("/seat-allocations/arrive", s.Arrive)
	g.POST("/seat-allocations/no-show", s.NoShow)
	g.POST("/seat-allocations/cancel", s.Cancel)
	g.POST("/seat-allocations/finish", s.Finish)
	g.DELETE("/seat-allocations/:id", s.Release)

	// ---- Intake ----
	g.POST("/reservations", o.CreateReservation)
	g.GET("/reservations/:id", o.GetReservation)
	g.POST("/waitlist", o.CreateWaitlistEntry)
	g.GET("/waitlist", o.ListWaitlist)
	g.GET("/waitlist/:id", o.GetWaitlistEntry)
}
