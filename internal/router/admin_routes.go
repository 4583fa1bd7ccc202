package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-seating/internal/handler"
	"github.com/iliyamo/restaurant-seating/internal/middleware"
)

// RegisterAdmin registers seat inventory changes.  Listing seats stays on
// the public router.
func RegisterAdmin(e *echo.Echo, s *handler.SeatHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(middleware.RoleAdmin, middleware.RoleSuperAdmin),
	)
	g.POST("/seat-sections", s.CreateSection)
	g.POST("/seats", s.CreateSeat)
	g.PATCH("/seats/:id", s.UpdateSeat)
}
