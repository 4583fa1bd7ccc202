// Package router wires handlers and middleware onto an Echo instance.
package router

import (
	"database/sql"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-seating/internal/handler"
)

// RegisterRoutes registers routes that do not require authentication or
// rate limiting.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo, db *sql.DB) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterPublic registers the guest-facing lookups.  limit runs on all of
// them; cache only on the layout, since availability and seat occupancy
// are recomputed for every call.
func RegisterPublic(e *echo.Echo, seats *handler.SeatHandler, avail *handler.AvailabilityHandler, limit, cache echo.MiddlewareFunc) {
	g := e.Group("/v1", limit)
	g.GET("/availability", avail.GetAvailability)
	g.GET("/seats", seats.ListSeats)
	g.GET("/seat-sections", seats.ListLayout, cache)
}
