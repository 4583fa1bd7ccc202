package middleware

import "github.com/labstack/echo/v4"

// currentUserID returns the authenticated staff member's id, or "anon" on
// public routes.
func currentUserID(c echo.Context) string {
	if s, ok := c.Get("user_id").(string); ok && s != "" {
		return s
	}
	return "anon"
}
