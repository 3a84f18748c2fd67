package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Route adapts a handler that returns a value into an echo handler that renders it as JSON.
func Route(handler func(c echo.Context) (interface{}, error)) echo.HandlerFunc {
	return func(c echo.Context) error {
		result, err := handler(c)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, result)
	}
}
