package response

import (
	"github.com/labstack/echo/v4"
	"github.com/viperadnan-git/meeting-summary/internal/core/errdefs"
)

// ErrorBody is the shape of every error the API returns.
type ErrorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func JSON(c echo.Context, status int, data any) error {
	return c.JSON(status, data)
}

func Error(c echo.Context, status int, message string) error {
	return c.JSON(status, ErrorBody{Success: false, Error: message})
}

// Err reports err with the status errdefs maps it to.
func Err(c echo.Context, err error, prefix string) error {
	return Error(c, errdefs.HTTPStatus(err), errdefs.Message(err, prefix))
}
