package apperr

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// HTTP translates a domain error into an echo HTTPError with the status
// the taxonomy prescribes. Errors without a kind become 500s so that
// unexpected store failures are never masked as client faults.
func HTTP(err error) error {
	switch KindOf(err) {
	case Validation:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case Permission:
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case NotFound:
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case Conflict:
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
