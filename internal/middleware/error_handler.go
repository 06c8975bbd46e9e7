package middleware

import (
	"blockRewards/pkg/logger"
	"errors"
	"fmt"
	"net/http"
	"strings"

	jsonres "blockRewards/pkg/response"

	"github.com/labstack/echo/v4"
)

// ErrorHandler renders errors that escape the handlers (unknown routes, bind
// failures, panics caught by Recover) in the same envelope the middleware uses.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := http.StatusText(code)

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		message = fmt.Sprint(he.Message)
	} else {
		logger.Error("Unhandled request error", "path", c.Path(), "error", err)
	}

	status := strings.ToUpper(strings.ReplaceAll(http.StatusText(code), " ", "_"))
	if status == "" {
		status = "ERROR"
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, jsonres.Error(status, message, nil))
	}
	if err != nil {
		logger.Error("Failed to write error response", "error", err)
	}
}
