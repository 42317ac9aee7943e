package apperr

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Body is the JSON shape of every error response.
type Body struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Resolve turns any error into the code/status/message triple answered to
// the client.  Echo's own HTTPErrors (unknown route, bad method, proxy
// failure) are classified too.
func Resolve(err error) (int, Body) {
	if e, ok := As(err); ok {
		status := e.Status
		if status == 0 {
			status = StatusOf(err)
		}
		msg := e.Message
		if status >= 500 && e.Code == CodeInternal {
			msg = "internal error"
		}
		return status, Body{Error: e.Code, Message: msg}
	}
	if he, ok := err.(*echo.HTTPError); ok {
		msg, _ := he.Message.(string)
		if msg == "" {
			msg = http.StatusText(he.Code)
		}
		switch he.Code {
		case http.StatusNotFound:
			return he.Code, Body{Error: CodeNotFound, Message: msg}
		case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return http.StatusBadGateway, Body{Error: CodeUpstreamUnavailable, Message: "upstream unavailable"}
		case http.StatusUnauthorized:
			return he.Code, Body{Error: CodeInvalidCredential, Message: msg}
		case http.StatusTooManyRequests:
			return he.Code, Body{Error: CodeTooManyRequests, Message: msg}
		}
		if he.Code < 500 {
			return he.Code, Body{Error: CodeValidation, Message: msg}
		}
	}
	status := StatusOf(err)
	if status >= 500 {
		return status, Body{Error: CodeInternal, Message: "internal error"}
	}
	return status, Body{Error: http.StatusText(status), Message: http.StatusText(status)}
}

// HTTPErrorHandler renders errors returned by handlers.  Server-side
// failures are logged with their cause; the cause is never written to the
// response.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status, body := Resolve(err)
	if status >= 500 {
		slog.Error("request failed",
			"method", c.Request().Method,
			"path", c.Request().URL.Path,
			"status", status,
			"code", body.Error,
			"error", err)
	}
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, body)
	}
	if err != nil {
		slog.Error("write error response", "error", err)
	}
}
