// Package handler contains the Echo handlers of every service.  Handlers
// bind and validate the request shape, read the verified caller set by
// middleware.Authenticate and delegate to the service layer.  Failures are
// returned as errors and rendered by apperr.HTTPErrorHandler.
package handler

import (
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/service-marketplace/internal/apperr"
    "github.com/iliyamo/service-marketplace/internal/middleware"
    "github.com/iliyamo/service-marketplace/internal/model"
)

// bind decodes the request body into dst.
func bind(c echo.Context, dst interface{}) error {
    if err := c.Bind(dst); err != nil {
        return apperr.Validation(apperr.CodeValidation, "invalid request body")
    }
    return nil
}

// callerOf returns the authenticated caller.  Routes that call it are
// always behind middleware.Authenticate, so a miss is a wiring bug that
// still answers 401 instead of panicking.
func callerOf(c echo.Context) (model.Caller, error) {
    caller, ok := middleware.CallerFrom(c)
    if !ok {
        return model.Caller{}, apperr.Authentication(apperr.CodeMissingCredential, "missing bearer credential")
    }
    return caller, nil
}

// pageOf reads ?limit= and ?offset=.  Invalid values fall back to the
// defaults applied by model.Page.Normalize.
func pageOf(c echo.Context) model.Page {
    limit, _ := strconv.Atoi(c.QueryParam("limit"))
    offset, _ := strconv.Atoi(c.QueryParam("offset"))
    return model.Page{Limit: limit, Offset: offset}.Normalize()
}

func required(field string) error {
    return apperr.Validation(apperr.CodeValidation, "%s is required", field)
}
