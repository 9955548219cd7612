package http

import (
	"errors"
	"net/http"

	"dispatch/internal/core/application/dispatch"
	"dispatch/internal/core/domain/model/delivery"
	"dispatch/internal/core/domain/model/driver"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/errs"

	"github.com/labstack/echo/v4"
)

// statusFor maps the dispatch error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ports.ErrDeliveryNotFound),
		errors.Is(err, ports.ErrDriverNotFound),
		errors.Is(err, errs.ErrObjectNotFound):
		return http.StatusNotFound
	case errors.Is(err, ports.ErrAlreadyAssigned),
		errors.Is(err, ports.ErrConcurrentUpdate),
		errors.Is(err, ports.ErrDuplicateOrder),
		errors.Is(err, driver.ErrDriverUnavailable),
		errors.Is(err, driver.ErrDriverOnDelivery):
		return http.StatusConflict
	case errors.Is(err, delivery.ErrInvalidStateTransition),
		errors.Is(err, dispatch.ErrDriverMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, dispatch.ErrInvalidOrder),
		errors.Is(err, errs.ErrValueIsInvalid),
		errors.Is(err, errs.ErrValueIsOutOfRange),
		errors.Is(err, errs.ErrValueIsRequired):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err with its mapped status. Internal errors are logged
// and reported with a generic message.
func (s *Server) respondError(ctx echo.Context, err error, internalMessage string) error {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		s.logger.Error().Err(err).
			Str("method", ctx.Request().Method).
			Str("path", ctx.Path()).
			Msg(internalMessage)
		return ctx.JSON(code, Error{Code: code, Message: internalMessage})
	}
	return ctx.JSON(code, Error{Code: code, Message: err.Error()})
}

func badRequest(ctx echo.Context, message string) error {
	return ctx.JSON(http.StatusBadRequest, Error{Code: http.StatusBadRequest, Message: message})
}
