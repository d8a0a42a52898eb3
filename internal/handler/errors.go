package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-seat-booking/internal/logger"
	"github.com/iliyamo/cinema-seat-booking/internal/repository"
	"github.com/iliyamo/cinema-seat-booking/internal/service"
)

// Error codes returned in the "error" field.
const (
	CodeInvalidSeat      = "invalid_seat"
	CodeSeatTaken        = "seat_taken"
	CodeShowFull         = "show_full"
	CodeAlreadyCancelled = "already_cancelled"
	CodeNotFound         = "not_found"
	CodeShowNotFound     = "show_not_found"
	CodeMovieNotFound    = "movie_not_found"
	CodeInvalidRequest   = "invalid_request"
	CodeUnauthorized     = "unauthorized"
	CodeEmailExists      = "email_exists"
	CodeInternal         = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

var errorStatus = []struct {
	err    error
	status int
	code   string
}{
	{service.ErrInvalidSeat, http.StatusBadRequest, CodeInvalidSeat},
	{service.ErrSeatTaken, http.StatusConflict, CodeSeatTaken},
	{service.ErrShowFull, http.StatusConflict, CodeShowFull},
	{service.ErrAlreadyCancelled, http.StatusConflict, CodeAlreadyCancelled},
	{service.ErrBookingNotFound, http.StatusNotFound, CodeNotFound},
	{service.ErrShowNotFound, http.StatusNotFound, CodeShowNotFound},
	{repository.ErrMovieNotFound, http.StatusNotFound, CodeMovieNotFound},
}

// statusFor maps an error to its HTTP status and code.  Unknown errors,
// lock timeouts included, are internal.
func statusFor(err error) (int, string) {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return e.status, e.code
		}
	}
	return http.StatusInternalServerError, CodeInternal
}

// writeError renders err.  Internal failures are logged and their
// detail is not exposed.
func writeError(c echo.Context, err error) error {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("path", c.Request().URL.Path),
			zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			zap.Error(err))
		return c.JSON(status, ErrorResponse{Error: code})
	}
	return c.JSON(status, ErrorResponse{Error: code, Detail: err.Error()})
}

func badRequest(c echo.Context, detail string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: CodeInvalidRequest, Detail: detail})
}

// HTTPErrorHandler replaces echo's default so errors that escape the
// handlers (routing misses, binder failures, panics caught by Recover)
// use the same JSON body.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var he *echo.HTTPError
	if !errors.As(err, &he) {
		_ = writeError(c, err)
		return
	}

	code := CodeInternal
	switch he.Code {
	case http.StatusBadRequest:
		code = CodeInvalidRequest
	case http.StatusUnauthorized:
		code = CodeUnauthorized
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		code = CodeNotFound
	case http.StatusTooManyRequests:
		code = "too_many_requests"
	}
	resp := ErrorResponse{Error: code}
	if he.Code < http.StatusInternalServerError {
		if m, ok := he.Message.(string); ok {
			resp.Detail = m
		} else {
			resp.Detail = http.StatusText(he.Code)
		}
	} else {
		logger.Error("server error",
			zap.Int("status", he.Code),
			zap.String("path", c.Request().URL.Path),
			zap.Error(err))
	}

	var werr error
	if c.Request().Method == http.MethodHead {
		werr = c.NoContent(he.Code)
	} else {
		werr = c.JSON(he.Code, resp)
	}
	if werr != nil {
		logger.Error("write error response failed", zap.Error(werr))
	}
}
