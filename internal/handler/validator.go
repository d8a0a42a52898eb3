package handler

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// CustomValidator plugs go-playground/validator into echo.Context.Validate.
type CustomValidator struct {
	validator *validator.Validate
}

func NewValidator() *CustomValidator {
	return &CustomValidator{validator: validator.New(validator.WithRequiredStructEnabled())}
}

func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// bindAndValidate binds the request body into req and validates it.
// The returned string is a client-facing reason when it fails.
func bindAndValidate(c echo.Context, req interface{}) (string, bool) {
	if err := c.Bind(req); err != nil {
		return "invalid request body", false
	}
	if err := c.Validate(req); err != nil {
		if he, ok := err.(*echo.HTTPError); ok {
			if m, ok := he.Message.(string); ok {
				return m, false
			}
		}
		return err.Error(), false
	}
	return "", true
}
