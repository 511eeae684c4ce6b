package webserver

import (
	"github.com/go-playground/validator/v10"
)

// WebValidator plugs go-playground validation into echo's c.Validate.
type WebValidator struct {
	validate *validator.Validate
}

func NewWebValidator() *WebValidator {
	return &WebValidator{validate: validator.New()}
}

func (v *WebValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}
