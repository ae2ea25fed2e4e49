package api

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/kenyawebs/Tana-Delta/internal/apperr"
)

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// check validates a request DTO and reports the first failing field as a
// validation error.
func check(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		if fe.Tag() == "required" || fe.Tag() == "required_without" {
			return apperr.Invalid(fe.Field(), "is required")
		}
		return apperr.Invalid(fe.Field(), "failed %s validation", fe.Tag())
	}
	return apperr.Invalid("body", "%v", err)
}
