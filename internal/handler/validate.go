package handler

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError is one failed rule on a request body field.
type ValidationError struct {
	Type     string `json:"type"`
	Value    any    `json:"value"`
	Msg      string `json:"msg"`
	Path     string `json:"path"`
	Location string `json:"location"`
}

// validationErrors is the 400 body for rejected request bodies.
type validationErrors struct {
	Errors []ValidationError `json:"errors"`
}

// RequestValidator checks request structs against their `validate` tags and
// reports failures with the message in each field's `msg` tag. Fields tagged
// `secret:"true"` are reported without their value.
type RequestValidator struct {
	v *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// report JSON names ("confirmPassword") instead of Go names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	return &RequestValidator{v: v}
}

// Validate returns nil or the list of failed fields in declaration order.
func (rv *RequestValidator) Validate(req any) []ValidationError {
	err := rv.v.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []ValidationError{{Type: "body", Msg: err.Error(), Location: "body"}}
	}

	t := reflect.TypeOf(req)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	out := make([]ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msg, value := "Invalid value", fe.Value()
		if sf, ok := t.FieldByName(fe.StructField()); ok {
			if m := sf.Tag.Get("msg"); m != "" {
				msg = m
			}
			if sf.Tag.Get("secret") == "true" {
				value = nil
			}
		}
		out = append(out, ValidationError{
			Type:     "field",
			Value:    value,
			Msg:      msg,
			Path:     fe.Field(),
			Location: "body",
		})
	}
	return out
}
