package handler

import (
    "errors"
    "reflect"
    "strings"

    "github.com/go-playground/validator/v10"
)

// RequestValidator plugs go-playground/validator into echo's c.Validate.
type RequestValidator struct {
    v *validator.Validate
}

func NewRequestValidator() *RequestValidator {
    v := validator.New(validator.WithRequiredStructEnabled())
    // report json names ("full_name"), not Go field names
    v.RegisterTagNameFunc(func(f reflect.StructField) string {
        name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
        if name == "-" {
            return ""
        }
        if name == "" {
            name, _, _ = strings.Cut(f.Tag.Get("form"), ",")
        }
        return name
    })
    return &RequestValidator{v: v}
}

// ValidationError carries per-field messages for a 422 response.
type ValidationError struct {
    Fields map[string]string
}

func (e *ValidationError) Error() string {
    parts := make([]string, 0, len(e.Fields))
    for f, msg := range e.Fields {
        parts = append(parts, f+": "+msg)
    }
    return "validation failed: " + strings.Join(parts, ", ")
}

func (rv *RequestValidator) Validate(i interface{}) error {
    err := rv.v.Struct(i)
    if err == nil {
        return nil
    }
    var verrs validator.ValidationErrors
    if !errors.As(err, &verrs) {
        return err
    }
    out := &ValidationError{Fields: make(map[string]string, len(verrs))}
    for _, fe := range verrs {
        out.Fields[fe.Field()] = describe(fe)
    }
    return out
}

func describe(fe validator.FieldError) string {
    switch fe.Tag() {
    case "required":
        return "field required"
    case "email":
        return "value is not a valid email address"
    case "max":
        return "must be at most " + fe.Param() + " characters"
    case "min":
        return "must be at least " + fe.Param() + " characters"
    default:
        return "failed on " + fe.Tag()
    }
}
