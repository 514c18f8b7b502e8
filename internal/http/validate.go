package httpapi

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"learnpath-backend-go/internal/services"
)

// validate reports fields under their json names so issue paths match the
// wire payload.
var validate = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}()

// validationIssues converts validator errors to the wire issue shape.
// prefix scopes an error to its batch position ("events[3]").
func validationIssues(err error, prefix string) []services.FieldIssue {
	issues := []services.FieldIssue{}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		issues = append(issues, services.FieldIssue{Field: prefix, Message: "invalid payload"})
		return issues
	}
	for _, ferr := range verrs {
		field := lowerFirst(ferr.Field())
		if prefix != "" {
			field = prefix + "." + field
		}
		issues = append(issues, services.FieldIssue{
			Field:   field,
			Message: describeTag(ferr),
		})
	}
	return issues
}

func describeTag(ferr validator.FieldError) string {
	switch ferr.Tag() {
	case "required":
		return "is required"
	case "uuid", "uuid4":
		return "must be a valid UUID"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s", ferr.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", ferr.Param())
	default:
		return fmt.Sprintf("failed %s validation", ferr.Tag())
	}
}

func lowerFirst(value string) string {
	if value == "" {
		return value
	}
	return strings.ToLower(value[:1]) + value[1:]
}
