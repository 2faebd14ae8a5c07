package validate

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// v is the package-level singleton validator. It is initialised once at
// package load time. Any custom type registrations must be made during init()
// before the first call to Fields.
var v = validator.New()

// Fields validates the given struct using its validate tags and returns a
// field->message map suitable for a 400 response body, or nil when valid.
func Fields(s interface{}) map[string]string {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	ve, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string]string{"request": err.Error()}
	}
	fields := make(map[string]string, len(ve))
	for _, fe := range ve {
		fields[fe.Field()] = message(fe)
	}
	return fields
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required.", fe.Field())
	case "email":
		return "Invalid email address."
	case "max":
		return fmt.Sprintf("%s cannot exceed %s characters.", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed '%s' validation.", fe.Field(), fe.Tag())
	}
}
