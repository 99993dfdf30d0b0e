// Package validation runs struct-tag rules and turns failures into field errors
// suitable for a 422 response.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/newsroom-labs/cms-service/pkg/util"
)

// FieldError is a single rule failure on one input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FieldErrors is the ordered list of failures for one request.
type FieldErrors []FieldError

// Add appends a failure for field.
func (fe *FieldErrors) Add(field, message string) {
	*fe = append(*fe, FieldError{Field: field, Message: message})
}

// Details groups messages by field, the shape sent to clients.
func (fe FieldErrors) Details() map[string]any {
	grouped := make(map[string][]string, len(fe))
	for _, e := range fe {
		grouped[e.Field] = append(grouped[e.Field], e.Message)
	}
	errs := make(map[string]any, len(grouped))
	for field, msgs := range grouped {
		errs[field] = msgs
	}
	return map[string]any{"errors": errs}
}

// Err returns nil when there are no failures, otherwise a validation DomainError.
func (fe FieldErrors) Err() error {
	if len(fe) == 0 {
		return nil
	}
	return apperrors.NewValidationError(fe[0].Message, fe.Details())
}

// Messages overrides the default message for "field.tag" keys.
type Messages map[string]string

var (
	once     sync.Once
	instance *validator.Validate
)

func validate() *validator.Validate {
	once.Do(func() {
		instance = validator.New(validator.WithRequiredStructEnabled())
		instance.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return field.Name
			}
			return name
		})
	})
	return instance
}

// Struct validates input and collects failures. Non-validation errors are returned as is.
func Struct(input any, messages Messages) (FieldErrors, error) {
	err := validate().Struct(input)
	if err == nil {
		return nil, nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, err
	}

	out := make(FieldErrors, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		if msg, ok := messages[field+"."+fe.Tag()]; ok {
			out.Add(field, msg)
			continue
		}
		out.Add(field, defaultMessage(fe))
	}
	return out, nil
}

func defaultMessage(fe validator.FieldError) string {
	field := strings.ReplaceAll(fe.Field(), "_", " ")
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required.", field)
	case "email":
		return fmt.Sprintf("The %s must be a valid email address.", field)
	case "min":
		return fmt.Sprintf("The %s must be at least %s characters.", field, fe.Param())
	case "max":
		return fmt.Sprintf("The %s may not be greater than %s characters.", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("The %s must be one of: %s.", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "eqfield":
		return fmt.Sprintf("The %s does not match.", field)
	case "uuid", "uuid4":
		return fmt.Sprintf("The %s must be a valid identifier.", field)
	case "gte", "lte":
		return fmt.Sprintf("The %s is out of range.", field)
	default:
		return fmt.Sprintf("The %s is invalid.", field)
	}
}
