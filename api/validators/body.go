package validators

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	pkgerrors "github.com/angelmondragon/roasapp-backend/pkg/errors"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// tagMessages renders a failed validator tag; %s receives the tag parameter.
var tagMessages = map[string]string{
	"required": "is required",
	"min":      "must be at least %s",
	"max":      "must be at most %s",
	"gt":       "must be greater than %s",
	"gte":      "must be greater than or equal to %s",
	"lt":       "must be less than %s",
	"oneof":    "must be one of [%s]",
	"username": "may only contain letters, digits, '.', '-' and '_'",
	"uuid":     "must be a valid uuid",
}

var validate = func() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(jsonFieldName)
	if err := v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}()

func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return f.Name
	}
	return name
}

// DecodeJSONBody decodes exactly one JSON object into dest, rejecting unknown fields and trailing
// data, then runs the struct's validate tags.
func DecodeJSONBody(r *http.Request, dest any) error {
	defer io.Copy(io.Discard, r.Body) //nolint:errcheck

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		return bodyError(err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid request body").
			WithDetails(map[string]any{"error": "body must contain a single JSON object"})
	}
	return ValidateStruct(dest)
}

func bodyError(err error) error {
	details := map[string]any{"error": err.Error()}
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.Is(err, io.EOF):
		details["error"] = "request body is empty"
	case errors.As(err, &typeErr) && typeErr.Field != "":
		details["field"] = typeErr.Field
		details["error"] = fmt.Sprintf("must be %s", typeErr.Type)
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body").WithDetails(details)
}

// ValidateStruct runs the struct tags for payloads that were not decoded from JSON.
func ValidateStruct(dest any) error {
	err := validate.Struct(dest)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
	}
	details := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		details[fe.Field()] = fieldMessage(fe)
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
}

func fieldMessage(fe validator.FieldError) string {
	msg, ok := tagMessages[fe.Tag()]
	if !ok {
		return "is invalid"
	}
	if strings.Contains(msg, "%s") {
		return fmt.Sprintf(msg, fe.Param())
	}
	return msg
}
