package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/erp/supplier-portal/internal/interfaces/http/dto"
)

var setupValidatorOnce sync.Once

// SetupValidator makes gin's validator report the json, form or uri name of a
// field instead of the Go name. Safe to call repeatedly.
func SetupValidator() {
	setupValidatorOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, tag := range []string{"json", "form", "uri"} {
				name, _, _ := strings.Cut(fld.Tag.Get(tag), ",")
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return fld.Name
		})
	})
}

var fieldMessages = map[string]func(validator.FieldError) string{
	"required": func(validator.FieldError) string { return "This field is required" },
	"uuid":     func(validator.FieldError) string { return "Invalid UUID format" },
	"oneof": func(fe validator.FieldError) string {
		return "Must be one of: " + strings.Join(strings.Fields(fe.Param()), ", ")
	},
	"min": func(fe validator.FieldError) string { return bound("at least", fe) },
	"max": func(fe validator.FieldError) string { return bound("at most", fe) },
}

func bound(word string, fe validator.FieldError) string {
	if fe.Kind() == reflect.String {
		return fmt.Sprintf("Must be %s %s characters", word, fe.Param())
	}
	return fmt.Sprintf("Must be %s %s", word, fe.Param())
}

// FormatValidationErrors converts a binding error to the standard response.
// Field errors become details; malformed bodies get a single "body" detail.
func FormatValidationErrors(err error, requestID string) dto.Response {
	var (
		details   []dto.ValidationDetail
		fieldErrs validator.ValidationErrors
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	switch {
	case errors.As(err, &fieldErrs):
		for _, fe := range fieldErrs {
			msg := "Invalid value"
			if f, ok := fieldMessages[fe.Tag()]; ok {
				msg = f(fe)
			}
			details = append(details, dto.ValidationDetail{Field: fe.Field(), Message: msg})
		}
	case errors.As(err, &typeErr) && typeErr.Field != "":
		details = append(details, dto.ValidationDetail{Field: typeErr.Field, Message: "Must be a " + typeErr.Type.Kind().String()})
	case errors.As(err, &syntaxErr):
		details = append(details, dto.ValidationDetail{Field: "body", Message: "Malformed JSON"})
	}
	return dto.NewValidationErrorResponse("Request validation failed", requestID, details)
}

// HandleValidationError writes a 400 validation error response
func HandleValidationError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, FormatValidationErrors(err, GetRequestID(c)))
}
