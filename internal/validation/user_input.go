// Package validation converts raw request bodies into validated, strongly
// typed input structures or structured validation errors. It performs no I/O
// and touches no storage: every function is a pure mapping from
// (content type, body bytes) to (input | *apierr.ErrorResponse).
//
// Checks run in a fixed order:
//  1. Body shape: the request must declare a JSON content type and carry
//     syntactically valid JSON (INVALID_JSON otherwise).
//  2. Field constraints: each violation is classified into the error
//     taxonomy (MISSING_REQUIRED_FIELD, VALUE_TOO_SHORT, VALUE_TOO_LONG,
//     INVALID_DATA_TYPE, INVALID_FORMAT) and all violations are reported
//     together under a single VALIDATION_ERROR.
//
// Optional fields use pointers so "field present" is distinguishable from
// "field absent". A JSON null decodes to a nil pointer and is therefore
// indistinguishable from an absent field; clients cannot null out a field.
package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/tbourn/go-user-backend/internal/apierr"
)

// CreateUserInput is the validated payload for creating a user.
// All four fields are mandatory.
type CreateUserInput struct {
	Username *string `json:"username" validate:"required,min=3,max=50"`
	Email    *string `json:"email"    validate:"required,max=100"`
	Age      *int    `json:"age"      validate:"required"`
	Role     *string `json:"role"     validate:"required,max=20"`
}

// UpdateUserInput is the validated payload for a partial update. Every field
// is optional; per-field constraints match CreateUserInput. omitnil skips
// validation only for absent fields, so an explicit empty string still fails
// its length constraint.
type UpdateUserInput struct {
	Username *string `json:"username" validate:"omitnil,min=3,max=50"`
	Email    *string `json:"email"    validate:"omitnil,max=100"`
	Age      *int    `json:"age"`
	Role     *string `json:"role"     validate:"omitnil,max=20"`
}

// Fields returns the set of supplied fields as a column→value map suitable
// for a partial update. Absent fields are not included.
func (in *UpdateUserInput) Fields() map[string]any {
	m := map[string]any{}
	if in.Username != nil {
		m["username"] = *in.Username
	}
	if in.Email != nil {
		m["email"] = *in.Email
	}
	if in.Age != nil {
		m["age"] = *in.Age
	}
	if in.Role != nil {
		m["role"] = *in.Role
	}
	return m
}

// validate is the shared validator instance. Field names in errors use the
// JSON tag so clients see wire names, not Go identifiers.
var validate = func() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}()

// DecodeCreate parses and validates a create-user request body.
func DecodeCreate(contentType string, body []byte) (*CreateUserInput, *apierr.ErrorResponse) {
	var in CreateUserInput
	if errResp := decodeJSON(contentType, body, &in); errResp != nil {
		return nil, errResp
	}
	if errResp := validateStruct(&in); errResp != nil {
		return nil, errResp
	}
	return &in, nil
}

// DecodeUpdate parses and validates a partial-update request body. The
// "at least one field" business rule is enforced by the handler, not here.
func DecodeUpdate(contentType string, body []byte) (*UpdateUserInput, *apierr.ErrorResponse) {
	var in UpdateUserInput
	if errResp := decodeJSON(contentType, body, &in); errResp != nil {
		return nil, errResp
	}
	if errResp := validateStruct(&in); errResp != nil {
		return nil, errResp
	}
	return &in, nil
}

// decodeJSON performs the body-shape checks: JSON content type, then JSON
// syntax. A type mismatch on a known field is a field-level validation error
// rather than a malformed body.
func decodeJSON(contentType string, body []byte, dst any) *apierr.ErrorResponse {
	if !isJSONContentType(contentType) {
		return apierr.InvalidJSON("Request must have JSON content type")
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return apierr.InvalidJSON("Request body must be valid JSON")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			kind := typeErr.Type.Kind()
			if kind == reflect.Ptr {
				kind = typeErr.Type.Elem().Kind()
			}
			fe := apierr.FieldError{
				Field:   typeErr.Field,
				Message: fmt.Sprintf("Input should be a valid %s", kind),
				Code:    apierr.CodeInvalidDataType,
				Value:   rawFieldValue(body, typeErr.Field),
			}
			return apierr.ValidationError("Request validation failed", []apierr.FieldError{fe})
		}
		return apierr.InvalidJSON("Request body must be valid JSON")
	}
	return nil
}

// validateStruct runs field-constraint validation and maps every violation
// into the taxonomy. All violations are reported together.
func validateStruct(in any) *apierr.ErrorResponse {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apierr.ValidationError("Request validation failed", nil)
	}
	details := make([]apierr.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, toFieldError(fe))
	}
	return apierr.ValidationError("Request validation failed", details)
}

// toFieldError classifies a single validator failure into the taxonomy.
func toFieldError(fe validator.FieldError) apierr.FieldError {
	out := apierr.FieldError{Field: fe.Field()}
	switch fe.Tag() {
	case "required":
		out.Code = apierr.CodeMissingRequiredField
		out.Message = "Field required"
	case "min":
		out.Code = apierr.CodeValueTooShort
		out.Message = fmt.Sprintf("String should have at least %s characters", fe.Param())
		out.Value = fe.Value()
	case "max":
		out.Code = apierr.CodeValueTooLong
		out.Message = fmt.Sprintf("String should have at most %s characters", fe.Param())
		out.Value = fe.Value()
	case "email", "url", "uuid":
		out.Code = apierr.CodeInvalidFormat
		out.Message = fmt.Sprintf("Value is not a valid %s", fe.Tag())
		out.Value = fe.Value()
	default:
		out.Code = apierr.CodeValidationError
		out.Message = fmt.Sprintf("Failed validation for '%s'", fe.Tag())
		out.Value = fe.Value()
	}
	return out
}

// isJSONContentType reports whether the given Content-Type declares JSON,
// including "+json" structured syntax suffixes (e.g. application/hal+json).
func isJSONContentType(contentType string) bool {
	if contentType == "" {
		return false
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt = strings.TrimSpace(strings.ToLower(contentType))
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

// rawFieldValue extracts the offending raw value of a top-level field from
// the original body, best effort. Used to echo the input back in field
// errors when the Go value could not be decoded.
func rawFieldValue(body []byte, field string) any {
	var probe map[string]any
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil
	}
	return probe[field]
}
