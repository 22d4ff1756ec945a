package apierr

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
)

func TestNotFound_WithAndWithoutID(t *testing.T) {
	e := NotFound("User")
	if e.Code != CodeResourceNotFound || e.Message != "User not found" {
		t.Fatalf("unexpected response: %+v", e)
	}
	e = NotFound("User", 42)
	if e.Message != "User not found with id: 42" {
		t.Fatalf("unexpected message: %q", e.Message)
	}
	if e.Error != "Resource Not Found" {
		t.Fatalf("unexpected label: %q", e.Error)
	}
}

func TestAlreadyExists_Message(t *testing.T) {
	e := AlreadyExists("User", "username", "alice")
	if e.Code != CodeResourceAlreadyExists {
		t.Fatalf("code = %q", e.Code)
	}
	if e.Message != "User already exists with username: alice" {
		t.Fatalf("message = %q", e.Message)
	}
}

func TestConstraintViolation_DefaultMessage(t *testing.T) {
	e := ConstraintViolation("unknown", "")
	if e.Message != "Database constraint violation: unknown" {
		t.Fatalf("message = %q", e.Message)
	}
	e = ConstraintViolation("ux_users_username", "custom")
	if e.Message != "custom" {
		t.Fatalf("message = %q", e.Message)
	}
}

func TestDefaultMessages(t *testing.T) {
	if msg := DatabaseError("").Message; msg != "Database operation failed" {
		t.Fatalf("database default = %q", msg)
	}
	if msg := InvalidJSON("").Message; msg != "Invalid JSON in request body" {
		t.Fatalf("invalid json default = %q", msg)
	}
	if msg := InternalServerError("").Message; msg != "An internal server error occurred" {
		t.Fatalf("internal default = %q", msg)
	}
	if msg := InvalidJSON("Request body must be valid JSON").Message; msg != "Request body must be valid JSON" {
		t.Fatalf("invalid json override = %q", msg)
	}
}

func TestValidationError_NormalizesNilDetails(t *testing.T) {
	e := ValidationError("Request validation failed", nil)
	if e.Details == nil || len(e.Details) != 0 {
		t.Fatalf("expected empty details slice, got %#v", e.Details)
	}
	if e.Code != CodeValidationError {
		t.Fatalf("code = %q", e.Code)
	}
}

func TestFieldError_JSONOmitsNilValue(t *testing.T) {
	b, err := json.Marshal(FieldError{Field: "age", Message: "required", Code: CodeMissingRequiredField})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(b), "value") {
		t.Fatalf("nil value should be omitted: %s", b)
	}
}

func TestHTTPStatus_Mapping(t *testing.T) {
	cases := []struct {
		code Code
		want int
	}{
		{CodeResourceNotFound, http.StatusNotFound},
		{CodeResourceAlreadyExists, http.StatusConflict},
		{CodeConstraintViolation, http.StatusConflict},
		{CodeDatabaseError, http.StatusInternalServerError},
		{CodeValidationError, http.StatusBadRequest},
		{CodeInvalidJSON, http.StatusBadRequest},
		{CodeInternalServerError, http.StatusInternalServerError},
		{Code("SOMETHING_ELSE"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := HTTPStatus(tc.code); got != tc.want {
			t.Fatalf("HTTPStatus(%s) = %d, want %d", tc.code, got, tc.want)
		}
	}
}
