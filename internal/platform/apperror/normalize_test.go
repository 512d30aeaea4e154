package apperror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func TestClassify_Validation(t *testing.T) {
	err := Validation("Please add a valid email", "Date of birth is required")

	status, kind, env := Classify(err, "/api/patients")

	if status != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", status)
	}
	if kind != KindValidation {
		t.Errorf("expected validation kind, got %v", kind)
	}
	msgs, ok := env.Error.([]string)
	if !ok {
		t.Fatalf("expected []string error, got %T", env.Error)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0] != "Please add a valid email" {
		t.Errorf("field order not preserved: first message %q", msgs[0])
	}
}

func TestClassify_ValidationPreservesStatusHint(t *testing.T) {
	err := Validation("First name is required").WithStatus(http.StatusBadRequest)

	status, _, _ := Classify(err, "/")
	if status != http.StatusBadRequest {
		t.Errorf("expected upstream 400 preserved, got %d", status)
	}
}

func TestClassify_DuplicateKey(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}
	wrapped := fmt.Errorf("create user: %w", pgErr)

	status, kind, env := Classify(wrapped, "/api/auth/register")

	if status != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", status)
	}
	if kind != KindDuplicate {
		t.Errorf("expected duplicate kind, got %v", kind)
	}
	if env.Error != "Duplicate field value entered" {
		t.Errorf("unexpected message: %v", env.Error)
	}
}

func TestClassify_NoRowsIsResourceNotFound(t *testing.T) {
	wrapped := fmt.Errorf("get patient: %w", pgx.ErrNoRows)

	status, _, env := Classify(wrapped, "/api/patients/abc")

	if status != http.StatusNotFound {
		t.Errorf("expected 404, got %d", status)
	}
	if env.Error != "Resource not found" {
		t.Errorf("unexpected message: %v", env.Error)
	}
}

func TestClassify_BadID(t *testing.T) {
	status, _, env := Classify(BadID(errors.New("invalid UUID length")), "/api/patients/xyz")

	if status != http.StatusNotFound {
		t.Errorf("expected 404, got %d", status)
	}
	if env.Error != "Resource not found" {
		t.Errorf("unexpected message: %v", env.Error)
	}
}

func TestClassify_RouteNotFound(t *testing.T) {
	status, _, env := Classify(echo.ErrNotFound, "/api/nope")

	if status != http.StatusNotFound {
		t.Errorf("expected 404, got %d", status)
	}
	if env.Error != "Not Found - /api/nope" {
		t.Errorf("unexpected message: %v", env.Error)
	}
}

func TestClassify_GenericDefaultsTo500(t *testing.T) {
	status, kind, env := Classify(errors.New("boom"), "/")

	if status != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", status)
	}
	if kind != KindGeneric {
		t.Errorf("expected generic kind, got %v", kind)
	}
	if env.Error != "boom" {
		t.Errorf("expected failure's own message, got %v", env.Error)
	}
}

func TestClassify_GenericKeepsStatusHint(t *testing.T) {
	status, _, env := Classify(New(http.StatusNotFound, "Patient not found"), "/")

	if status != http.StatusNotFound {
		t.Errorf("expected 404, got %d", status)
	}
	if env.Error != "Patient not found" {
		t.Errorf("unexpected message: %v", env.Error)
	}
}

func TestClassify_Forbidden(t *testing.T) {
	status, _, env := Classify(Forbidden("user"), "/api/auth/users")

	if status != http.StatusForbidden {
		t.Errorf("expected 403, got %d", status)
	}
	if env.Error != "Role user is not authorized to access this route" {
		t.Errorf("unexpected message: %v", env.Error)
	}
}

func runHandler(t *testing.T, exposeStack bool, err error) (*httptest.ResponseRecorder, Envelope) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/patients", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := ErrorHandler(zerolog.Nop(), exposeStack)
	h(err, c)

	var env Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("invalid envelope JSON: %v", err)
	}
	return rec, env
}

func TestErrorHandler_EnvelopeShape(t *testing.T) {
	rec, env := runHandler(t, false, Unauthenticated("Not authorized, no token"))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
	if env.Success {
		t.Error("expected success=false")
	}
	if env.Error != "Not authorized, no token" {
		t.Errorf("unexpected message: %v", env.Error)
	}
	if env.Stack != "" {
		t.Error("stack must be absent when not exposed")
	}
}

func TestErrorHandler_StackOnlyForGenericOutsideProduction(t *testing.T) {
	_, env := runHandler(t, true, errors.New("boom"))
	if env.Stack == "" {
		t.Error("expected stack for generic failure outside production")
	}

	_, env = runHandler(t, true, Validation("First name is required"))
	if env.Stack != "" {
		t.Error("classified failures must not carry a stack")
	}

	_, env = runHandler(t, false, errors.New("boom"))
	if env.Stack != "" {
		t.Error("stack must never be exposed in production")
	}
}
