package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required"},
		{code: CodeForbidden, status: http.StatusForbidden, publicMsg: "access denied"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected"},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, publicMsg: "state transition disallowed", detailsOK: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
		{code: CodeIdentity, status: http.StatusUnauthorized, publicMsg: "customer identity required"},
		{code: CodeEmptyCart, status: http.StatusUnprocessableEntity, publicMsg: "cart is empty"},
		{code: CodeProductNotFound, status: http.StatusNotFound, publicMsg: "product not found", detailsOK: true},
		{code: CodeOutOfStock, status: http.StatusConflict, publicMsg: "product is out of stock", detailsOK: true},
		{code: CodeInsufficientStock, status: http.StatusConflict, publicMsg: "insufficient stock", detailsOK: true},
		{code: CodeInvalidPromo, status: http.StatusUnprocessableEntity, publicMsg: "promo code rejected", detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing foo")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing foo" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	detail := map[string]any{"field": "foo"}
	base.WithDetails(detail)
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "ctx")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeConflict {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
	if got := wrapped.Error(); got != "CONFLICT: ctx: boom" {
		t.Fatalf("unexpected error text %q", got)
	}
	if got := base.Error(); got != "VALIDATION_ERROR: missing foo" {
		t.Fatalf("unexpected error text %q", got)
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := New(CodeForbidden, "no entry")
	if got := As(err); got == nil || got.Code() != CodeForbidden {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestIsCodeFollowsWrappedChain(t *testing.T) {
	inner := New(CodeInsufficientStock, "only 2 left")
	outer := fmt.Errorf("create order: %w", inner)
	if !IsCode(outer, CodeInsufficientStock) {
		t.Fatalf("expected wrapped insufficient stock to match")
	}
	if IsCode(outer, CodeOutOfStock) {
		t.Fatalf("unexpected match for a different code")
	}
	if IsCode(nil, CodeInternal) {
		t.Fatalf("nil error should never match")
	}
}

func TestRetryableSeparatesUserAndInfraErrors(t *testing.T) {
	if Retryable(New(CodeInsufficientStock, "short")) {
		t.Fatalf("inventory errors are user facing")
	}
	if !Retryable(Wrap(CodeDependency, stdErrors.New("conn reset"), "commit order")) {
		t.Fatalf("dependency errors are retry candidates")
	}
	if !Retryable(stdErrors.New("untyped")) {
		t.Fatalf("untyped errors are treated as infrastructure faults")
	}
	if Retryable(nil) {
		t.Fatalf("nil is not retryable")
	}
}

func TestLogFieldsCarriesPostgresDiagnostics(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "idx_orders_order_number", TableName: "orders"}
	err := Wrap(CodeConflict, fmt.Errorf("insert order: %w", pgErr), "duplicate order number")

	fields := LogFields(err)
	if fields["error_code"] != string(CodeConflict) {
		t.Fatalf("expected typed code, got %v", fields["error_code"])
	}
	if fields["pg_code"] != "23505" || fields["pg_constraint"] != "idx_orders_order_number" {
		t.Fatalf("missing postgres detail: %v", fields)
	}
	if _, ok := fields["pg_column"]; ok {
		t.Fatalf("empty diagnostics should be omitted: %v", fields)
	}
	if chain, ok := fields["error_chain"].([]string); !ok || len(chain) < 2 {
		t.Fatalf("expected unwrap chain, got %v", fields["error_chain"])
	}
}

func TestLogFieldsPlainError(t *testing.T) {
	fields := LogFields(stdErrors.New("plain"))
	if fields["error"] != "plain" || len(fields) != 1 {
		t.Fatalf("unexpected fields %v", fields)
	}
	if len(LogFields(nil)) != 0 {
		t.Fatalf("nil error has no fields")
	}
}
