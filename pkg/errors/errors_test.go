package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
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
		{code: CodeInsufficient, status: http.StatusConflict, publicMsg: "insufficient stock", detailsOK: true},
		{code: CodeIdempotency, status: http.StatusConflict, publicMsg: "idempotency key reused", detailsOK: true},
		{code: CodeRateLimit, status: http.StatusTooManyRequests, publicMsg: "rate limit exceeded"},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
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

func TestInsufficientStockMetadata(t *testing.T) {
	meta := MetadataFor(CodeInsufficient)
	if meta.HTTPStatus != http.StatusConflict {
		t.Fatalf("expected conflict status, got %d", meta.HTTPStatus)
	}
	if !meta.DetailsAllowed {
		t.Fatalf("expected shortfall details to be exposed")
	}
}

func TestIsCodeAndNewf(t *testing.T) {
	err := Newf(CodeNotFound, "order %s not found", "abc")
	if err.Message() != "order abc not found" {
		t.Fatalf("unexpected message %q", err.Message())
	}
	wrapped := fmt.Errorf("outer: %w", err)
	if !IsCode(wrapped, CodeNotFound) {
		t.Fatalf("expected wrapped error to carry not found code")
	}
	if IsCode(wrapped, CodeConflict) {
		t.Fatalf("did not expect conflict code")
	}
	if IsCode(stdErrors.New("plain"), CodeNotFound) {
		t.Fatalf("plain errors carry no code")
	}
}

func TestDumpCollectsChain(t *testing.T) {
	cause := stdErrors.New("connection reset")
	err := Wrap(CodeDependency, cause, "load product")
	dump := Dump(fmt.Errorf("handler: %w", err))
	if dump.Code != CodeDependency {
		t.Fatalf("expected dependency code, got %s", dump.Code)
	}
	if len(dump.Chain) != 3 {
		t.Fatalf("expected 3 chain entries, got %d: %v", len(dump.Chain), dump.Chain)
	}
	if dump.PG != nil {
		t.Fatalf("expected no postgres error, got %+v", dump.PG)
	}
	if _, ok := dump.LogFields()["pg_code"]; ok {
		t.Fatalf("pg_code should be absent without a server error")
	}
}

func TestDumpExtractsPostgresError(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "products_tenant_sku_key", TableName: "products", Message: "duplicate key value"}
	dump := Dump(Wrap(CodeConflict, pgErr, "create product"))
	if dump.PG == nil || dump.PG.Code != "23505" || dump.PG.Constraint != "products_tenant_sku_key" || dump.PG.Table != "products" {
		t.Fatalf("unexpected pg fields: %+v", dump.PG)
	}
	if dump.LogFields()["pg_constraint"] != "products_tenant_sku_key" {
		t.Fatalf("log fields missing constraint: %v", dump.LogFields())
	}
}

func TestPostgresReadsLibPQErrors(t *testing.T) {
	pqErr := &pq.Error{Code: "23503", Constraint: "order_items_product_id_fkey", Table: "order_items"}
	got, ok := Postgres(fmt.Errorf("insert item: %w", pqErr))
	if !ok || got.Code != "23503" || got.Constraint != "order_items_product_id_fkey" {
		t.Fatalf("unexpected result: %+v ok=%v", got, ok)
	}
	if _, ok := Postgres(stdErrors.New("plain")); ok {
		t.Fatalf("plain error is not a postgres error")
	}
}
