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
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected"},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, publicMsg: "state transition disallowed", detailsOK: true},
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
	err := New(CodeStateConflict, "already paused")
	if got := As(err); got == nil || got.Code() != CodeStateConflict {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestIsCodeFollowsWrappedChain(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(CodeNotFound, "patient not found"))
	if !IsCode(err, CodeNotFound) {
		t.Fatalf("expected not found code through wrap")
	}
	if IsCode(err, CodeValidation) {
		t.Fatalf("unexpected validation match")
	}
	if IsCode(stdErrors.New("plain"), CodeInternal) {
		t.Fatalf("untyped errors should not match")
	}
}

func TestInvalidAndNotFoundHelpers(t *testing.T) {
	err := Invalid("days", "must not be zero")
	if err.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", err.Code())
	}
	details, ok := err.Details().(map[string]string)
	if !ok || details["days"] != "must not be zero" {
		t.Fatalf("unexpected details %#v", err.Details())
	}

	missing := NotFound("pause")
	if missing.Code() != CodeNotFound || missing.Message() != "pause not found" {
		t.Fatalf("unexpected not found error %v", missing)
	}
}

func TestRetryable(t *testing.T) {
	if Retryable(nil) {
		t.Fatalf("nil error is not retryable")
	}
	if Retryable(New(CodeStateConflict, "already paused")) {
		t.Fatalf("state conflicts are not retryable")
	}
	if !Retryable(Wrap(CodeDependency, stdErrors.New("db down"), "load patient")) {
		t.Fatalf("dependency failures are retryable")
	}
	if !Retryable(stdErrors.New("plain")) {
		t.Fatalf("untyped errors count as internal")
	}
}

func TestErrorStringIncludesCause(t *testing.T) {
	err := Wrap(CodeDependency, stdErrors.New("disk full"), "write history")
	if got := err.Error(); got != "DEPENDENCY_ERROR: write history: disk full" {
		t.Fatalf("unexpected error string %q", got)
	}
}

func TestDescribeCollectsChain(t *testing.T) {
	err := fmt.Errorf("persist: %w", Wrap(CodeDependency, stdErrors.New("disk full"), "write history"))
	dump := Describe(err)
	if dump.Code != CodeDependency {
		t.Fatalf("expected dependency code, got %s", dump.Code)
	}
	if len(dump.Chain) != 3 {
		t.Fatalf("expected 3 chain entries, got %d: %v", len(dump.Chain), dump.Chain)
	}
	if dump.Driver != "" {
		t.Fatalf("expected no driver details, got %q", dump.Driver)
	}
	if Describe(nil).TopMessage != "" {
		t.Fatalf("expected empty dump for nil")
	}
}

func TestDescribePostgresError(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "payments_pkey", TableName: "payments", Message: "duplicate key value"}
	dump := Describe(Wrap(CodeConflict, pgErr, "insert payment"))
	if dump.Driver != "pgx" || dump.DBCode != "23505" || dump.Constraint != "payments_pkey" {
		t.Fatalf("unexpected dump %+v", dump)
	}

	fields := dump.Fields()
	if fields["db_table"] != "payments" || fields["error_code"] != string(CodeConflict) {
		t.Fatalf("unexpected fields %#v", fields)
	}
	if _, ok := fields["db_column"]; ok {
		t.Fatalf("empty fields must be omitted")
	}
}
