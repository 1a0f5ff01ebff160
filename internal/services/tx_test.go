package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsRetryableTxError(t *testing.T) {
	if !isRetryableTxError(&pgconn.PgError{Code: "40001"}) {
		t.Errorf("expected serialization failure to be retryable")
	}
	if !isRetryableTxError(&pgconn.PgError{Code: "40P01"}) {
		t.Errorf("expected deadlock to be retryable")
	}
	if !isRetryableTxError(fmt.Errorf("commit: %w", &pgconn.PgError{Code: "40001"})) {
		t.Errorf("expected wrapped serialization failure to be retryable")
	}
	if isRetryableTxError(&pgconn.PgError{Code: "23505"}) {
		t.Errorf("expected unique violation not to be retryable")
	}
	if isRetryableTxError(errors.New("boom")) {
		t.Errorf("expected plain error not to be retryable")
	}
	if isRetryableTxError(nil) {
		t.Errorf("expected nil not to be retryable")
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if !isUniqueViolation(&pgconn.PgError{Code: "23505"}) {
		t.Errorf("expected 23505 to be a unique violation")
	}
	if !isUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})) {
		t.Errorf("expected wrapped 23505 to be a unique violation")
	}
	if isUniqueViolation(&pgconn.PgError{Code: "40001"}) {
		t.Errorf("expected 40001 not to be a unique violation")
	}
	if isUniqueViolation(nil) {
		t.Errorf("expected nil not to be a unique violation")
	}
}
