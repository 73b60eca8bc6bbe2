package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testModel struct {
	ID   int
	Name string
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&testModel{}); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}
	return conn
}

func TestWithTx_CommitsAndRollbacks(t *testing.T) {
	db := newTestDB(t)
	client := &Client{conn: db}

	ctx := context.Background()
	if err := client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&testModel{Name: "committed"}).Error
	}); err != nil {
		t.Fatalf("WithTx commit failed: %v", err)
	}

	var count int64
	if err := db.Model(&testModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 record, got %d", count)
	}

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&testModel{Name: "rolled"}).Error; err != nil {
			return err
		}
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected WithTx to return an error")
	}
	if err := db.Model(&testModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed after rollback: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected rollback to leave 1 record, got %d", count)
	}
}

func TestPing(t *testing.T) {
	db := newTestDB(t)
	client := &Client{conn: db}
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected ping error: %v", err)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "transactions_reference_key"}
	if !IsUniqueViolation(pgErr, "") {
		t.Fatal("expected pg unique violation")
	}
	if !IsUniqueViolation(pgErr, "transactions_reference_key") {
		t.Fatal("expected named constraint match")
	}
	if IsUniqueViolation(pgErr, "orders_reference_key") {
		t.Fatal("unexpected match on other constraint")
	}
	if IsUniqueViolation(&pgconn.PgError{Code: "23503"}, "") {
		t.Fatal("foreign key violation is not a unique violation")
	}
	if !IsUniqueViolation(errors.New("UNIQUE constraint failed: transactions.reference"), "") {
		t.Fatal("expected sqlite unique violation")
	}
	if IsUniqueViolation(nil, "") {
		t.Fatal("nil is not a violation")
	}
}

func TestIsUniqueViolationFromSQLite(t *testing.T) {
	db := newTestDB(t)
	require := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require(db.Exec("CREATE TABLE IF NOT EXISTS refs (reference TEXT PRIMARY KEY)").Error)
	require(db.Exec("DELETE FROM refs").Error)
	require(db.Exec("INSERT INTO refs (reference) VALUES ('ref-1')").Error)

	err := db.Exec("INSERT INTO refs (reference) VALUES ('ref-1')").Error
	if !IsUniqueViolation(err, "") {
		t.Fatalf("expected unique violation, got %v", err)
	}
}

func TestIsRetryableTx(t *testing.T) {
	if !IsRetryableTx(&pgconn.PgError{Code: "40001"}) {
		t.Fatal("serialization failure should be retryable")
	}
	if !IsRetryableTx(fmt.Errorf("commit: %w", &pgconn.PgError{Code: "40P01"})) {
		t.Fatal("wrapped deadlock should be retryable")
	}
	if IsRetryableTx(&pgconn.PgError{Code: "23505"}) || IsRetryableTx(errors.New("boom")) || IsRetryableTx(nil) {
		t.Fatal("only aborted transactions are retryable")
	}
}

func TestWithTxRetriesAbortedTransactions(t *testing.T) {
	client := &Client{conn: newTestDB(t)}

	var calls int
	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		calls++
		if calls < txAttempts {
			return &pgconn.PgError{Code: "40001"}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected final attempt to succeed, got %v", err)
	}
	if calls != txAttempts {
		t.Fatalf("expected %d attempts, got %d", txAttempts, calls)
	}

	calls = 0
	err = client.WithTx(context.Background(), func(tx *gorm.DB) error {
		calls++
		return &pgconn.PgError{Code: "40P01"}
	})
	if !IsRetryableTx(err) || calls != txAttempts {
		t.Fatalf("expected %d attempts ending in deadlock, got %d: %v", txAttempts, calls, err)
	}

	calls = 0
	_ = client.WithTx(context.Background(), func(tx *gorm.DB) error {
		calls++
		return errors.New("boom")
	})
	if calls != 1 {
		t.Fatalf("plain errors must not be retried, got %d attempts", calls)
	}
}
