package errors

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestLogFieldsIncludesPostgresDiagnostics(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "transactions_reference_key", TableName: "transactions"}
	err := Wrap(CodeConflict, fmt.Errorf("insert: %w", pgErr), "record transaction")

	fields := LogFields(err)
	assert.Equal(t, "CONFLICT", fields["error_code"])
	assert.Equal(t, "23505", fields["pg_code"])
	assert.Equal(t, "transactions_reference_key", fields["pg_constraint"])
	assert.NotContains(t, fields, "pg_detail")
	assert.Len(t, fields["error_chain"], 3)
}

func TestLogFieldsReadsLibPQErrors(t *testing.T) {
	fields := LogFields(&pq.Error{Code: "40001", Table: "orders"})
	assert.Equal(t, "40001", fields["pg_code"])
	assert.Equal(t, "orders", fields["pg_table"])
	assert.NotContains(t, fields, "error_code")
}

func TestLogFieldsCarriesStepDetail(t *testing.T) {
	err := New(CodeDependency, "charge").WithDetails(map[string]any{"step": "gateway"})
	assert.Equal(t, "gateway", LogFields(err)["step"])
	assert.Empty(t, LogFields(nil))
}
