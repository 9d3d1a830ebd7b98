package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// dbDetail is the subset of a Postgres error worth logging. Both the pgx and
// lib/pq drivers can surface one, depending on how the pool was opened.
type dbDetail struct {
	code, constraint, table, column, detail, message string
}

func databaseDetail(err error) (dbDetail, bool) {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return dbDetail{pgxErr.Code, pgxErr.ConstraintName, pgxErr.TableName, pgxErr.ColumnName, pgxErr.Detail, pgxErr.Message}, true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return dbDetail{string(pqErr.Code), pqErr.Constraint, pqErr.Table, pqErr.Column, pqErr.Detail, pqErr.Message}, true
	}
	return dbDetail{}, false
}

// LogFields flattens err into structured log fields. error_chain names the
// wrapper types only, since the error text already carries every message.
// Empty Postgres diagnostics are left out.
func LogFields(err error) map[string]any {
	if err == nil {
		return map[string]any{}
	}
	fields := map[string]any{"error": err.Error()}
	if te := As(err); te != nil {
		fields["error_code"] = string(te.Code())
	}

	var chain []string
	for e := err; e != nil; e = errors.Unwrap(e) {
		chain = append(chain, fmt.Sprintf("%T", e))
	}
	if len(chain) > 1 {
		fields["error_chain"] = chain
	}

	if d, ok := databaseDetail(err); ok {
		for key, value := range map[string]string{
			"pg_code":       d.code,
			"pg_constraint": d.constraint,
			"pg_table":      d.table,
			"pg_column":     d.column,
			"pg_detail":     d.detail,
			"pg_message":    d.message,
		} {
			if value != "" {
				fields[key] = value
			}
		}
	}
	return fields
}
