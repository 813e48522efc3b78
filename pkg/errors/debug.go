package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// PGDiag holds the server diagnostics of a postgres error, whichever driver
// raised it.
type PGDiag struct {
	Code       string `json:"pg_code,omitempty"`
	Constraint string `json:"pg_constraint,omitempty"`
	Table      string `json:"pg_table,omitempty"`
	Column     string `json:"pg_column,omitempty"`
	Detail     string `json:"pg_detail,omitempty"`
	Message    string `json:"pg_message,omitempty"`
}

// Postgres finds the first pgx or lib/pq error in err's chain.
func Postgres(err error) (PGDiag, bool) {
	if pgxErr := (*pgconn.PgError)(nil); errors.As(err, &pgxErr) {
		return PGDiag{
			Code:       pgxErr.Code,
			Constraint: pgxErr.ConstraintName,
			Table:      pgxErr.TableName,
			Column:     pgxErr.ColumnName,
			Detail:     pgxErr.Detail,
			Message:    pgxErr.Message,
		}, true
	}
	if pqErr := (*pq.Error)(nil); errors.As(err, &pqErr) {
		return PGDiag{
			Code:       string(pqErr.Code),
			Constraint: pqErr.Constraint,
			Table:      pqErr.Table,
			Column:     pqErr.Column,
			Detail:     pqErr.Detail,
			Message:    pqErr.Message,
		}, true
	}
	return PGDiag{}, false
}

// ErrorDump flattens an error chain for structured logs.
type ErrorDump struct {
	TopMessage string   `json:"top_message"`
	Code       Code     `json:"code,omitempty"`
	Details    any      `json:"details,omitempty"`
	Chain      []string `json:"chain,omitempty"`
	PGDiag
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}
	d := ErrorDump{TopMessage: err.Error()}
	if typed := As(err); typed != nil {
		d.Code, d.Details = typed.Code(), typed.Details()
	}
	for cur := err; cur != nil; cur = errors.Unwrap(cur) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", cur, cur))
	}
	d.PGDiag, _ = Postgres(err)
	return d
}

// Fields renders the dump as logger fields, leaving out empty ones.
func (d ErrorDump) Fields() map[string]any {
	out := map[string]any{"error_message": d.TopMessage}
	set := func(key string, v any, ok bool) {
		if ok {
			out[key] = v
		}
	}
	set("error_code", d.Code, d.Code != "")
	set("error_details", d.Details, d.Details != nil)
	set("error_chain", d.Chain, len(d.Chain) > 1)
	set("pg_code", d.PGDiag.Code, d.PGDiag.Code != "")
	set("pg_constraint", d.Constraint, d.Constraint != "")
	set("pg_table", d.Table, d.Table != "")
	return out
}
