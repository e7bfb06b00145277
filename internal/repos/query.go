package repos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"stockpos/internal/domain"
)

// Querier is satisfied by both *sqlx.DB and *sqlx.Tx.
type Querier interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

// ErrDuplicate wraps unique-constraint violations from either driver.
var ErrDuplicate = errors.New("duplicate key")

func isPostgres(q interface{ DriverName() string }) bool { return q.DriverName() == "pgx" }

// forUpdate adds a row lock on Postgres. SQLite serializes writers on its single connection.
func forUpdate(q Querier) string {
	if isPostgres(q) {
		return " FOR UPDATE"
	}
	return ""
}

// prepare expands IN (?) slices then rebinds placeholders for the driver.
func prepare(q Querier, query string, args []any) (string, []any, error) {
	for _, a := range args {
		if _, ok := a.([]int64); ok {
			var err error
			query, args, err = sqlx.In(query, args...)
			if err != nil {
				return "", nil, err
			}
			break
		}
	}
	return q.Rebind(query), args, nil
}

func get(ctx context.Context, q Querier, dest any, query string, args ...any) error {
	query, args, err := prepare(q, query, args)
	if err != nil {
		return err
	}
	return q.GetContext(ctx, dest, query, args...)
}

func sel(ctx context.Context, q Querier, dest any, query string, args ...any) error {
	query, args, err := prepare(q, query, args)
	if err != nil {
		return err
	}
	return q.SelectContext(ctx, dest, query, args...)
}

func exec(ctx context.Context, q Querier, query string, args ...any) (int64, error) {
	query, args, err := prepare(q, query, args)
	if err != nil {
		return 0, err
	}
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, mapWriteErr(err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// insert runs an INSERT and returns the generated id.
func insert(ctx context.Context, q Querier, query string, args ...any) (int64, error) {
	query, args, err := prepare(q, query+" RETURNING id", args)
	if err != nil {
		return 0, err
	}
	var id int64
	if err := q.QueryRowxContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, mapWriteErr(err)
	}
	return id, nil
}

// scopeFilter renders the shop restriction for col. Every guarded query goes through it.
func scopeFilter(s domain.Scope, col string) (string, []any) {
	switch {
	case s.Unrestricted():
		return "1=1", nil
	case s.Empty():
		return "1=0", nil
	}
	return col + " IN (?)", []any{s.Shops()}
}

// guard rejects writes against a shop outside the scope.
func guard(s domain.Scope, shopID int64) error {
	if !s.Allows(shopID) {
		return domain.Forbidden("shop outside caller scope")
	}
	return nil
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NotFound(what)
	}
	return err
}

func mapWriteErr(err error) error {
	if isUnique(err) {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}

func isUnique(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		c := se.Code()
		if c == sqlite3.SQLITE_CONSTRAINT_UNIQUE || c == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY {
			return true
		}
		return c&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(se.Error(), "UNIQUE")
	}
	var pe *pgconn.PgError
	if errors.As(err, &pe) {
		return pe.Code == "23505"
	}
	return false
}

// pageClause appends LIMIT/OFFSET; page is 1-based.
func pageClause(page, size int) string {
	if size <= 0 {
		size = 50
	}
	if page < 1 {
		page = 1
	}
	return fmt.Sprintf(" LIMIT %d OFFSET %d", size, (page-1)*size)
}
