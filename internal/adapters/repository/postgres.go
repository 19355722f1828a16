package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	postgresStoreName  = "postgres"
	uniqueViolationSQL = "23505"
)

//go:embed schema.sql
var schema embed.FS

// Open connects a pgx pool and pings it.
func Open(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// Migrate applies the embedded schema. It is idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	sqlBytes, err := schema.ReadFile("schema.sql")
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, string(sqlBytes)); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Table maps an entity onto a SQL table. Columns[0] is the id column and
// Values must return arguments in Columns order.
type Table[T any] struct {
	Name    string
	Columns []string
	OrderBy string
	ID      func(T) string
	Values  func(T) ([]any, error)
	Scan    func(pgx.Row) (T, error)
}

// PostgresStore is a Repository over a pgx pool.
type PostgresStore[T any] struct {
	pool  *pgxpool.Pool
	table Table[T]

	selectSQL string
	insertSQL string
	updateSQL string
	deleteSQL string
}

// NewPostgresStore prepares the SQL for table.
func NewPostgresStore[T any](pool *pgxpool.Pool, table Table[T]) *PostgresStore[T] {
	cols := strings.Join(table.Columns, ", ")
	placeholders := make([]string, len(table.Columns))
	sets := make([]string, 0, len(table.Columns)-1)
	for i, c := range table.Columns {
		placeholders[i] = "$" + strconv.Itoa(i+1)
		if i > 0 {
			sets = append(sets, c+" = $"+strconv.Itoa(i+1))
		}
	}
	idCol := table.Columns[0]
	return &PostgresStore[T]{
		pool:      pool,
		table:     table,
		selectSQL: "SELECT " + cols + " FROM " + table.Name,
		insertSQL: "INSERT INTO " + table.Name + " (" + cols + ") VALUES (" + strings.Join(placeholders, ", ") + ")",
		updateSQL: "UPDATE " + table.Name + " SET " + strings.Join(sets, ", ") + " WHERE " + idCol + " = $1",
		deleteSQL: "DELETE FROM " + table.Name + " WHERE " + idCol + " = $1",
	}
}

// FetchByID implements Repository.
func (s *PostgresStore[T]) FetchByID(ctx context.Context, id string) (T, error) {
	defer observe(postgresStoreName, "fetch_by_id", time.Now())
	row := s.pool.QueryRow(ctx, s.selectSQL+" WHERE "+s.table.Columns[0]+" = $1", id)
	v, err := s.table.Scan(row)
	if errors.Is(err, pgx.ErrNoRows) {
		var zero T
		return zero, ErrNotFound
	}
	return v, err
}

// FetchMany implements Repository.
func (s *PostgresStore[T]) FetchMany(ctx context.Context, q Query) ([]T, error) {
	defer observe(postgresStoreName, "fetch_many", time.Now())
	if q.Limit < 0 || q.Offset < 0 {
		return nil, ErrInvalidLimit
	}
	sql := s.selectSQL
	if s.table.OrderBy != "" {
		sql += " ORDER BY " + s.table.OrderBy
	}
	args := []any{q.Offset}
	sql += " OFFSET $1"
	if q.Limit > 0 {
		sql += " LIMIT $2"
		args = append(args, q.Limit)
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		v, err := s.table.Scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// InsertOne implements Repository.
func (s *PostgresStore[T]) InsertOne(ctx context.Context, v T) error {
	defer observe(postgresStoreName, "insert_one", time.Now())
	args, err := s.table.Values(v)
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, s.insertSQL, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationSQL {
			return ErrConflict
		}
		return err
	}
	return nil
}

// UpdateByID implements Repository.
func (s *PostgresStore[T]) UpdateByID(ctx context.Context, id string, v T) error {
	defer observe(postgresStoreName, "update_by_id", time.Now())
	args, err := s.table.Values(v)
	if err != nil {
		return err
	}
	args[0] = id
	tag, err := s.pool.Exec(ctx, s.updateSQL, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByID implements Repository.
func (s *PostgresStore[T]) DeleteByID(ctx context.Context, id string) error {
	defer observe(postgresStoreName, "delete_by_id", time.Now())
	tag, err := s.pool.Exec(ctx, s.deleteSQL, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
