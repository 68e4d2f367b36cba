// Package storage persists entities described by schema descriptors in
// SQLite (modernc) or PostgreSQL (pgx) through database/sql.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	_ "modernc.org/sqlite"             // registers the "sqlite" driver

	"github.com/aiokaizen/bear-vision/internal/lava/schema"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// ErrNotFound is returned when no row matches.
var ErrNotFound = errors.New("not found")

// ErrNotOpen is returned by operations on a closed store.
var ErrNotOpen = errors.New("database not opened")

// Config configures Open.
type Config struct {
	// Driver is DriverSQLite or DriverPostgres.
	Driver string
	// DSN is a file path or ":memory:" for SQLite, a connection string for PostgreSQL.
	DSN    string
	Logger *slog.Logger
}

// Store reads and writes entities.
type Store struct {
	db     *sql.DB
	driver string
	logger *slog.Logger
}

// Open connects to the configured database.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	var (
		driverName string
		dsn        string
	)
	switch cfg.Driver {
	case DriverSQLite, "":
		cfg.Driver = DriverSQLite
		driverName = "sqlite"
		dsn = sqliteDSN(cfg.DSN)
	case DriverPostgres:
		driverName = "pgx"
		dsn = cfg.DSN
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.Driver, err)
	}
	if cfg.Driver == DriverSQLite && isMemory(cfg.DSN) {
		// every pooled connection would get its own empty database
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", cfg.Driver, err)
	}

	return New(db, cfg.Driver, cfg.Logger), nil
}

// New wraps an open database handle.
func New(db *sql.DB, driver string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{db: db, driver: driver, logger: logger}
}

func isMemory(dsn string) bool {
	return dsn == "" || strings.HasPrefix(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

func sqliteDSN(path string) string {
	if path == "" {
		path = ":memory:"
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	dsn := path + sep + "_pragma=foreign_keys(1)"
	if !isMemory(path) {
		dsn += "&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	return dsn
}

// DB returns the underlying handle.
func (s *Store) DB() *sql.DB { return s.db }

// Driver returns the configured driver name.
func (s *Store) Driver() string { return s.driver }

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Rebind rewrites ? placeholders for the store's driver.
func (s *Store) Rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func quoteAll(idents []string) string {
	quoted := make([]string, len(idents))
	for i, id := range idents {
		quoted[i] = quote(id)
	}
	return strings.Join(quoted, ", ")
}

func writableColumns(desc *schema.Descriptor) []string {
	cols := make([]string, 0, len(desc.Fields))
	for _, f := range desc.Fields {
		if f.Name == "id" {
			continue
		}
		cols = append(cols, f.Name)
	}
	return cols
}

// Insert stores a new row and returns its identity.
func (s *Store) Insert(ctx context.Context, e schema.Entity) (int64, error) {
	if s.db == nil {
		return 0, ErrNotOpen
	}
	desc := e.Descriptor()
	cols := writableColumns(desc)
	args, err := schema.Values(e, cols)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s values: %w", desc.Key(), err)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", quote(desc.Table()), quoteAll(cols), placeholders)

	if s.driver == DriverPostgres {
		var id int64
		if err := s.db.QueryRowContext(ctx, s.Rebind(query+" RETURNING id"), args...).Scan(&id); err != nil {
			return 0, fmt.Errorf("failed to insert %s: %w", desc.Key(), err)
		}
		return id, nil
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to insert %s: %w", desc.Key(), err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read %s id: %w", desc.Key(), err)
	}
	return id, nil
}

// Update writes every non-identity column of a stored row.
func (s *Store) Update(ctx context.Context, e schema.Entity) error {
	if s.db == nil {
		return ErrNotOpen
	}
	desc := e.Descriptor()
	cols := writableColumns(desc)
	args, err := schema.Values(e, cols)
	if err != nil {
		return fmt.Errorf("failed to read %s values: %w", desc.Key(), err)
	}

	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = quote(c) + " = ?"
	}
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", quote(desc.Table()), strings.Join(sets, ", "))
	args = append(args, e.PK())

	res, err := s.db.ExecContext(ctx, s.Rebind(query), args...)
	if err != nil {
		return fmt.Errorf("failed to update %s %d: %w", desc.Key(), e.PK(), err)
	}
	return expectOne(res, desc, e.PK())
}

// Delete removes a stored row.
func (s *Store) Delete(ctx context.Context, e schema.Entity) error {
	if s.db == nil {
		return ErrNotOpen
	}
	desc := e.Descriptor()
	query := fmt.Sprintf("DELETE FROM %s WHERE id = ?", quote(desc.Table()))
	res, err := s.db.ExecContext(ctx, s.Rebind(query), e.PK())
	if err != nil {
		return fmt.Errorf("failed to delete %s %d: %w", desc.Key(), e.PK(), err)
	}
	return expectOne(res, desc, e.PK())
}

func expectOne(res sql.Result, desc *schema.Descriptor, pk int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", desc.Key(), pk, ErrNotFound)
	}
	return nil
}

// Filter restricts a listing to rows where Field equals Value.
type Filter struct {
	Field string
	Value any
}

// ListOptions controls List.
type ListOptions struct {
	Filters []Filter
	// Limit of zero means no limit.
	Limit  int
	Offset int
}

// Get loads the row with the given identity.
func (s *Store) Get(ctx context.Context, desc *schema.Descriptor, pk int64) (schema.Entity, error) {
	return s.FindBy(ctx, desc, "id", pk)
}

// FindBy loads the first row whose field equals value.
func (s *Store) FindBy(ctx context.Context, desc *schema.Descriptor, field string, value any) (schema.Entity, error) {
	items, err := s.List(ctx, desc, ListOptions{Filters: []Filter{{Field: field, Value: value}}, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%s %s=%v: %w", desc.Key(), field, value, ErrNotFound)
	}
	return items[0], nil
}

// List loads rows in descriptor order.
func (s *Store) List(ctx context.Context, desc *schema.Descriptor, opts ListOptions) ([]schema.Entity, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}
	where, args, err := whereClause(desc, opts.Filters)
	if err != nil {
		return nil, err
	}

	cols := desc.FieldNames()
	query := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s", quoteAll(cols), quote(desc.Table()), where, orderBy(desc))
	if opts.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, opts.Limit, opts.Offset)
	}

	rows, err := s.db.QueryContext(ctx, s.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", desc.Key(), err)
	}
	defer func() { _ = rows.Close() }()

	var out []schema.Entity
	for rows.Next() {
		e := desc.New()
		dest, err := schema.Pointers(e, cols)
		if err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", desc.Key(), err)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", desc.Key(), err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", desc.Key(), err)
	}
	return out, nil
}

// Count returns the number of rows matching filters.
func (s *Store) Count(ctx context.Context, desc *schema.Descriptor, filters ...Filter) (int64, error) {
	if s.db == nil {
		return 0, ErrNotOpen
	}
	where, args, err := whereClause(desc, filters)
	if err != nil {
		return 0, err
	}
	var n int64
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", quote(desc.Table()), where)
	if err := s.db.QueryRowContext(ctx, s.Rebind(query), args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", desc.Key(), err)
	}
	return n, nil
}

func whereClause(desc *schema.Descriptor, filters []Filter) (string, []any, error) {
	if len(filters) == 0 {
		return "", nil, nil
	}
	conds := make([]string, 0, len(filters))
	args := make([]any, 0, len(filters))
	for _, f := range filters {
		if _, ok := desc.Field(f.Field); !ok {
			return "", nil, fmt.Errorf("filter on unknown field %q of %s", f.Field, desc.Key())
		}
		if f.Value == nil {
			conds = append(conds, quote(f.Field)+" IS NULL")
			continue
		}
		conds = append(conds, quote(f.Field)+" = ?")
		args = append(args, f.Value)
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

func orderBy(desc *schema.Descriptor) string {
	if len(desc.Ordering) == 0 {
		return quote("id")
	}
	parts := make([]string, 0, len(desc.Ordering)+1)
	byID := false
	for _, o := range desc.Ordering {
		name, descending := strings.CutPrefix(o, "-")
		byID = byID || name == "id"
		if descending {
			parts = append(parts, quote(name)+" DESC")
		} else {
			parts = append(parts, quote(name))
		}
	}
	if !byID {
		parts = append(parts, quote("id"))
	}
	return strings.Join(parts, ", ")
}
