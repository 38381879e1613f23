package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/marcboeker/go-duckdb/v2"
	_ "modernc.org/sqlite"

	"github.com/sqlscout/sqlscout/internal/observability"
)

// QueryResult is the tabular outcome of one read-only statement: ordered
// columns, ordered rows, and the fetched row count.
type QueryResult struct {
	Columns  []string
	Rows     [][]any
	RowCount int
	Duration time.Duration
}

// Config mirrors config.DatabaseConfig without importing it, so the package
// stays usable with ad-hoc connections (CLI --db flag, tests).
type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
}

// Manager wraps one target database: a lazily pooled connection plus the
// dialect derived from its DSN. Safe for concurrent use to the extent
// database/sql's pool is; one orchestration run uses it sequentially.
type Manager struct {
	db      *sql.DB
	dialect Dialect
}

var driverForDialect = map[Dialect]string{
	DialectSQLite:   "sqlite",
	DialectPostgres: "pgx",
	DialectDuckDB:   "duckdb",
}

func Open(cfg Config) (*Manager, error) {
	dsn := NormalizeDSN(cfg.DSN)
	dialect, err := DialectFromDSN(dsn)
	if err != nil {
		return nil, &ConnectivityError{Op: "resolve dialect", Err: err}
	}

	db, err := sql.Open(driverForDialect[dialect], driverDSN(dialect, dsn))
	if err != nil {
		return nil, &ConnectivityError{Op: "open database", Err: err}
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	return &Manager{db: db, dialect: dialect}, nil
}

// NewWithDB wraps an already opened connection. Used by tests.
func NewWithDB(db *sql.DB, dialect Dialect) *Manager {
	return &Manager{db: db, dialect: dialect}
}

func (m *Manager) Dialect() Dialect {
	return m.dialect
}

func (m *Manager) Close() error {
	return m.db.Close()
}

// TestConnection probes the database with SELECT 1.
func (m *Manager) TestConnection(ctx context.Context) error {
	var one int
	if err := m.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return &ConnectivityError{Op: "test connection", Err: err}
	}
	return nil
}

// RunReadOnly executes a single statement after it passes the guard. Guard
// rejections surface as ErrUnsafeStatement, driver failures as *ExecError;
// both are retryable from the agent's point of view.
func (m *Manager) RunReadOnly(ctx context.Context, sqlText string) (*QueryResult, error) {
	if !IsReadOnly(sqlText) {
		return nil, fmt.Errorf("%w: %s", ErrUnsafeStatement, firstKeyword(sqlText))
	}

	start := time.Now()
	rows, err := m.db.QueryContext(ctx, sqlText)
	if err != nil {
		return nil, &ExecError{SQL: sqlText, Err: err}
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, &ExecError{SQL: sqlText, Err: err}
	}

	resultRows := make([][]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, &ExecError{SQL: sqlText, Err: err}
		}
		resultRows = append(resultRows, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return nil, &ExecError{SQL: sqlText, Err: err}
	}

	duration := time.Since(start)
	observability.RecordQuery(duration)

	return &QueryResult{
		Columns:  columns,
		Rows:     resultRows,
		RowCount: len(resultRows),
		Duration: duration,
	}, nil
}

// SchemaSummary renders one line per table, "Table <name>: col (TYPE), …",
// in catalog enumeration order. Recomputed on every call; introspection
// failures are connectivity faults, not execution failures.
func (m *Manager) SchemaSummary(ctx context.Context) (string, error) {
	var (
		lines []string
		err   error
	)
	switch m.dialect {
	case DialectSQLite:
		lines, err = m.sqliteSchemaLines(ctx)
	default:
		lines, err = m.informationSchemaLines(ctx)
	}
	if err != nil {
		return "", &ConnectivityError{Op: "introspect schema", Err: err}
	}
	return strings.Join(lines, "\n"), nil
}

func (m *Manager) sqliteSchemaLines(ctx context.Context) ([]string, error) {
	tables, err := m.db.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'")
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer func() { _ = tables.Close() }()

	var names []string
	for tables.Next() {
		var name string
		if err := tables.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		names = append(names, name)
	}
	if err := tables.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}

	lines := make([]string, 0, len(names))
	for _, name := range names {
		columns, err := m.sqliteColumns(ctx, name)
		if err != nil {
			return nil, err
		}
		lines = append(lines, fmt.Sprintf("Table %s: %s", name, strings.Join(columns, ", ")))
	}
	return lines, nil
}

func (m *Manager) sqliteColumns(ctx context.Context, table string) ([]string, error) {
	rows, err := m.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(table)))
	if err != nil {
		return nil, fmt.Errorf("table info for %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	var columns []string
	for rows.Next() {
		var (
			cid       int
			name      string
			colType   sql.NullString
			notNull   int
			dflt      sql.NullString
			primaryPK int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &primaryPK); err != nil {
			return nil, fmt.Errorf("scan column for %s: %w", table, err)
		}
		columns = append(columns, fmt.Sprintf("%s (%s)", name, colType.String))
	}
	return columns, rows.Err()
}

func (m *Manager) informationSchemaLines(ctx context.Context) ([]string, error) {
	schema := "public"
	if m.dialect == DialectDuckDB {
		schema = "main"
	}
	rows, err := m.db.QueryContext(ctx,
		`SELECT table_name, column_name, data_type
		 FROM information_schema.columns
		 WHERE table_schema = $1
		 ORDER BY table_name, ordinal_position`, schema)
	if err != nil {
		return nil, fmt.Errorf("list columns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var (
		order   []string
		byTable = map[string][]string{}
	)
	for rows.Next() {
		var table, column, dataType string
		if err := rows.Scan(&table, &column, &dataType); err != nil {
			return nil, fmt.Errorf("scan column row: %w", err)
		}
		if _, seen := byTable[table]; !seen {
			order = append(order, table)
		}
		byTable[table] = append(byTable[table], fmt.Sprintf("%s (%s)", column, dataType))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns: %w", err)
	}

	lines := make([]string, 0, len(order))
	for _, table := range order {
		lines = append(lines, fmt.Sprintf("Table %s: %s", table, strings.Join(byTable[table], ", ")))
	}
	return lines, nil
}

func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		default:
			normalized[i] = typed
		}
	}
	return normalized
}

func quoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

func firstKeyword(sqlText string) string {
	normalized := strings.ToUpper(sqlText)
	for _, keyword := range readOnlyBlocklist {
		if strings.Contains(normalized, keyword) {
			return keyword
		}
	}
	return "statement"
}
