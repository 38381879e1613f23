package database

import (
	"fmt"
	"strings"
)

// Dialect identifies the SQL flavor of the target database. It is derived
// once from the normalized DSN at setup and threaded through explicitly;
// nothing inspects a live connection to guess it.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
	DialectDuckDB   Dialect = "duckdb"
)

// NormalizeDSN turns a database identifier into a connection URL. Anything
// that already carries a scheme passes through unchanged; a bare filesystem
// path is treated as a local SQLite file. Idempotent.
func NormalizeDSN(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.Contains(raw, "://") {
		return raw
	}
	if strings.HasPrefix(strings.ToLower(raw), "sqlite:") {
		return raw
	}
	return "sqlite:///" + raw
}

// DialectFromDSN maps a normalized DSN onto a supported dialect. SQLAlchemy
// style driver suffixes ("postgresql+psycopg2") are tolerated.
func DialectFromDSN(dsn string) (Dialect, error) {
	scheme, _, found := strings.Cut(dsn, "://")
	if !found {
		return "", fmt.Errorf("dsn %q has no scheme", dsn)
	}
	scheme = strings.ToLower(scheme)
	if base, _, hasDriver := strings.Cut(scheme, "+"); hasDriver {
		scheme = base
	}
	switch scheme {
	case "sqlite":
		return DialectSQLite, nil
	case "postgres", "postgresql":
		return DialectPostgres, nil
	case "duckdb":
		return DialectDuckDB, nil
	default:
		return "", fmt.Errorf("unsupported database scheme %q", scheme)
	}
}

// driverDSN converts a normalized DSN into the string the registered
// database/sql driver expects.
func driverDSN(dialect Dialect, dsn string) string {
	switch dialect {
	case DialectSQLite:
		return filePathFromDSN(dsn, "sqlite")
	case DialectDuckDB:
		return filePathFromDSN(dsn, "duckdb")
	case DialectPostgres:
		// pgx rejects SQLAlchemy driver suffixes, so rewrite the scheme.
		if _, rest, found := strings.Cut(dsn, "://"); found {
			return "postgres://" + rest
		}
		return dsn
	default:
		return dsn
	}
}

func filePathFromDSN(dsn, scheme string) string {
	lower := strings.ToLower(dsn)
	prefix := scheme + "://"
	if !strings.HasPrefix(lower, prefix) {
		return dsn
	}
	// scheme:///relative/path and scheme:////absolute/path both carry one
	// leading slash that is not part of the file path.
	return strings.TrimPrefix(dsn[len(prefix):], "/")
}
