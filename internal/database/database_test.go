package database

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

func TestRunReadOnlyReturnsOrderedResult(t *testing.T) {
	db, mock := newSQLMock(t)
	m := NewWithDB(db, DialectPostgres)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name FROM users")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow(int64(1), []byte("ada")).
			AddRow(int64(2), []byte("grace")))

	result, err := m.RunReadOnly(context.Background(), "SELECT id, name FROM users")
	if err != nil {
		t.Fatalf("RunReadOnly() error = %v", err)
	}
	if result.RowCount != 2 {
		t.Fatalf("RowCount = %d", result.RowCount)
	}
	if len(result.Columns) != 2 || result.Columns[0] != "id" || result.Columns[1] != "name" {
		t.Fatalf("Columns = %v", result.Columns)
	}
	if result.Rows[0][1] != "ada" {
		t.Fatalf("Rows[0][1] = %#v, want byte slices normalized to string", result.Rows[0][1])
	}
	assertSQLMock(t, mock)
}

func TestRunReadOnlyRejectsUnsafeStatementBeforeExecution(t *testing.T) {
	db, mock := newSQLMock(t)
	m := NewWithDB(db, DialectSQLite)

	_, err := m.RunReadOnly(context.Background(), "DROP TABLE users")
	if !errors.Is(err, ErrUnsafeStatement) {
		t.Fatalf("err = %v, want ErrUnsafeStatement", err)
	}
	// No query expectations were registered: the guard fires first.
	assertSQLMock(t, mock)
}

func TestRunReadOnlyWrapsDriverFailure(t *testing.T) {
	db, mock := newSQLMock(t)
	m := NewWithDB(db, DialectPostgres)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT nope FROM users")).
		WillReturnError(errors.New(`column "nope" does not exist`))

	_, err := m.RunReadOnly(context.Background(), "SELECT nope FROM users")
	var execErr *ExecError
	if !errors.As(err, &execErr) {
		t.Fatalf("err = %T, want *ExecError", err)
	}
	if execErr.SQL != "SELECT nope FROM users" {
		t.Fatalf("ExecError.SQL = %q", execErr.SQL)
	}
	if execErr.Error() != `column "nope" does not exist` {
		t.Fatalf("ExecError.Error() = %q", execErr.Error())
	}
	assertSQLMock(t, mock)
}

func TestTestConnection(t *testing.T) {
	db, mock := newSQLMock(t)
	m := NewWithDB(db, DialectPostgres)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1")).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	if err := m.TestConnection(context.Background()); err != nil {
		t.Fatalf("TestConnection() error = %v", err)
	}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1")).
		WillReturnError(errors.New("connection refused"))
	err := m.TestConnection(context.Background())
	var connErr *ConnectivityError
	if !errors.As(err, &connErr) {
		t.Fatalf("err = %T, want *ConnectivityError", err)
	}
	assertSQLMock(t, mock)
}

func TestSchemaSummaryFromInformationSchema(t *testing.T) {
	db, mock := newSQLMock(t)
	m := NewWithDB(db, DialectPostgres)

	mock.ExpectQuery("SELECT table_name, column_name, data_type").
		WithArgs("public").
		WillReturnRows(sqlmock.NewRows([]string{"table_name", "column_name", "data_type"}).
			AddRow("orders", "id", "integer").
			AddRow("orders", "user_id", "integer").
			AddRow("orders", "total", "numeric").
			AddRow("users", "id", "integer"))

	summary, err := m.SchemaSummary(context.Background())
	if err != nil {
		t.Fatalf("SchemaSummary() error = %v", err)
	}
	want := "Table orders: id (integer), user_id (integer), total (numeric)\nTable users: id (integer)"
	if summary != want {
		t.Fatalf("SchemaSummary() = %q, want %q", summary, want)
	}
	assertSQLMock(t, mock)
}

func TestSchemaSummaryPropagatesConnectivityError(t *testing.T) {
	db, mock := newSQLMock(t)
	m := NewWithDB(db, DialectPostgres)

	mock.ExpectQuery("SELECT table_name, column_name, data_type").
		WithArgs("public").
		WillReturnError(errors.New("server closed the connection"))

	_, err := m.SchemaSummary(context.Background())
	var connErr *ConnectivityError
	if !errors.As(err, &connErr) {
		t.Fatalf("err = %T, want *ConnectivityError", err)
	}
	assertSQLMock(t, mock)
}

func newSQLMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func assertSQLMock(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sql expectations: %v", err)
	}
}
