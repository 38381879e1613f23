package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sqlscout/sqlscout/internal/agent"
	"github.com/sqlscout/sqlscout/internal/config"
	"github.com/sqlscout/sqlscout/internal/database"
)

type fakeRunner struct {
	resp *agent.Response
	err  error
}

func (f *fakeRunner) Ask(ctx context.Context, question string) (*agent.Response, error) {
	return f.resp, f.err
}

type fakeDB struct {
	summary    string
	summaryErr error
	result     *database.QueryResult
	queryErr   error
}

func (f *fakeDB) SchemaSummary(ctx context.Context) (string, error) {
	return f.summary, f.summaryErr
}

func (f *fakeDB) RunReadOnly(ctx context.Context, sqlText string) (*database.QueryResult, error) {
	return f.result, f.queryErr
}

func testConfig() config.Config {
	return config.Config{Service: config.ServiceConfig{Name: "sqlscout-api"}}
}

func doRequest(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
	}
	return payload
}

func TestHealthEndpoint(t *testing.T) {
	handler := NewHandler(testConfig(), Dependencies{})

	rec := doRequest(t, handler, http.MethodGet, "/v1/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	payload := decodeBody(t, rec)
	if payload["service"] != "sqlscout-api" {
		t.Fatalf("service = %v", payload["service"])
	}
}

func TestReadyEndpointReportsFailure(t *testing.T) {
	handler := NewHandler(testConfig(), Dependencies{
		Readiness: func(ctx context.Context) error {
			return errors.New("connection refused")
		},
	})

	rec := doRequest(t, handler, http.MethodGet, "/v1/ready", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
	payload := decodeBody(t, rec)
	if payload["error_code"] != "NOT_READY" {
		t.Fatalf("error_code = %v", payload["error_code"])
	}
}

func TestAskSuccess(t *testing.T) {
	runner := &fakeRunner{resp: &agent.Response{
		SQL: "SELECT COUNT(*) FROM users",
		Result: &database.QueryResult{
			Columns:  []string{"count"},
			Rows:     [][]any{{float64(42)}},
			RowCount: 1,
		},
		Attempts: 2,
		Answer:   "There are 42 users.",
	}}
	handler := NewHandler(testConfig(), Dependencies{Runner: runner})

	rec := doRequest(t, handler, http.MethodPost, "/v1/ask", `{"question":"how many users?"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	payload := decodeBody(t, rec)
	if payload["sql"] != "SELECT COUNT(*) FROM users" {
		t.Fatalf("sql = %v", payload["sql"])
	}
	if payload["answer"] != "There are 42 users." {
		t.Fatalf("answer = %v", payload["answer"])
	}
	if payload["attempts"] != float64(2) {
		t.Fatalf("attempts = %v", payload["attempts"])
	}
	if _, hasError := payload["error"]; hasError {
		t.Fatalf("error present on success: %v", payload["error"])
	}
}

func TestAskExhaustedIsStillHTTP200(t *testing.T) {
	runner := &fakeRunner{resp: &agent.Response{
		SQL:      "SELECT nope",
		Error:    "column nope does not exist",
		Attempts: 3,
	}}
	handler := NewHandler(testConfig(), Dependencies{Runner: runner})

	rec := doRequest(t, handler, http.MethodPost, "/v1/ask", `{"question":"q"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	payload := decodeBody(t, rec)
	if payload["error"] != "column nope does not exist" {
		t.Fatalf("error = %v", payload["error"])
	}
	if payload["attempts"] != float64(3) {
		t.Fatalf("attempts = %v", payload["attempts"])
	}
	if _, hasAnswer := payload["answer"]; hasAnswer {
		t.Fatalf("answer present on exhaustion: %v", payload["answer"])
	}
}

func TestAskModelFailureMapsTo502(t *testing.T) {
	runner := &fakeRunner{err: &agent.GenerationError{Phase: "generate", Err: errors.New("model unavailable")}}
	handler := NewHandler(testConfig(), Dependencies{Runner: runner})

	rec := doRequest(t, handler, http.MethodPost, "/v1/ask", `{"question":"q"}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d", rec.Code)
	}
	payload := decodeBody(t, rec)
	if payload["error_code"] != "MODEL_FAILED" {
		t.Fatalf("error_code = %v", payload["error_code"])
	}
}

func TestAskConnectivityFailureMapsTo503(t *testing.T) {
	runner := &fakeRunner{err: &database.ConnectivityError{Op: "introspect schema", Err: errors.New("refused")}}
	handler := NewHandler(testConfig(), Dependencies{Runner: runner})

	rec := doRequest(t, handler, http.MethodPost, "/v1/ask", `{"question":"q"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
	payload := decodeBody(t, rec)
	if payload["error_code"] != "DATABASE_UNAVAILABLE" {
		t.Fatalf("error_code = %v", payload["error_code"])
	}
}

func TestAskRequiresQuestion(t *testing.T) {
	handler := NewHandler(testConfig(), Dependencies{Runner: &fakeRunner{}})

	rec := doRequest(t, handler, http.MethodPost, "/v1/ask", `{"question":"  "}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	payload := decodeBody(t, rec)
	if payload["error_code"] != "QUESTION_REQUIRED" {
		t.Fatalf("error_code = %v", payload["error_code"])
	}
}

func TestSchemaEndpoint(t *testing.T) {
	handler := NewHandler(testConfig(), Dependencies{DB: &fakeDB{summary: "Table users: id (integer)"}})

	rec := doRequest(t, handler, http.MethodGet, "/v1/schema", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	payload := decodeBody(t, rec)
	if payload["schema"] != "Table users: id (integer)" {
		t.Fatalf("schema = %v", payload["schema"])
	}
}

func TestQueryRejectsUnsafeSQL(t *testing.T) {
	db := &fakeDB{queryErr: database.ErrUnsafeStatement}
	handler := NewHandler(testConfig(), Dependencies{DB: db})

	rec := doRequest(t, handler, http.MethodPost, "/v1/query", `{"sql":"DROP TABLE users"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	payload := decodeBody(t, rec)
	if payload["error_code"] != "SQL_NOT_ALLOWED" {
		t.Fatalf("error_code = %v", payload["error_code"])
	}
}

func TestQuerySuccess(t *testing.T) {
	db := &fakeDB{result: &database.QueryResult{
		Columns:  []string{"id"},
		Rows:     [][]any{{float64(1)}},
		RowCount: 1,
	}}
	handler := NewHandler(testConfig(), Dependencies{DB: db})

	rec := doRequest(t, handler, http.MethodPost, "/v1/query", `{"sql":"SELECT id FROM users"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	payload := decodeBody(t, rec)
	columns, ok := payload["columns"].([]any)
	if !ok || len(columns) != 1 || columns[0] != "id" {
		t.Fatalf("columns = %v", payload["columns"])
	}
}
