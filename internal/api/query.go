package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/sqlscout/sqlscout/internal/database"
)

type queryRequest struct {
	SQL string `json:"sql"`
}

type queryResponse struct {
	Columns []string       `json:"columns"`
	Rows    [][]any        `json:"rows"`
	Stats   map[string]any `json:"stats"`
}

func handleQuery(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.DB == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "QUERY_NOT_CONFIGURED", "database dependencies are not configured", false, nil)
		return
	}

	var request queryRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid query request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.SQL) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "SQL_REQUIRED", "sql is required", false, nil)
		return
	}

	result, err := deps.DB.RunReadOnly(r.Context(), request.SQL)
	if err != nil {
		if errors.Is(err, database.ErrUnsafeStatement) {
			writeError(r.Context(), w, http.StatusBadRequest, "SQL_NOT_ALLOWED", "only read-only queries are allowed", false, map[string]any{"details": err.Error()})
			return
		}
		var execErr *database.ExecError
		if errors.As(err, &execErr) {
			writeError(r.Context(), w, http.StatusBadRequest, "QUERY_EXECUTION_FAILED", "query execution failed", false, map[string]any{"details": execErr.Error()})
			return
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "INTERNAL_ERROR", "query failed", true, map[string]any{"details": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, queryResponse{
		Columns: result.Columns,
		Rows:    result.Rows,
		Stats: map[string]any{
			"row_count":   result.RowCount,
			"duration_ms": result.Duration.Milliseconds(),
		},
	})
}
