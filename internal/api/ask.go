package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/sqlscout/sqlscout/internal/agent"
	"github.com/sqlscout/sqlscout/internal/database"
)

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	SQL      string   `json:"sql"`
	Columns  []string `json:"columns,omitempty"`
	Rows     [][]any  `json:"rows,omitempty"`
	RowCount int      `json:"row_count"`
	Attempts int      `json:"attempts"`
	Answer   string   `json:"answer,omitempty"`
	Error    string   `json:"error,omitempty"`
}

func handleAsk(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Runner == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "ASK_NOT_CONFIGURED", "ask dependencies are not configured", false, nil)
		return
	}

	var request askRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid ask request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.Question) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "QUESTION_REQUIRED", "question is required", false, nil)
		return
	}

	resp, err := deps.Runner.Ask(r.Context(), strings.TrimSpace(request.Question))
	if err != nil {
		writeRunError(deps, w, r, err)
		return
	}

	// Exhaustion is a terminal domain outcome, not a transport failure.
	if !resp.Succeeded() {
		writeJSON(w, http.StatusOK, askResponse{
			SQL:      resp.SQL,
			Attempts: resp.Attempts,
			Error:    resp.Error,
		})
		return
	}

	writeJSON(w, http.StatusOK, askResponse{
		SQL:      resp.SQL,
		Columns:  resp.Result.Columns,
		Rows:     resp.Result.Rows,
		RowCount: resp.Result.RowCount,
		Attempts: resp.Attempts,
		Answer:   resp.Answer,
	})
}

func writeRunError(deps Dependencies, w http.ResponseWriter, r *http.Request, err error) {
	var connErr *database.ConnectivityError
	if errors.As(err, &connErr) {
		writeError(r.Context(), w, http.StatusServiceUnavailable, "DATABASE_UNAVAILABLE", connErr.Error(), true, nil)
		return
	}
	var genErr *agent.GenerationError
	if errors.As(err, &genErr) {
		writeError(r.Context(), w, http.StatusBadGateway, "MODEL_FAILED", genErr.Error(), true, map[string]any{"phase": genErr.Phase})
		return
	}
	if deps.Logger != nil {
		deps.Logger.Error("ask failed", "error", err)
	}
	writeError(r.Context(), w, http.StatusInternalServerError, "INTERNAL_ERROR", "ask failed", true, nil)
}
