package api

import (
	"net/http"
)

type schemaResponse struct {
	Schema string `json:"schema"`
}

func handleSchema(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.DB == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SCHEMA_NOT_CONFIGURED", "database dependencies are not configured", false, nil)
		return
	}

	summary, err := deps.DB.SchemaSummary(r.Context())
	if err != nil {
		writeError(r.Context(), w, http.StatusServiceUnavailable, "DATABASE_UNAVAILABLE", err.Error(), true, nil)
		return
	}
	writeJSON(w, http.StatusOK, schemaResponse{Schema: summary})
}
