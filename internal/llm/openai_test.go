package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sqlscout/sqlscout/internal/config"
)

func TestOpenAIClientGenerateSQL(t *testing.T) {
	var captured struct {
		path   string
		auth   string
		system string
		user   string
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.path = r.URL.Path
		captured.auth = r.Header.Get("Authorization")
		var payload struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(payload.Messages) == 2 {
			captured.system = payload.Messages[0].Content
			captured.user = payload.Messages[1].Content
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": "```sql\nSELECT COUNT(*) FROM users;\n```"}},
			},
		})
	}))
	defer server.Close()

	client, err := newOpenAIClient(config.AIConfig{
		BaseURL: server.URL,
		APIKey:  "test-key",
		Model:   "gpt-4o-mini",
		Timeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("newOpenAIClient() error = %v", err)
	}

	sqlText, err := client.GenerateSQL(context.Background(), GenerateRequest{
		Dialect:       "postgres",
		SchemaSummary: "Table users: id (integer)",
		Question:      "How many users are there?",
	})
	if err != nil {
		t.Fatalf("GenerateSQL() error = %v", err)
	}
	if sqlText != "SELECT COUNT(*) FROM users;" {
		t.Fatalf("GenerateSQL() = %q, want fences stripped", sqlText)
	}
	if captured.path != "/v1/chat/completions" {
		t.Fatalf("request path = %q", captured.path)
	}
	if captured.auth != "Bearer test-key" {
		t.Fatalf("Authorization = %q", captured.auth)
	}
	if !strings.Contains(captured.user, "How many users are there?") {
		t.Fatalf("user prompt missing question: %q", captured.user)
	}
	if !strings.Contains(captured.system, "READ-ONLY") {
		t.Fatalf("system prompt missing read-only instruction: %q", captured.system)
	}
}

func TestOpenAIClientRefineSQLIncludesError(t *testing.T) {
	var userPrompt string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&payload)
		if len(payload.Messages) == 2 {
			userPrompt = payload.Messages[1].Content
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": "SELECT count(*) FROM users"}},
			},
		})
	}))
	defer server.Close()

	client, err := newOpenAIClient(config.AIConfig{BaseURL: server.URL, APIKey: "k"})
	if err != nil {
		t.Fatalf("newOpenAIClient() error = %v", err)
	}

	_, err = client.RefineSQL(context.Background(), RefineRequest{
		Dialect:       "postgres",
		SchemaSummary: "Table users: id (integer)",
		Question:      "How many users?",
		PreviousSQL:   "SELECT cout(*) FROM users",
		ErrorMessage:  `function cout(*) does not exist`,
	})
	if err != nil {
		t.Fatalf("RefineSQL() error = %v", err)
	}
	if !strings.Contains(userPrompt, "SELECT cout(*) FROM users") {
		t.Fatalf("refine prompt missing previous SQL: %q", userPrompt)
	}
	if !strings.Contains(userPrompt, "function cout(*) does not exist") {
		t.Fatalf("refine prompt missing error message: %q", userPrompt)
	}
}

func TestOpenAIClientSynthesizeAnswer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": "  There are 42 users.  "}},
			},
		})
	}))
	defer server.Close()

	client, err := newOpenAIClient(config.AIConfig{BaseURL: server.URL, APIKey: "k"})
	if err != nil {
		t.Fatalf("newOpenAIClient() error = %v", err)
	}

	answer, err := client.SynthesizeAnswer(context.Background(), AnswerRequest{
		Question:    "How many users?",
		SQL:         "SELECT COUNT(*) FROM users",
		ResultsText: "count\n42",
	})
	if err != nil {
		t.Fatalf("SynthesizeAnswer() error = %v", err)
	}
	if answer != "There are 42 users." {
		t.Fatalf("SynthesizeAnswer() = %q", answer)
	}
}

func TestOpenAIClientSurfacesHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	client, err := newOpenAIClient(config.AIConfig{BaseURL: server.URL, APIKey: "k"})
	if err != nil {
		t.Fatalf("newOpenAIClient() error = %v", err)
	}

	_, err = client.GenerateSQL(context.Background(), GenerateRequest{Question: "q"})
	if err == nil {
		t.Fatal("GenerateSQL() expected error")
	}
	if !strings.Contains(err.Error(), "status=429") {
		t.Fatalf("error = %v, want status in message", err)
	}
}

func TestOpenAIClientRejectsEmptySQL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": "```sql\n```"}},
			},
		})
	}))
	defer server.Close()

	client, err := newOpenAIClient(config.AIConfig{BaseURL: server.URL, APIKey: "k"})
	if err != nil {
		t.Fatalf("newOpenAIClient() error = %v", err)
	}

	_, err = client.GenerateSQL(context.Background(), GenerateRequest{Question: "q"})
	if err == nil || !strings.Contains(err.Error(), "empty SQL") {
		t.Fatalf("GenerateSQL() error = %v, want empty SQL rejection", err)
	}
}
