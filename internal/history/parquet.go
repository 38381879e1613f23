package history

import (
	"bytes"
	"fmt"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/sqlscout/sqlscout/internal/agent"
)

// attemptRow is one executed statement of one run. A run with three
// attempts produces three rows sharing the run-level fields.
type attemptRow struct {
	RunID         string `parquet:"run_id"`
	Question      string `parquet:"question"`
	Dialect       string `parquet:"dialect"`
	Attempt       int32  `parquet:"attempt"`
	SQL           string `parquet:"sql"`
	Error         string `parquet:"error"`
	DurationMs    int64  `parquet:"duration_ms"`
	Outcome       string `parquet:"outcome"`
	TotalAttempts int32  `parquet:"total_attempts"`
	Answer        string `parquet:"answer"`
	AskedAtUnixMs int64  `parquet:"asked_at_unix_ms"`
}

func encodeRun(runID, question, dialect string, askedAt time.Time, resp *agent.Response) ([]byte, error) {
	if len(resp.History) == 0 {
		return nil, fmt.Errorf("run has no attempts")
	}

	outcome := "succeeded"
	if !resp.Succeeded() {
		outcome = "exhausted"
	}

	rows := make([]attemptRow, 0, len(resp.History))
	for i, attempt := range resp.History {
		rows = append(rows, attemptRow{
			RunID:         runID,
			Question:      question,
			Dialect:       dialect,
			Attempt:       int32(i + 1),
			SQL:           attempt.SQL,
			Error:         attempt.Error,
			DurationMs:    attempt.Duration.Milliseconds(),
			Outcome:       outcome,
			TotalAttempts: int32(resp.Attempts),
			Answer:        resp.Answer,
			AskedAtUnixMs: askedAt.UnixMilli(),
		})
	}

	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[attemptRow](buf)
	if _, err := writer.Write(rows); err != nil {
		return nil, fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}

// objectKey partitions runs by calendar date so downstream scans can prune
// by day.
func objectKey(runID string, askedAt time.Time) string {
	return fmt.Sprintf("runs/date=%s/run-%s.parquet", askedAt.UTC().Format("2006-01-02"), runID)
}
