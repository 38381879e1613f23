// Package render turns query results into text: an ASCII table for terminals
// and a size-capped plain rendering used when results are fed back to the
// model for answer synthesis.
package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/sqlscout/sqlscout/internal/database"
)

// maxPromptRows bounds how much result data is included in the answer
// prompt. Large result sets would blow the model's context for no gain.
const maxPromptRows = 50

// Table writes the result as an ASCII table.
func Table(w io.Writer, result *database.QueryResult) {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_CENTER)
	table.SetBorder(true)
	table.SetHeader(result.Columns)
	for _, row := range result.Rows {
		table.Append(formatRow(row))
	}
	table.Render()
}

// PromptText renders the result for inclusion in a model prompt: a header
// line, one tab-separated line per row, capped at maxPromptRows with a
// truncation note.
func PromptText(result *database.QueryResult) string {
	if result.RowCount == 0 {
		return "(no rows)"
	}
	var b strings.Builder
	b.WriteString(strings.Join(result.Columns, "\t"))
	for i, row := range result.Rows {
		if i >= maxPromptRows {
			fmt.Fprintf(&b, "\n... (%d more rows omitted)", result.RowCount-maxPromptRows)
			break
		}
		b.WriteString("\n")
		b.WriteString(strings.Join(formatRow(row), "\t"))
	}
	return b.String()
}

func formatRow(row []any) []string {
	out := make([]string, len(row))
	for i, value := range row {
		out[i] = formatValue(value)
	}
	return out
}

func formatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return "NULL"
	case string:
		return v
	case time.Time:
		return v.Format(time.RFC3339)
	case float64:
		return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.6f", v), "0"), ".")
	default:
		return fmt.Sprintf("%v", v)
	}
}
