package database

import "strings"

// readOnlyBlocklist is the fixed set of mutating keywords rejected by the
// guard. The check is purely lexical: a keyword inside a string literal or
// an identifier such as "update_count" triggers a false rejection. That is
// an accepted limitation of a secondary guardrail; the primary read-only
// enforcement lives in the model prompting.
var readOnlyBlocklist = []string{"INSERT", "UPDATE", "DELETE", "DROP", "ALTER", "TRUNCATE"}

// IsReadOnly reports whether the statement appears safe to execute. It is
// total over all inputs and has no side effects.
func IsReadOnly(sqlText string) bool {
	normalized := strings.Join(strings.Fields(strings.ToUpper(sqlText)), " ")
	for _, keyword := range readOnlyBlocklist {
		if strings.Contains(normalized, keyword) {
			return false
		}
	}
	return true
}
