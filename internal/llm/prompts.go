package llm

import "fmt"

// Prompt contract: generation and refinement must yield exactly one SQL
// statement with no prose and no fences; the answer must be prose with no
// SQL and must call out an empty result set explicitly.

const sqlSystemPrompt = "You are an expert data analyst and SQL engineer " +
	"connected to a READ-ONLY SQL database. " +
	"You must ONLY generate valid SQL for the target dialect. " +
	"NEVER generate INSERT, UPDATE, DELETE, DROP, ALTER, or TRUNCATE. " +
	"Prefer simple, single-statement queries. " +
	"Respond with ONLY the SQL query, no explanation, no markdown."

const answerSystemPrompt = "You are a helpful data analyst. " +
	"Answer the user's question using only the query results you are given. " +
	"Do NOT include any SQL in your answer. " +
	"If the result is empty, say that no matching data was found."

func generateUserPrompt(req GenerateRequest) string {
	return fmt.Sprintf(
		"Target dialect: %s\n\nThe database schema is:\n%s\n\nUser question:\n%s",
		req.Dialect, req.SchemaSummary, req.Question,
	)
}

func refineUserPrompt(req RefineRequest) string {
	return fmt.Sprintf(
		"You previously generated this SQL:\n%s\n\n"+
			"When executed, the database returned this error:\n%s\n\n"+
			"Target dialect: %s\n\nDatabase schema:\n%s\n\n"+
			"Return a corrected SQL query that fixes the error while still "+
			"answering the original question:\n%s",
		req.PreviousSQL, req.ErrorMessage, req.Dialect, req.SchemaSummary, req.Question,
	)
}

func answerUserPrompt(req AnswerRequest) string {
	return fmt.Sprintf(
		"The user asked:\n%q\n\nThe SQL query executed was:\n%s\n\n"+
			"The query returned the following results (as a table):\n%s\n\n"+
			"Provide a clear, concise, natural-language answer to the user's "+
			"original question.",
		req.Question, req.SQL, req.ResultsText,
	)
}
