package llm

import (
	"fmt"
	"strings"
	"text/template"
)

// analysisPrompt asks for a single JSON object so the response can be
// parsed without guessing where code blocks start and end.
var analysisPrompt = template.Must(template.New("analysis").Parse(`You are an expert data analyst. A user has a question about a table of data.

The data is loaded in a SQL table named {{.Table}} and, equivalently, in a pandas DataFrame named df.

Here is the schema of the table:
{{.Schema}}

User's Question: "{{.Question}}"

Instructions:
1. Write a single SQL SELECT statement against the table {{.Table}} that answers the question.
2. Write the equivalent pandas expression over df. The expression's final output MUST be a DataFrame stored in a variable called result_df.
3. Return ONLY a JSON object of the form {"sql": "...", "pandas": "..."} with no markdown formatting and no commentary.
4. The SQL must be read-only: no INSERT, UPDATE, DELETE, or DDL.
5. Use only the columns listed in the schema.
`))

// suggestPrompt mirrors the upload flow: three diverse questions as a
// JSON list of strings.
var suggestPrompt = template.Must(template.New("suggest").Parse(`Based on the following schema for a table of data, generate 3 interesting and diverse analytical questions that a user could ask.

Schema:
{{.Schema}}

Return the questions as a JSON list of strings. For example: ["Question 1?", "Question 2?", "Question 3?"]
`))

type promptData struct {
	Schema   string
	Table    string
	Question string
}

// AnalysisPrompt renders the analysis prompt for a question.
func AnalysisPrompt(schema, table, question string) (string, error) {
	var b strings.Builder
	if err := analysisPrompt.Execute(&b, promptData{Schema: schema, Table: table, Question: question}); err != nil {
		return "", fmt.Errorf("llm: render analysis prompt: %w", err)
	}
	return b.String(), nil
}

// SuggestPrompt renders the suggested-questions prompt.
func SuggestPrompt(schema string) (string, error) {
	var b strings.Builder
	if err := suggestPrompt.Execute(&b, promptData{Schema: schema}); err != nil {
		return "", fmt.Errorf("llm: render suggest prompt: %w", err)
	}
	return b.String(), nil
}
