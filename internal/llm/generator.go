// Package llm turns natural-language questions about a dataset into
// executable SQL plus an equivalent pandas snippet. The Gemini-backed
// generator is the production implementation; the baseline generator is a
// keyword/template fallback that needs no API key.
package llm

import (
	"context"
)

// Analysis is a generated answer to a question: the SQL that is executed
// and the pandas snippet shown to the user as the equivalent dataframe
// code.
type Analysis struct {
	// SQL is the generated SELECT statement.
	SQL string `json:"sql"`

	// Pandas is the equivalent pandas expression over a dataframe `df`.
	Pandas string `json:"pandas"`
}

// Generator produces analyses and suggested questions from a schema summary.
type Generator interface {
	// Name identifies the generator ("gemini", "baseline").
	Name() string

	// GenerateAnalysis produces SQL and pandas code answering the question
	// against the dataset table. The schema is the dataset schema summary.
	GenerateAnalysis(ctx context.Context, schema, table, question string) (*Analysis, error)

	// SuggestQuestions proposes analytical questions for a freshly
	// uploaded dataset. Implementations return the fallback suggestions
	// rather than failing when the model misbehaves.
	SuggestQuestions(ctx context.Context, schema string) ([]string, error)
}

// FallbackSuggestions are used when the model cannot produce suggestions.
func FallbackSuggestions() []string {
	return []string{
		"What is the total count of records?",
		"Can you show the first 5 rows?",
	}
}
