// Package models provides shared data models for the tabula public API.
package models

import (
	"time"
)

// ColumnInfo describes one dataset column in API responses.
type ColumnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// UploadResponse is returned after a CSV upload.
type UploadResponse struct {
	Dataset    string       `json:"dataset"`
	Filename   string       `json:"filename"`
	Columns    []ColumnInfo `json:"columns"`
	RowCount   int          `json:"row_count"`
	Engine     string       `json:"engine"`
	Suggested  []string     `json:"suggested_questions,omitempty"`
}

// AskRequest is the API request for asking a question.
type AskRequest struct {
	Question string `json:"question"`
}

// ChartSpec is the renderable chart attached to a result.
type ChartSpec struct {
	Type   string    `json:"type"`
	Title  string    `json:"title"`
	Label  string    `json:"label"`
	Value  string    `json:"value"`
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

// AskResponse is the API response for a question.
type AskResponse struct {
	QueryID   string          `json:"query_id"`
	Question  string          `json:"question"`
	SQL       string          `json:"sql"`
	Pandas    string          `json:"pandas"`
	Generator string          `json:"generator"`
	Engine    string          `json:"engine"`
	Columns   []string        `json:"columns"`
	Rows      [][]interface{} `json:"rows"`
	RowCount  int             `json:"row_count"`
	Chart     *ChartSpec      `json:"chart,omitempty"`
	Duration  string          `json:"duration"`
}

// SuggestResponse is the API response for suggested questions.
type SuggestResponse struct {
	Questions []string `json:"questions"`
}

// HistoryEntry is one stored interaction in API responses.
type HistoryEntry struct {
	ID        string    `json:"id"`
	Question  string    `json:"question"`
	SQL       string    `json:"sql"`
	Pandas    string    `json:"pandas"`
	Generator string    `json:"generator"`
	Engine    string    `json:"engine,omitempty"`
	Outcome   string    `json:"outcome"`
	Error     string    `json:"error,omitempty"`
	RowCount  int       `json:"row_count"`
	ChartType string    `json:"chart_type,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// HistoryResponse is the API response for query history.
type HistoryResponse struct {
	Questions []string       `json:"questions"`
	Entries   []HistoryEntry `json:"entries"`
}

// ErrorResponse is the API error envelope.
type ErrorResponse struct {
	Error      string `json:"error"`
	Reason     string `json:"reason,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

// StatusResponse reports operational status.
type StatusResponse struct {
	Ready            bool   `json:"ready"`
	Reason           string `json:"reason,omitempty"`
	RepositoryHealth string `json:"repository_health"`
	EnginesAvailable int    `json:"engines_available"`
	SessionsRecorded int    `json:"sessions_recorded"`
	ModelConfigured  bool   `json:"model_configured"`
	Version          string `json:"version"`
}
