package llm

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/tabula-labs/tabula/internal/errors"
)

var (
	fencePattern    = regexp.MustCompile("(?s)```[a-zA-Z]*\n?|```")
	jsonObjPattern  = regexp.MustCompile(`(?s)\{.*\}`)
	jsonListPattern = regexp.MustCompile(`(?s)\[.*\]`)
)

// StripFences removes markdown code fences from model output.
func StripFences(s string) string {
	return strings.TrimSpace(fencePattern.ReplaceAllString(s, ""))
}

// ParseAnalysis extracts the {"sql": ..., "pandas": ...} object from raw
// model output. Models wrap JSON in fences and prose often enough that a
// strict json.Unmarshal on the whole response is not workable.
func ParseAnalysis(raw string) (*Analysis, error) {
	cleaned := StripFences(raw)
	match := jsonObjPattern.FindString(cleaned)
	if match == "" {
		return nil, errors.NewBadModelOutput(raw, "no JSON object found in response")
	}

	var a Analysis
	if err := json.Unmarshal([]byte(match), &a); err != nil {
		return nil, errors.NewBadModelOutput(raw, "response JSON does not decode: "+err.Error())
	}
	if strings.TrimSpace(a.SQL) == "" {
		return nil, errors.NewBadModelOutput(raw, "response contains no 'sql' field")
	}
	a.SQL = strings.TrimSpace(a.SQL)
	a.Pandas = strings.TrimSpace(a.Pandas)
	return &a, nil
}

// ParseQuestionList extracts a JSON list of strings from raw model output.
func ParseQuestionList(raw string) ([]string, error) {
	cleaned := StripFences(raw)
	match := jsonListPattern.FindString(cleaned)
	if match == "" {
		return nil, errors.NewBadModelOutput(raw, "no JSON list found in response")
	}

	var questions []string
	if err := json.Unmarshal([]byte(match), &questions); err != nil {
		return nil, errors.NewBadModelOutput(raw, "question list does not decode: "+err.Error())
	}

	out := questions[:0]
	for _, q := range questions {
		q = strings.TrimSpace(q)
		if q != "" {
			out = append(out, q)
		}
	}
	if len(out) == 0 {
		return nil, errors.NewBadModelOutput(raw, "question list is empty")
	}
	return out, nil
}
