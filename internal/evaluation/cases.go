// Package evaluation measures generator quality against ground-truth
// question/answer cases executed on a real engine.
package evaluation

import (
	_ "embed"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Case is one ground-truth evaluation case: a question plus the value the
// executed query must produce.
type Case struct {
	// ID identifies the case in reports.
	ID string `yaml:"id"`

	// Category groups cases for per-category accuracy ("aggregation",
	// "filter", "groupby", "lookup").
	Category string `yaml:"category"`

	// Question is the natural-language question handed to the generator.
	Question string `yaml:"question"`

	// Expected is the expected scalar result. Single-cell results are
	// compared against it directly.
	Expected string `yaml:"expected"`

	// ExpectedRows is the expected row count when the case checks shape
	// rather than a scalar (Expected empty).
	ExpectedRows int `yaml:"expected_rows"`
}

// Validate checks that the case is usable.
func (c *Case) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("evaluation: case is missing an id")
	}
	if c.Question == "" {
		return fmt.Errorf("evaluation: case %s is missing a question", c.ID)
	}
	if c.Expected == "" && c.ExpectedRows == 0 {
		return fmt.Errorf("evaluation: case %s has no expected value or row count", c.ID)
	}
	return nil
}

//go:embed cases.yaml
var defaultCasesYAML []byte

// LoadCases decodes cases from YAML.
func LoadCases(r io.Reader) ([]Case, error) {
	var doc struct {
		Cases []Case `yaml:"cases"`
	}
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("evaluation: parsing cases: %w", err)
	}
	if len(doc.Cases) == 0 {
		return nil, fmt.Errorf("evaluation: no cases found")
	}
	for i := range doc.Cases {
		if err := doc.Cases[i].Validate(); err != nil {
			return nil, err
		}
	}
	return doc.Cases, nil
}

// LoadCasesFile loads cases from a YAML file.
func LoadCasesFile(path string) ([]Case, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("evaluation: opening cases file: %w", err)
	}
	defer f.Close()
	return LoadCases(f)
}

// DefaultCases returns the built-in ground truth, written against the
// bundled sample sales dataset.
func DefaultCases() []Case {
	var doc struct {
		Cases []Case `yaml:"cases"`
	}
	// The embedded file is validated by tests; a decode failure here is
	// a build defect.
	if err := yaml.Unmarshal(defaultCasesYAML, &doc); err != nil {
		panic(err)
	}
	return doc.Cases
}
