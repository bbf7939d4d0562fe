package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tabula-labs/tabula/internal/dataset"
	"github.com/tabula-labs/tabula/internal/engine"
	"github.com/tabula-labs/tabula/internal/engine/sqlite"
	"github.com/tabula-labs/tabula/internal/evaluation"
	"github.com/tabula-labs/tabula/internal/llm"
)

func (c *CLI) newEvaluateCmd() *cobra.Command {
	var (
		casesPath string
		dataPath  string
		csvOut    string
		compare   bool
		target    float64
	)
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Run the generator evaluation harness",
		Long: `Run ground-truth cases through a generator, executing the generated
SQL on an embedded engine and comparing results.

By default the built-in cases run against the bundled sample sales
dataset using the configured generator (Gemini when an API key is set,
the keyword baseline otherwise). --compare also runs the baseline and
reports both.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runEvaluate(cmd.Context(), casesPath, dataPath, csvOut, compare, target)
		},
	}
	cmd.Flags().StringVar(&casesPath, "cases", "", "ground-truth cases YAML (default: built-in)")
	cmd.Flags().StringVar(&dataPath, "data", "", "dataset CSV (default: bundled sample sales)")
	cmd.Flags().StringVar(&csvOut, "csv", "", "write per-case results CSV to this path")
	cmd.Flags().BoolVar(&compare, "compare", false, "also run the baseline generator and compare")
	cmd.Flags().Float64Var(&target, "target", evaluation.DefaultTargetAccuracy, "required accuracy (0..1)")
	return cmd
}

func (c *CLI) runEvaluate(ctx context.Context, casesPath, dataPath, csvOut string, compare bool, target float64) error {
	cases := evaluation.DefaultCases()
	if casesPath != "" {
		loaded, err := evaluation.LoadCasesFile(casesPath)
		if err != nil {
			return &exitError{code: ExitValidation, err: err}
		}
		cases = loaded
	}

	ds, err := c.evaluationDataset(dataPath)
	if err != nil {
		return &exitError{code: ExitValidation, err: err}
	}

	generator, err := c.evaluationGenerator(ctx)
	if err != nil {
		return err
	}

	// The pure-Go engine keeps the harness runnable everywhere.
	factory := engine.Factory(sqlite.Factory)
	evaluator := evaluation.NewEvaluator(generator, factory, target)

	if compare && generator.Name() != "baseline" {
		baseline := evaluation.NewEvaluator(llm.NewBaselineGenerator(), factory, target)
		comparison, err := evaluation.Compare(ctx, evaluator, baseline, ds, cases)
		if err != nil {
			return &exitError{code: ExitEngine, err: err}
		}
		if c.jsonOutput {
			return c.outputJSON(comparison)
		}
		c.printf("%s", comparison.String())
		return c.finishEvaluate(comparison.Primary, csvOut)
	}

	report, err := evaluator.Evaluate(ctx, ds, cases)
	if err != nil {
		return &exitError{code: ExitEngine, err: err}
	}
	if c.jsonOutput {
		if err := c.outputJSON(report); err != nil {
			return err
		}
	} else {
		c.printf("%s", report.String())
	}
	return c.finishEvaluate(report, csvOut)
}

func (c *CLI) finishEvaluate(report *evaluation.Report, csvOut string) error {
	if csvOut != "" {
		f, err := os.Create(csvOut)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := report.WriteCSV(f); err != nil {
			return err
		}
		c.printf("Per-case results written to %s\n", csvOut)
	}
	if !report.MeetsTarget {
		return &exitError{
			code: ExitValidation,
			err:  fmt.Errorf("accuracy %.1f%% below target %.0f%%", report.Accuracy*100, report.Target*100),
		}
	}
	return nil
}

func (c *CLI) evaluationDataset(dataPath string) (*dataset.Dataset, error) {
	if dataPath == "" {
		return dataset.SampleSales(200, 42)
	}
	f, err := os.Open(dataPath)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", dataPath, err)
	}
	defer f.Close()
	return dataset.Parse(filepath.Base(dataPath), f)
}

func (c *CLI) evaluationGenerator(ctx context.Context) (llm.Generator, error) {
	if c.cfg.Gemini.APIKey == "" {
		return llm.NewBaselineGenerator(), nil
	}
	gem, err := llm.NewGeminiGenerator(ctx, llm.GeminiConfig{
		APIKey: c.cfg.Gemini.APIKey,
		Model:  c.cfg.Gemini.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini generator: %w", err)
	}
	return gem, nil
}
