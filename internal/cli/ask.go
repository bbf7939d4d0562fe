package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tabula-labs/tabula/internal/engine"
	"github.com/tabula-labs/tabula/pkg/models"
)

func (c *CLI) newAskCmd() *cobra.Command {
	var (
		file       string
		exportPath string
	)
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question about a CSV dataset",
		Long: `Ask a natural-language question against a running gateway.

With --file the CSV is uploaded first, so a single invocation covers the
whole flow:

  tabula ask --file sales.csv "What is the average price by category?"

Without --file the question runs against the dataset already uploaded in
this client's session.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runAsk(cmd.Context(), file, args[0], exportPath)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "CSV file to upload before asking")
	cmd.Flags().StringVar(&exportPath, "export", "", "write the result CSV to this path")
	return cmd
}

func (c *CLI) runAsk(ctx context.Context, file, question, exportPath string) error {
	client := c.newGatewayClient()

	if file != "" {
		upload, err := client.Upload(ctx, file)
		if err != nil {
			return &exitError{code: ExitValidation, err: err}
		}
		c.debugf("uploaded %s: %d rows as table %s\n", upload.Filename, upload.RowCount, upload.Dataset)
	}

	result, err := client.Ask(ctx, question)
	if err != nil {
		return &exitError{code: ExitEngine, err: err}
	}

	if c.jsonOutput {
		if err := c.outputJSON(result); err != nil {
			return err
		}
	} else {
		c.printResult(result)
	}

	if exportPath != "" {
		f, err := os.Create(exportPath)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := client.Export(ctx, f); err != nil {
			return err
		}
		c.printf("Result written to %s\n", exportPath)
	}
	return nil
}

func (c *CLI) printResult(result *models.AskResponse) {
	c.printf("SQL:    %s\n", result.SQL)
	c.printf("pandas: %s\n", result.Pandas)
	c.printf("engine: %s  generator: %s  duration: %s\n\n", result.Engine, result.Generator, result.Duration)

	c.printTable(result.Columns, result.Rows, 20)
	if result.RowCount > 20 {
		c.printf("... %d rows total\n", result.RowCount)
	}
	if result.Chart != nil {
		c.printf("\nchart: %s over %s/%s\n", result.Chart.Type, result.Chart.Label, result.Chart.Value)
	}
}

// printTable renders a plain aligned table, capped at limit rows.
func (c *CLI) printTable(columns []string, rows [][]interface{}, limit int) {
	if len(columns) == 0 {
		return
	}
	widths := make([]int, len(columns))
	for i, col := range columns {
		widths[i] = len(col)
	}

	shown := rows
	if limit > 0 && len(shown) > limit {
		shown = shown[:limit]
	}
	cells := make([][]string, len(shown))
	for i, row := range shown {
		cells[i] = make([]string, len(columns))
		for j := range columns {
			if j < len(row) {
				cells[i][j] = engine.CellString(row[j])
			}
			if len(cells[i][j]) > widths[j] {
				widths[j] = len(cells[i][j])
			}
		}
	}

	var header strings.Builder
	for i, col := range columns {
		fmt.Fprintf(&header, "%-*s  ", widths[i], col)
	}
	c.println(strings.TrimRight(header.String(), " "))
	c.println(strings.Repeat("-", len(strings.TrimRight(header.String(), " "))))

	for _, row := range cells {
		var line strings.Builder
		for i, cell := range row {
			fmt.Fprintf(&line, "%-*s  ", widths[i], cell)
		}
		c.println(strings.TrimRight(line.String(), " "))
	}
}
