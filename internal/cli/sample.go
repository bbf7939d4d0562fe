package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tabula-labs/tabula/internal/dataset"
)

func (c *CLI) newSampleCmd() *cobra.Command {
	var (
		out  string
		rows int
		seed int64
	)
	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Generate the demo sales CSV",
		Long: `Write a deterministic demo sales dataset to a CSV file, ready to be
uploaded with 'tabula ask --file'.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSample(out, rows, seed)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "sales_data.csv", "output file")
	cmd.Flags().IntVar(&rows, "rows", 200, "number of data rows")
	cmd.Flags().Int64Var(&seed, "seed", 42, "random seed")
	return cmd
}

func (c *CLI) runSample(out string, rows int, seed int64) error {
	data := dataset.SampleSalesCSV(rows, seed)
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", out, err)
	}
	c.printf("Wrote %d rows to %s\n", rows, out)
	return nil
}
