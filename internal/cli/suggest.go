package cli

import (
	"context"

	"github.com/spf13/cobra"
)

func (c *CLI) newSuggestCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Get suggested questions for a dataset",
		Long: `Ask the gateway for starter questions. With --file the CSV is
uploaded first; otherwise the session's current dataset is used.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSuggest(cmd.Context(), file)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "CSV file to upload before suggesting")
	return cmd
}

func (c *CLI) runSuggest(ctx context.Context, file string) error {
	client := c.newGatewayClient()

	if file != "" {
		if _, err := client.Upload(ctx, file); err != nil {
			return &exitError{code: ExitValidation, err: err}
		}
	}

	questions, err := client.Suggest(ctx)
	if err != nil {
		return &exitError{code: ExitEngine, err: err}
	}

	if c.jsonOutput {
		return c.outputJSON(map[string]interface{}{"questions": questions})
	}
	for _, q := range questions {
		c.printf("  - %s\n", q)
	}
	return nil
}
