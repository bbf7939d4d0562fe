package cli

import (
	"context"

	"github.com/spf13/cobra"
)

func (c *CLI) newHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show the session's query history",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runHistory(cmd.Context())
		},
	}
}

func (c *CLI) runHistory(ctx context.Context) error {
	client := c.newGatewayClient()

	history, err := client.History(ctx)
	if err != nil {
		return &exitError{code: ExitEngine, err: err}
	}

	if c.jsonOutput {
		return c.outputJSON(history)
	}

	if len(history.Entries) == 0 {
		c.println("No history yet.")
		return nil
	}
	for _, e := range history.Entries {
		c.printf("%s  [%s/%s] %s\n", e.CreatedAt.Format("2006-01-02 15:04:05"), e.Generator, e.Outcome, e.Question)
		c.printf("    %s\n", e.SQL)
		if e.Error != "" {
			c.printf("    error: %s\n", e.Error)
		}
	}
	return nil
}
