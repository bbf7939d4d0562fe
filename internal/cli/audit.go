package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"
)

func (c *CLI) newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Audit and reporting commands",
		Long:  `Commands for audit logs and operational reports.`,
	}
	cmd.AddCommand(c.newAuditSummaryCmd())
	return cmd
}

func (c *CLI) newAuditSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show aggregated audit statistics",
		Long: `Display aggregated audit statistics from the gateway:

  - Successful vs failed query counts
  - Top failure reasons
  - Query counts per execution engine

Only counts are shown; raw questions and data never leave the logs.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runAuditSummary(cmd.Context())
		},
	}
}

func (c *CLI) runAuditSummary(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client := c.newGatewayClient()
	summary, err := client.GetAuditSummary(ctx)
	if err != nil {
		return &exitError{code: ExitEngine, err: err}
	}

	if c.jsonOutput {
		return c.outputJSON(summary)
	}

	c.println("Query Summary:")
	c.printf("  Succeeded: %d\n", summary.SuccessCount)
	c.printf("  Failed:    %d\n", summary.FailureCount)

	if len(summary.TopFailures) > 0 {
		c.println("\nTop Failure Reasons:")
		for _, f := range summary.TopFailures {
			c.printf("  - %s (%d)\n", f.Reason, f.Count)
		}
	}
	if len(summary.QueriesByEngine) > 0 {
		c.println("\nQueries by Engine:")
		for _, e := range summary.QueriesByEngine {
			c.printf("  - %s: %d\n", e.Engine, e.Count)
		}
	}
	return nil
}
