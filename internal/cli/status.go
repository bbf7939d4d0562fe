package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/tabula-labs/tabula/internal/status"
)

func (c *CLI) newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show gateway operational status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runStatus(cmd.Context())
		},
	}
}

func (c *CLI) runStatus(ctx context.Context) error {
	client := c.newGatewayClient()

	remote, err := client.GetStatus(ctx)
	if err != nil {
		return &exitError{code: ExitEngine, err: err}
	}

	result := &status.Result{
		Ready:            remote.Ready,
		Reason:           remote.Reason,
		GatewayReady:     true,
		RepositoryHealth: remote.RepositoryHealth,
		EnginesAvailable: remote.EnginesAvailable,
		Version:          remote.Version,
	}

	if c.jsonOutput {
		return c.outputJSON(result)
	}
	c.printf("%s", result.String())
	return nil
}
