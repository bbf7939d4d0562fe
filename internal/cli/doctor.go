package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func (c *CLI) newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run system diagnostics",
		Long: `Run system diagnostics.

Checks:
  - configuration loaded
  - gateway connectivity
  - gateway readiness (history repository, engines)
  - generator configuration`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runDoctor(cmd.Context())
		},
	}
}

// DiagnosticCheck represents a single diagnostic check result.
type DiagnosticCheck struct {
	Name    string `json:"name"`
	Passed  bool   `json:"passed"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (c *CLI) runDoctor(ctx context.Context) error {
	c.println("Tabula System Diagnostics")
	c.println("=========================")
	c.println("")

	checks := []DiagnosticCheck{
		c.checkConfig(),
		c.checkGateway(ctx),
		c.checkReadiness(ctx),
		c.checkGenerator(),
	}

	allPassed := true
	for _, check := range checks {
		if !check.Passed {
			allPassed = false
		}
		c.printCheck(check)
	}
	c.println("")

	if c.jsonOutput {
		return c.outputJSON(map[string]interface{}{
			"checks":     checks,
			"all_passed": allPassed,
		})
	}

	if allPassed {
		c.println("All checks passed")
		return nil
	}
	c.println("Some checks failed - see above for details")
	return &exitError{code: ExitValidation, err: fmt.Errorf("diagnostics failed")}
}

func (c *CLI) printCheck(check DiagnosticCheck) {
	status := "FAIL"
	if check.Passed {
		status = "ok"
	}
	c.printf("[%-4s] %s: %s\n", status, check.Name, check.Message)
	if check.Details != "" {
		c.printf("       %s\n", check.Details)
	}
}

func (c *CLI) checkConfig() DiagnosticCheck {
	check := DiagnosticCheck{Name: "configuration"}
	if c.cfg == nil {
		check.Message = "no configuration loaded"
		return check
	}
	check.Passed = true
	check.Message = "loaded"
	check.Details = "endpoint: " + c.cfg.Endpoint
	return check
}

func (c *CLI) checkGateway(ctx context.Context) DiagnosticCheck {
	check := DiagnosticCheck{Name: "gateway"}
	client := c.newGatewayClient()

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	health, err := client.GetHealthInfo(ctx)
	if err != nil {
		check.Message = "unreachable"
		check.Details = err.Error()
		return check
	}
	check.Passed = health.Status == "healthy"
	check.Message = health.Status
	check.Details = "version: " + health.Version
	return check
}

func (c *CLI) checkReadiness(ctx context.Context) DiagnosticCheck {
	check := DiagnosticCheck{Name: "readiness"}
	client := c.newGatewayClient()

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	remote, err := client.GetStatus(ctx)
	if err != nil {
		check.Message = "status unavailable"
		check.Details = err.Error()
		return check
	}
	check.Passed = remote.Ready
	if remote.Ready {
		check.Message = fmt.Sprintf("ready (%d engines, repository %s)",
			remote.EnginesAvailable, remote.RepositoryHealth)
	} else {
		check.Message = "not ready"
		check.Details = remote.Reason
	}
	return check
}

func (c *CLI) checkGenerator() DiagnosticCheck {
	check := DiagnosticCheck{Name: "generator", Passed: true}
	if c.cfg.Gemini.APIKey == "" {
		check.Message = "baseline (no Gemini API key configured)"
		return check
	}
	check.Message = "gemini"
	check.Details = "model: " + c.cfg.Gemini.Model
	return check
}
