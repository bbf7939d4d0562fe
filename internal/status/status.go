// Package status provides operational status checking for the CLI and
// the gateway readiness probe.
package status

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Result is the outcome of a status check.
type Result struct {
	Ready            bool   `json:"ready"`
	Reason           string `json:"reason,omitempty"`
	GatewayReady     bool   `json:"gateway_ready"`
	RepositoryHealth string `json:"repository_health"`
	EnginesAvailable int    `json:"engines_available"`
	EnginesMessage   string `json:"engines_message"`
	Generator        string `json:"generator"`
	Version          string `json:"version"`
}

// String renders the result for terminal output.
func (r *Result) String() string {
	var sb strings.Builder
	if r.Ready {
		sb.WriteString("Status: ready\n")
	} else {
		sb.WriteString("Status: not ready\n")
		if r.Reason != "" {
			sb.WriteString("Reason: " + r.Reason + "\n")
		}
	}
	sb.WriteString(fmt.Sprintf("Repository: %s\n", r.RepositoryHealth))
	sb.WriteString(fmt.Sprintf("Engines available: %d\n", r.EnginesAvailable))
	if r.Generator != "" {
		sb.WriteString("Generator: " + r.Generator + "\n")
	}
	if r.Version != "" {
		sb.WriteString("Version: " + r.Version + "\n")
	}
	return sb.String()
}

// Checker provides status checking functionality.
type Checker interface {
	GetStatus(ctx context.Context) (*Result, error)
}

// Readiness mirrors the gateway's readiness aggregation.
type Readiness struct {
	Ready      bool
	Components map[string]Component
}

// Component is the readiness of one dependency.
type Component struct {
	Ready   bool
	Message string
}

// FuncChecker implements Checker using functions, adapting any gateway
// implementation without importing it.
type FuncChecker struct {
	getReadiness func(ctx context.Context) *Readiness
	getVersion   func() string
}

// NewFuncChecker creates a functional status checker.
func NewFuncChecker(
	getReadiness func(ctx context.Context) *Readiness,
	getVersion func() string,
) *FuncChecker {
	return &FuncChecker{
		getReadiness: getReadiness,
		getVersion:   getVersion,
	}
}

// GetStatus implements Checker.
func (c *FuncChecker) GetStatus(ctx context.Context) (*Result, error) {
	readiness := c.getReadiness(ctx)

	result := &Result{
		Ready:        readiness.Ready,
		GatewayReady: readiness.Ready,
		Version:      c.getVersion(),
	}

	if repo, ok := readiness.Components["history_repository"]; ok {
		result.RepositoryHealth = repo.Message
		if repo.Ready && result.RepositoryHealth == "" {
			result.RepositoryHealth = "connected"
		}
		if !repo.Ready {
			result.Ready = false
			result.Reason = "history repository not ready: " + repo.Message
		}
	}

	if engines, ok := readiness.Components["engines"]; ok {
		result.EnginesMessage = engines.Message
		if !engines.Ready {
			result.Ready = false
			if result.Reason == "" {
				result.Reason = "engines not ready: " + engines.Message
			}
		}
	}

	if gen, ok := readiness.Components["generator"]; ok {
		result.Generator = gen.Message
	}

	return result, nil
}

// MockChecker is a test implementation of Checker.
type MockChecker struct {
	mu            sync.RWMutex
	repoReady     bool
	repoMessage   string
	engineReady   bool
	engineMessage string
	version       string
}

// NewMockChecker creates a mock checker that reports everything healthy.
func NewMockChecker() *MockChecker {
	return &MockChecker{
		repoReady:     true,
		repoMessage:   "connected",
		engineReady:   true,
		engineMessage: "available",
		version:       "v0.1.0",
	}
}

// SetRepositoryStatus sets the repository status.
func (m *MockChecker) SetRepositoryStatus(ready bool, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.repoReady = ready
	m.repoMessage = message
}

// SetEngineStatus sets the engine status.
func (m *MockChecker) SetEngineStatus(ready bool, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.engineReady = ready
	m.engineMessage = message
}

// SetVersion sets the reported version.
func (m *MockChecker) SetVersion(version string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.version = version
}

// GetStatus implements Checker.
func (m *MockChecker) GetStatus(ctx context.Context) (*Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := &Result{
		Ready:            true,
		GatewayReady:     true,
		RepositoryHealth: m.repoMessage,
		EnginesMessage:   m.engineMessage,
		Version:          m.version,
	}
	if m.engineReady {
		result.EnginesAvailable = 1
	}

	if !m.repoReady {
		result.Ready = false
		result.Reason = "history repository not ready: " + m.repoMessage
	}
	if !m.engineReady {
		result.Ready = false
		if result.Reason == "" {
			result.Reason = "engines not ready: " + m.engineMessage
		}
	}
	if m.version == "" {
		result.Ready = false
		if result.Reason == "" {
			result.Reason = "no configuration loaded"
		}
	}

	return result, nil
}
