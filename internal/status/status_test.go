package status

import (
	"context"
	"strings"
	"testing"
)

func healthyReadiness() *Readiness {
	return &Readiness{
		Ready: true,
		Components: map[string]Component{
			"history_repository": {Ready: true, Message: "connected"},
			"engines":            {Ready: true, Message: "duckdb, sqlite"},
			"generator":          {Ready: true, Message: "baseline"},
		},
	}
}

func TestFuncChecker_Healthy(t *testing.T) {
	checker := NewFuncChecker(
		func(ctx context.Context) *Readiness { return healthyReadiness() },
		func() string { return "v1.2.3" },
	)

	result, err := checker.GetStatus(context.Background())
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if !result.Ready || !result.GatewayReady {
		t.Errorf("got %+v, want ready", result)
	}
	if result.RepositoryHealth != "connected" {
		t.Errorf("got repository health %q", result.RepositoryHealth)
	}
	if result.Generator != "baseline" {
		t.Errorf("got generator %q", result.Generator)
	}
	if result.Version != "v1.2.3" {
		t.Errorf("got version %q", result.Version)
	}
}

func TestFuncChecker_RepositoryDown(t *testing.T) {
	readiness := healthyReadiness()
	readiness.Ready = false
	readiness.Components["history_repository"] = Component{Ready: false, Message: "connection refused"}

	checker := NewFuncChecker(
		func(ctx context.Context) *Readiness { return readiness },
		func() string { return "v1" },
	)

	result, err := checker.GetStatus(context.Background())
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if result.Ready {
		t.Error("expected not ready")
	}
	if !strings.Contains(result.Reason, "history repository") {
		t.Errorf("got reason %q", result.Reason)
	}
}

func TestFuncChecker_EnginesDown(t *testing.T) {
	readiness := healthyReadiness()
	readiness.Ready = false
	readiness.Components["engines"] = Component{Ready: false, Message: "none available"}

	checker := NewFuncChecker(
		func(ctx context.Context) *Readiness { return readiness },
		func() string { return "v1" },
	)

	result, _ := checker.GetStatus(context.Background())
	if result.Ready {
		t.Error("expected not ready")
	}
	if !strings.Contains(result.Reason, "engines") {
		t.Errorf("got reason %q", result.Reason)
	}
}

func TestResult_String(t *testing.T) {
	ready := &Result{Ready: true, RepositoryHealth: "connected", EnginesAvailable: 2, Generator: "gemini", Version: "v1"}
	out := ready.String()
	if !strings.Contains(out, "Status: ready") || !strings.Contains(out, "Engines available: 2") {
		t.Errorf("got:\n%s", out)
	}

	notReady := &Result{Ready: false, Reason: "boom", RepositoryHealth: "unreachable"}
	out = notReady.String()
	if !strings.Contains(out, "Status: not ready") || !strings.Contains(out, "Reason: boom") {
		t.Errorf("got:\n%s", out)
	}
}

func TestMockChecker(t *testing.T) {
	mock := NewMockChecker()

	result, err := mock.GetStatus(context.Background())
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if !result.Ready || result.EnginesAvailable != 1 {
		t.Errorf("got %+v, want healthy default", result)
	}

	mock.SetRepositoryStatus(false, "timeout")
	result, _ = mock.GetStatus(context.Background())
	if result.Ready {
		t.Error("expected not ready after repository failure")
	}

	mock.SetRepositoryStatus(true, "connected")
	mock.SetEngineStatus(false, "driver missing")
	result, _ = mock.GetStatus(context.Background())
	if result.Ready || result.EnginesAvailable != 0 {
		t.Errorf("got %+v, want engines down", result)
	}
}
