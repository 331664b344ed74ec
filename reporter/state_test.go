package reporter

import (
	"testing"

	"github.com/justapithecus/rpreport/types"
)

func TestState_Running(t *testing.T) {
	s := NewState()
	if s.IsSuiteRunning() || s.IsFeatureRunning() || s.IsScenarioRunning() || s.IsStepRunning() {
		t.Fatal("expected nothing running in a new state")
	}

	s.RootItemID = "r"
	s.StepItemID = "s"
	if !s.IsSuiteRunning() || !s.IsStepRunning() {
		t.Error("expected suite and step running")
	}
	if s.IsFeatureRunning() || s.IsScenarioRunning() {
		t.Error("expected feature and scenario idle")
	}

	// An absent id still counts as running: it was started, the service
	// just did not return an id.
	s.FeatureItemID = ""
	if !s.IsFeatureRunning() {
		t.Error("expected absent feature id to count as running")
	}
}

func TestAddressable(t *testing.T) {
	for id, want := range map[string]bool{
		"":            false,
		types.EmptyID: false,
		"abc":         true,
		" ":           true,
	} {
		if got := addressable(id); got != want {
			t.Errorf("addressable(%q) = %v, want %v", id, got, want)
		}
	}
}
