package reporter

import (
	"errors"
	"net/http"
	"testing"

	"github.com/justapithecus/rpreport/types"
)

func TestHierarchy(t *testing.T) {
	svc := &fakeService{}
	c := newTestClient(t, svc, true)
	ctx := t.Context()

	if _, err := c.StartLaunch(ctx, "l", "", "", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := c.StartSuite(ctx, "suite", "", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := c.StartFeature(ctx, "login", "", []string{"auth"}); err != nil {
		t.Fatal(err)
	}
	if _, err := c.StartScenario(ctx, "valid password", "", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := c.StartStep(ctx, "submit form", "", nil); err != nil {
		t.Fatal(err)
	}

	s := c.State()
	if s.RootItemID != "item-1" || s.FeatureItemID != "item-2" || s.ScenarioItemID != "item-3" || s.StepItemID != "item-4" {
		t.Fatalf("unexpected state %+v", s)
	}
	if !c.IsFeatureRunning() || !c.IsScenarioRunning() || !c.IsStepRunning() {
		t.Error("expected every level running")
	}

	reqs := svc.requests()
	creations := []struct {
		path     string
		itemType string
	}{
		{"/api/v1/demo/item/item-1", "STORY"},
		{"/api/v1/demo/item/item-2", "SCENARIO"},
		{"/api/v1/demo/item/item-3", "STEP"},
	}
	for i, want := range creations {
		r := reqs[2+i]
		if r.Method != http.MethodPost || r.Path != want.path {
			t.Errorf("creation %d: unexpected request %s %s", i, r.Method, r.Path)
		}
		body := r.jsonBody(t)
		if body["type"] != want.itemType {
			t.Errorf("creation %d: expected %s, got %v", i, want.itemType, body["type"])
		}
		if body["launch_id"] != "launch-1" {
			t.Errorf("creation %d: expected launch-1, got %v", i, body["launch_id"])
		}
	}

	if _, err := c.FinishStep(ctx, types.StatusPassed, ""); err != nil {
		t.Fatal(err)
	}
	if c.IsStepRunning() {
		t.Error("expected step cleared")
	}
	if _, err := c.FinishScenario(ctx, types.StatusFailed, "assertion"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.FinishFeature(ctx, types.StatusFailed, ""); err != nil {
		t.Fatal(err)
	}
	if c.IsScenarioRunning() || c.IsFeatureRunning() {
		t.Error("expected scenario and feature cleared")
	}

	reqs = svc.requests()
	finishes := []string{
		"/api/v1/demo/item/item-4",
		"/api/v1/demo/item/item-3",
		"/api/v1/demo/item/item-2",
	}
	for i, want := range finishes {
		r := reqs[5+i]
		if r.Method != http.MethodPut || r.Path != want {
			t.Errorf("finish %d: unexpected request %s %s", i, r.Method, r.Path)
		}
	}
	if got := reqs[6].jsonBody(t)["description"]; got != "assertion" {
		t.Errorf("expected scenario description, got %v", got)
	}
}

func TestFinishLevel_NotRunning(t *testing.T) {
	svc := &fakeService{}
	c := newTestClient(t, svc, true)
	ctx := t.Context()

	for name, finish := range map[string]func() error{
		"feature": func() error {
			_, err := c.FinishFeature(ctx, types.StatusPassed, "")
			return err
		},
		"scenario": func() error {
			_, err := c.FinishScenario(ctx, types.StatusPassed, "")
			return err
		},
		"step": func() error {
			_, err := c.FinishStep(ctx, types.StatusPassed, "")
			return err
		},
	} {
		if err := finish(); !errors.Is(err, ErrNotRunning) {
			t.Errorf("%s: expected ErrNotRunning, got %v", name, err)
		}
	}
	if n := len(svc.requests()); n != 0 {
		t.Errorf("expected no requests, got %d", n)
	}
}

func TestStartScenario_WithoutFeature(t *testing.T) {
	svc := &fakeService{}
	c := newTestClient(t, svc, true, WithState(runningLaunch("L1")))

	if _, err := c.StartScenario(t.Context(), "x", "", nil); !errors.Is(err, ErrMissingID) {
		t.Errorf("expected ErrMissingID, got %v", err)
	}
	if n := len(svc.requests()); n != 0 {
		t.Errorf("expected no requests, got %d", n)
	}
}

func TestStepItemIDSetters(t *testing.T) {
	c := newTestClient(t, &fakeService{}, true)

	c.SetStepItemID("manual-step")
	if !c.IsStepRunning() || c.State().StepItemID != "manual-step" {
		t.Errorf("expected manual-step running, got %q", c.State().StepItemID)
	}
	c.ClearStepItemID()
	if c.IsStepRunning() {
		t.Error("expected no step running")
	}
}
