package reporter

import (
	"context"
	"errors"
	"fmt"

	"github.com/justapithecus/rpreport/transport"
	"github.com/justapithecus/rpreport/types"
)

// level names one tracked tier below the root item.
type level struct {
	name     string
	itemType types.ItemType
	parent   func(State) string
	id       func(*State) *string
}

var (
	featureLevel = level{
		name:     "feature",
		itemType: types.ItemTypeStory,
		parent:   func(s State) string { return s.RootItemID },
		id:       func(s *State) *string { return &s.FeatureItemID },
	}
	scenarioLevel = level{
		name:     "scenario",
		itemType: types.ItemTypeScenario,
		parent:   func(s State) string { return s.FeatureItemID },
		id:       func(s *State) *string { return &s.ScenarioItemID },
	}
	stepLevel = level{
		name:     "step",
		itemType: types.ItemTypeStep,
		parent:   func(s State) string { return s.ScenarioItemID },
		id:       func(s *State) *string { return &s.StepItemID },
	}
)

// StartFeature creates a STORY item under the root item and stores its id.
func (c *Client) StartFeature(ctx context.Context, name, description string, tags []string) (*transport.Response, error) {
	return c.startLevel(ctx, featureLevel, name, description, tags)
}

// FinishFeature finishes the open feature and clears its id.
func (c *Client) FinishFeature(ctx context.Context, status types.ItemStatus, description string) (*transport.Response, error) {
	return c.finishLevel(ctx, featureLevel, status, description)
}

// StartScenario creates a SCENARIO item under the open feature.
func (c *Client) StartScenario(ctx context.Context, name, description string, tags []string) (*transport.Response, error) {
	return c.startLevel(ctx, scenarioLevel, name, description, tags)
}

// FinishScenario finishes the open scenario and clears its id.
func (c *Client) FinishScenario(ctx context.Context, status types.ItemStatus, description string) (*transport.Response, error) {
	return c.finishLevel(ctx, scenarioLevel, status, description)
}

// StartStep creates a STEP item under the open scenario.
func (c *Client) StartStep(ctx context.Context, name, description string, tags []string) (*transport.Response, error) {
	return c.startLevel(ctx, stepLevel, name, description, tags)
}

// FinishStep finishes the open step and clears its id.
func (c *Client) FinishStep(ctx context.Context, status types.ItemStatus, description string) (*transport.Response, error) {
	return c.finishLevel(ctx, stepLevel, status, description)
}

// SetStepItemID marks id as the running step, for callers that create
// steps through StartChildItem.
func (c *Client) SetStepItemID(id string) {
	c.update(func(s *State) { s.StepItemID = id })
}

// ClearStepItemID marks no step as running.
func (c *Client) ClearStepItemID() {
	c.update(func(s *State) { s.StepItemID = types.EmptyID })
}

func (c *Client) startLevel(ctx context.Context, l level, name, description string, tags []string) (*transport.Response, error) {
	parent := l.parent(c.State())
	if !addressable(parent) {
		return nil, fmt.Errorf("start %s: parent: %w", l.name, ErrMissingID)
	}
	resp, err := c.StartChildItem(ctx, parent, description, name, l.itemType, tags)
	if resp == nil {
		return nil, err
	}
	id, _ := resp.Field("id")
	c.update(func(s *State) { *l.id(s) = id })
	return resp, err
}

func (c *Client) finishLevel(ctx context.Context, l level, status types.ItemStatus, description string) (*transport.Response, error) {
	st := c.State()
	id := *l.id(&st)
	if id == types.EmptyID {
		return nil, fmt.Errorf("finish %s: %w", l.name, ErrNotRunning)
	}
	resp, err := c.FinishItem(ctx, id, status, description)
	if resp != nil || errors.Is(err, ErrMissingID) {
		c.update(func(s *State) { *l.id(s) = types.EmptyID })
	}
	return resp, err
}
