package reporter

import "github.com/justapithecus/rpreport/types"

// State is the caller-owned run state: the identifiers of the open launch
// and of the open item at each level of the hierarchy.
//
// Each identifier is types.EmptyID (nothing open), a server-issued ID, or
// "" when the creation response carried no id. The parent chain
// launch → root → feature → scenario → step is implied by call order and
// is not enforced here.
type State struct {
	LaunchID       string `json:"launch_id" yaml:"launch_id" msgpack:"launch_id"`
	RootItemID     string `json:"root_item_id" yaml:"root_item_id" msgpack:"root_item_id"`
	FeatureItemID  string `json:"feature_item_id" yaml:"feature_item_id" msgpack:"feature_item_id"`
	ScenarioItemID string `json:"scenario_item_id" yaml:"scenario_item_id" msgpack:"scenario_item_id"`
	StepItemID     string `json:"step_item_id" yaml:"step_item_id" msgpack:"step_item_id"`
}

// NewState returns a state with every identifier set to types.EmptyID.
func NewState() State {
	return State{
		LaunchID:       types.EmptyID,
		RootItemID:     types.EmptyID,
		FeatureItemID:  types.EmptyID,
		ScenarioItemID: types.EmptyID,
		StepItemID:     types.EmptyID,
	}
}

// IsSuiteRunning reports whether a root item is open.
func (s State) IsSuiteRunning() bool { return s.RootItemID != types.EmptyID }

// IsFeatureRunning reports whether a feature item is open.
func (s State) IsFeatureRunning() bool { return s.FeatureItemID != types.EmptyID }

// IsScenarioRunning reports whether a scenario item is open.
func (s State) IsScenarioRunning() bool { return s.ScenarioItemID != types.EmptyID }

// IsStepRunning reports whether a step item is open.
func (s State) IsStepRunning() bool { return s.StepItemID != types.EmptyID }

// addressable reports whether id can be sent as a path segment.
func addressable(id string) bool {
	return id != "" && id != types.EmptyID
}
