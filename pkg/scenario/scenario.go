// bouchon/pkg/scenario/scenario.go

package scenario

import (
	"sync"

	"bouchon/pkg/flow"
	"bouchon/pkg/logging"
)

// Scenario pairs the flows captured under one name with their per-flow rule
// sets. A rule set exists only for flows that are members of the scenario;
// dropping the flow drops its rules. The mutex covers all three containers:
// the capture hook runs on the ingestion worker while request handlers
// mutate the same scenario.
type Scenario struct {
	Name string

	mu      sync.Mutex
	flows   []*flow.Flow
	members map[string]struct{}
	rules   map[string]*RuleSet
}

func NewScenario(name string) *Scenario {
	return &Scenario{
		Name:    name,
		members: make(map[string]struct{}),
		rules:   make(map[string]*RuleSet),
	}
}

// Flows returns the captured flows in capture order.
func (s *Scenario) Flows() []*flow.Flow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*flow.Flow(nil), s.flows...)
}

// Contains reports membership by flow id.
func (s *Scenario) Contains(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.members[id]
	return ok
}

// AddFlow captures a flow into the scenario. Already-captured flows are
// ignored.
func (s *Scenario) AddFlow(f *flow.Flow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[f.ID]; ok {
		return
	}
	s.flows = append(s.flows, f)
	s.members[f.ID] = struct{}{}
}

// RemoveFlow drops a flow and its rule set.
func (s *Scenario) RemoveFlow(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[id]; !ok {
		return
	}
	delete(s.members, id)
	delete(s.rules, id)
	for i, f := range s.flows {
		if f.ID == id {
			s.flows = append(s.flows[:i], s.flows[i+1:]...)
			break
		}
	}
}

// RuleSetFor returns the flow's rule set, creating an empty one on first
// access. The flow must already be captured in this scenario.
func (s *Scenario) RuleSetFor(id string) (*RuleSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[id]; !ok {
		return nil, logging.NewError(logging.ErrorTypeNotFound, "flow not captured in scenario", nil,
			map[string]interface{}{"scenario": s.Name, "flow_id": id})
	}
	rs, ok := s.rules[id]
	if !ok {
		rs = NewRuleSet()
		s.rules[id] = rs
	}
	return rs, nil
}

// SetRules installs a rule set for a captured flow, replacing any existing
// one. Non-member flow ids are rejected to keep the membership invariant.
func (s *Scenario) SetRules(id string, rs *RuleSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[id]; !ok {
		return logging.NewError(logging.ErrorTypeNotFound, "flow not captured in scenario", nil,
			map[string]interface{}{"scenario": s.Name, "flow_id": id})
	}
	s.rules[id] = rs
	return nil
}

// Rules returns the flow-id to rule-set mapping.
func (s *Scenario) Rules() map[string]*RuleSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]*RuleSet, len(s.rules))
	for id, rs := range s.rules {
		out[id] = rs
	}
	return out
}

// Reset empties the scenario's flow set and rule mapping. Import uses this
// for its destructive-replace semantics.
func (s *Scenario) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flows = nil
	s.members = make(map[string]struct{})
	s.rules = make(map[string]*RuleSet)
}

// moveContents transfers flows and rules into dst, leaving s empty. Used by
// Store.Copy, which is a rename rather than a duplicate; dst is freshly
// created and not yet shared, so only s needs locking.
func (s *Scenario) moveContents(dst *Scenario) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dst.flows = s.flows
	dst.members = s.members
	dst.rules = s.rules
	s.flows = nil
	s.members = make(map[string]struct{})
	s.rules = make(map[string]*RuleSet)
}
