// bouchon/pkg/scenario/controller.go

package scenario

import (
	"bouchon/pkg/flow"
	"bouchon/pkg/logging"
)

// Persister saves scenario state somewhere durable, including the captured
// flows, so a restart can rebuild the store and the live view.
type Persister interface {
	SaveScenario(s *Scenario) error
	DeleteScenario(name string) error
	SaveCurrent(name string) error
}

// Controller owns the side effects around the scenario store: what happens
// to the live view when scenarios come and go, the learning/mock toggles,
// and the capture hook the view binding calls for new flows.
type Controller struct {
	store     *Store
	view      *flow.View
	persister Persister
}

func NewController(store *Store, view *flow.View) *Controller {
	return &Controller{store: store, view: view}
}

// SetPersister enables durable scenario state. Persistence failures are
// logged, never surfaced; the in-memory store stays authoritative.
func (c *Controller) SetPersister(p Persister) {
	c.persister = p
}

// Store exposes the underlying store for read paths.
func (c *Controller) Store() *Store {
	return c.store
}

// Activate makes name the current scenario, creating it on first use.
func (c *Controller) Activate(name string) error {
	if !c.store.Has(name) {
		if err := c.store.Add(name); err != nil {
			return err
		}
	}
	if err := c.store.SetCurrent(name); err != nil {
		return err
	}
	logging.Logger.Info().Str("scenario", name).Msg("Scenario activated")
	c.persistScenario(name)
	c.persistCurrent()
	return nil
}

// Remove deletes a scenario and evicts its captured flows from the live
// view. Neighbor reselection happens inside the store, atomically.
func (c *Controller) Remove(name string) error {
	evicted, err := c.store.Remove(name)
	if err != nil {
		return err
	}
	c.view.Remove(evicted...)
	logging.Logger.Info().Str("scenario", name).Int("evicted_flows", len(evicted)).
		Str("current", c.store.Current()).Msg("Scenario removed")
	if c.persister != nil {
		if err := c.persister.DeleteScenario(name); err != nil {
			logging.LogError(logging.Logger, err)
		}
	}
	c.persistCurrent()
	return nil
}

// Copy renames src to dst and makes dst current.
func (c *Controller) Copy(src, dst string) error {
	if err := c.store.Copy(src, dst); err != nil {
		return err
	}
	logging.Logger.Info().Str("from", src).Str("to", dst).Msg("Scenario copied")
	if c.persister != nil {
		if err := c.persister.DeleteScenario(src); err != nil {
			logging.LogError(logging.Logger, err)
		}
	}
	c.persistScenario(dst)
	c.persistCurrent()
	return nil
}

// SwitchLearning flips learning mode and returns the new value.
func (c *Controller) SwitchLearning() bool {
	on := c.store.SwitchLearning()
	logging.Logger.Info().Bool("learning", on).Msg("Learning mode switched")
	return on
}

// SwitchMock flips mock mode and returns the new value.
func (c *Controller) SwitchMock() bool {
	on := c.store.SwitchMock()
	logging.Logger.Info().Bool("mock", on).Msg("Mock mode switched")
	return on
}

// OnFlowCaptured is the hook the view binding calls for every newly observed
// flow. While learning is on and a scenario is active, the flow is captured
// into it.
func (c *Controller) OnFlowCaptured(f *flow.Flow) {
	if !c.store.Learning() {
		return
	}
	s := c.store.CurrentScenario()
	if s == nil {
		return
	}
	s.AddFlow(f)
	logging.Logger.Debug().Str("scenario", s.Name).Str("flow_id", f.ID).Msg("Flow captured")
	c.persistScenario(s.Name)
}

// OnFlowsListed turns both modes off after a full flow listing. The boundary
// layer calls this explicitly; it is not buried inside the query itself.
func (c *Controller) OnFlowsListed() {
	if c.store.Mock() {
		c.SwitchMock()
	}
	if c.store.Learning() {
		c.SwitchLearning()
	}
}

// DeleteFlow kills a flow if it is still killable and drops it from the
// current scenario and the live view.
func (c *Controller) DeleteFlow(id string) error {
	f, err := c.view.Get(id)
	if err != nil {
		return err
	}
	if f.Killable() {
		f.Kill()
	}
	if s := c.store.CurrentScenario(); s != nil {
		s.RemoveFlow(id)
		c.persistScenario(s.Name)
	}
	c.view.Remove(f)
	return nil
}

// UpdateRule appends (index == -1) or replaces a rule on the flow's rule set
// in the current scenario.
func (c *Controller) UpdateRule(flowID, label string, index int, fields Fields) error {
	rs, err := c.currentRuleSet(flowID)
	if err != nil {
		return err
	}
	if index == -1 {
		rs.AddRule(label, fields)
	} else if err := rs.SetRule(label, fields, index); err != nil {
		return err
	}
	c.persistCurrentScenario()
	return nil
}

// MoveRule swaps two rule positions under a label.
func (c *Controller) MoveRule(flowID, label string, i, j int) error {
	rs, err := c.currentRuleSet(flowID)
	if err != nil {
		return err
	}
	if err := rs.SwitchRules(label, i, j); err != nil {
		return err
	}
	c.persistCurrentScenario()
	return nil
}

// DeleteRule removes one rule and recompacts the label's indices.
func (c *Controller) DeleteRule(flowID, label string, index int) error {
	rs, err := c.currentRuleSet(flowID)
	if err != nil {
		return err
	}
	if err := rs.DeleteRule(label, index); err != nil {
		return err
	}
	c.persistCurrentScenario()
	return nil
}

func (c *Controller) currentRuleSet(flowID string) (*RuleSet, error) {
	s := c.store.CurrentScenario()
	if s == nil {
		return nil, logging.NewError(logging.ErrorTypeNotFound, "no current scenario", nil, nil)
	}
	return s.RuleSetFor(flowID)
}

func (c *Controller) persistScenario(name string) {
	if c.persister == nil {
		return
	}
	s, err := c.store.Get(name)
	if err != nil {
		return
	}
	if err := c.persister.SaveScenario(s); err != nil {
		logging.LogError(logging.Logger, err)
	}
}

func (c *Controller) persistCurrentScenario() {
	if name := c.store.Current(); name != "" {
		c.persistScenario(name)
	}
}

func (c *Controller) persistCurrent() {
	if c.persister == nil {
		return
	}
	if err := c.persister.SaveCurrent(c.store.Current()); err != nil {
		logging.LogError(logging.Logger, err)
	}
}
