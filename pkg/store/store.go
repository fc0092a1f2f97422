// bouchon/pkg/store/store.go

package store

import (
	"bouchon/pkg/flow"
	"bouchon/pkg/scenario"
)

// PersistedScenario is the durable form of one scenario: its flows in
// capture order and the flow-id to rule-map projection.
type PersistedScenario struct {
	Name  string                                  `json:"name"`
	Flows []*flow.Flow                            `json:"flows"`
	Rules map[string]map[string][]scenario.Fields `json:"rules"`
}

// Store persists scenario state across restarts.
type Store interface {
	SaveScenario(s *scenario.Scenario) error
	DeleteScenario(name string) error
	SaveCurrent(name string) error
	LoadAll() ([]PersistedScenario, string, error)
}
