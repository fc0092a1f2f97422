// bouchon/pkg/scenario/store.go

package scenario

import (
	"sync"

	"bouchon/pkg/flow"
	"bouchon/pkg/logging"
)

// Store is the process-wide scenario state: every scenario keyed by name in
// insertion order, the current scenario ("" means none), and the two
// independent mode flags. It lives as long as the process, like the live
// flow view. Every operation is atomic under one mutex so neighbor
// reselection and the like can never be observed half-done.
type Store struct {
	mu        sync.Mutex
	scenarios map[string]*Scenario
	order     []string
	current   string
	learning  bool
	mock      bool
}

func NewStore() *Store {
	return &Store{scenarios: make(map[string]*Scenario)}
}

// Add inserts an empty scenario under name.
func (st *Store) Add(name string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.scenarios[name]; ok {
		return logging.NewError(logging.ErrorTypeDuplicateName, "scenario already exists", nil,
			map[string]interface{}{"scenario": name})
	}
	st.scenarios[name] = NewScenario(name)
	st.order = append(st.order, name)
	return nil
}

// Has reports whether name exists.
func (st *Store) Has(name string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	_, ok := st.scenarios[name]
	return ok
}

// Get looks a scenario up by name.
func (st *Store) Get(name string) (*Scenario, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.scenarios[name]
	if !ok {
		return nil, notFound(name)
	}
	return s, nil
}

// Names returns the scenario names in insertion order.
func (st *Store) Names() []string {
	st.mu.Lock()
	defer st.mu.Unlock()
	return append([]string(nil), st.order...)
}

// Current returns the current scenario name, "" when none is active.
func (st *Store) Current() string {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.current
}

// CurrentScenario returns the active scenario, or nil.
func (st *Store) CurrentScenario() *Scenario {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.current == "" {
		return nil
	}
	return st.scenarios[st.current]
}

// SetCurrent activates name. "" deactivates. Activation has no side effects
// here; the controller owns those.
func (st *Store) SetCurrent(name string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if name != "" {
		if _, ok := st.scenarios[name]; !ok {
			return notFound(name)
		}
	}
	st.current = name
	return nil
}

// Remove deletes a scenario and returns its captured flows so the caller can
// evict them from the live view. Removing the current scenario reselects a
// neighbor: the predecessor in insertion order, the successor when it was
// first, or "" when it was the only one.
func (st *Store) Remove(name string) ([]*flow.Flow, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.scenarios[name]
	if !ok {
		return nil, notFound(name)
	}

	idx := 0
	for i, n := range st.order {
		if n == name {
			idx = i
			break
		}
	}

	if st.current == name {
		switch {
		case len(st.order) == 1:
			st.current = ""
		case idx > 0:
			st.current = st.order[idx-1]
		default:
			st.current = st.order[idx+1]
		}
	}

	delete(st.scenarios, name)
	st.order = append(st.order[:idx], st.order[idx+1:]...)
	return s.Flows(), nil
}

// Copy renames src to dst, moving its flows and rule sets; src stops
// existing and dst becomes current. This is a rename, not an independent
// duplicate.
func (st *Store) Copy(src, dst string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.scenarios[dst]; ok {
		return logging.NewError(logging.ErrorTypeDuplicateName, "scenario already exists", nil,
			map[string]interface{}{"scenario": dst})
	}
	source, ok := st.scenarios[src]
	if !ok {
		return notFound(src)
	}

	target := NewScenario(dst)
	source.moveContents(target)
	st.scenarios[dst] = target
	st.order = append(st.order, dst)

	delete(st.scenarios, src)
	for i, n := range st.order {
		if n == src {
			st.order = append(st.order[:i], st.order[i+1:]...)
			break
		}
	}
	st.current = dst
	return nil
}

// Learning reports the learning flag.
func (st *Store) Learning() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.learning
}

// Mock reports the mock flag.
func (st *Store) Mock() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.mock
}

// SwitchLearning flips the learning flag and returns the new value.
func (st *Store) SwitchLearning() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.learning = !st.learning
	return st.learning
}

// SwitchMock flips the mock flag and returns the new value. Independent of
// learning; the two flags are never forced to exclude each other.
func (st *Store) SwitchMock() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.mock = !st.mock
	return st.mock
}

func notFound(name string) error {
	return logging.NewError(logging.ErrorTypeNotFound, "scenario not found", nil,
		map[string]interface{}{"scenario": name})
}
