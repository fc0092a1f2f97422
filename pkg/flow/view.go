// bouchon/pkg/flow/view.go

package flow

import (
	"encoding/json"
	"sync"

	"bouchon/pkg/logging"
)

type EventKind string

const (
	EventAdd    EventKind = "add"
	EventUpdate EventKind = "update"
	EventRemove EventKind = "remove"
)

// Event describes one change to the live view, delivered to subscribers.
type Event struct {
	Kind EventKind
	Flow *Flow
}

// View is the live flow store: every flow the interception engine has handed
// over, in arrival order, plus the matcher registry used by the replay
// engine. One View exists per process.
type View struct {
	mu        sync.RWMutex
	flows     []*Flow
	byID      map[string]*Flow
	matchers  map[string]json.RawMessage
	listeners []func(Event)
}

func NewView() *View {
	return &View{
		byID:     make(map[string]*Flow),
		matchers: make(map[string]json.RawMessage),
	}
}

// OnEvent subscribes fn to view changes. Subscriptions last for the process
// lifetime; there is no unsubscribe.
func (v *View) OnEvent(fn func(Event)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.listeners = append(v.listeners, fn)
}

func (v *View) notify(kind EventKind, flows []*Flow) {
	v.mu.RLock()
	listeners := append(make([]func(Event), 0, len(v.listeners)), v.listeners...)
	v.mu.RUnlock()
	for _, fn := range listeners {
		for _, f := range flows {
			fn(Event{Kind: kind, Flow: f})
		}
	}
}

// All returns the flows in arrival order.
func (v *View) All() []*Flow {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]*Flow(nil), v.flows...)
}

// Len returns the number of live flows.
func (v *View) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.flows)
}

// Get looks a flow up by id.
func (v *View) Get(id string) (*Flow, error) {
	v.mu.RLock()
	f, ok := v.byID[id]
	v.mu.RUnlock()
	if !ok {
		return nil, logging.NewError(logging.ErrorTypeNotFound, "flow not found", nil,
			map[string]interface{}{"flow_id": id})
	}
	return f, nil
}

// Add appends flows that are not already present.
func (v *View) Add(flows ...*Flow) {
	v.mu.Lock()
	added := make([]*Flow, 0, len(flows))
	for _, f := range flows {
		if _, ok := v.byID[f.ID]; ok {
			continue
		}
		v.flows = append(v.flows, f)
		v.byID[f.ID] = f
		added = append(added, f)
	}
	v.mu.Unlock()
	v.notify(EventAdd, added)
}

// Remove drops flows from the view. Unknown flows are ignored.
func (v *View) Remove(flows ...*Flow) {
	v.mu.Lock()
	removed := make([]*Flow, 0, len(flows))
	for _, f := range flows {
		if _, ok := v.byID[f.ID]; !ok {
			continue
		}
		delete(v.byID, f.ID)
		for i, g := range v.flows {
			if g.ID == f.ID {
				v.flows = append(v.flows[:i], v.flows[i+1:]...)
				break
			}
		}
		removed = append(removed, f)
	}
	v.mu.Unlock()
	v.notify(EventRemove, removed)
}

// Update announces in-place mutations of flows already in the view.
func (v *View) Update(flows ...*Flow) {
	v.mu.RLock()
	updated := make([]*Flow, 0, len(flows))
	for _, f := range flows {
		if _, ok := v.byID[f.ID]; ok {
			updated = append(updated, f)
		}
	}
	v.mu.RUnlock()
	v.notify(EventUpdate, updated)
}

// RegisterMatcher binds an opaque match predicate to an identifier. The
// replay engine reads these; the core only keeps custody.
func (v *View) RegisterMatcher(id string, payload json.RawMessage) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.matchers[id] = append(json.RawMessage(nil), payload...)
}

// Matcher returns the registered payload for id, or nil.
func (v *View) Matcher(id string) json.RawMessage {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.matchers[id]
}

// Matchers returns a copy of the whole registry.
func (v *View) Matchers() map[string]json.RawMessage {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make(map[string]json.RawMessage, len(v.matchers))
	for k, p := range v.matchers {
		out[k] = p
	}
	return out
}

// Clear drops every flow and matcher.
func (v *View) Clear() {
	v.mu.Lock()
	removed := v.flows
	v.flows = nil
	v.byID = make(map[string]*Flow)
	v.matchers = make(map[string]json.RawMessage)
	v.mu.Unlock()
	v.notify(EventRemove, removed)
}
