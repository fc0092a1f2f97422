// bouchon/pkg/scenario/ruleset.go

package scenario

import (
	"sync"

	"bouchon/pkg/logging"
)

// Fields is one rule's payload. The schema belongs to the replay engine; the
// core never interprets it, it only keeps rules in order.
type Fields map[string]interface{}

// RuleSet holds the ordered rule lists for a single flow, grouped by label.
// Within a label, rule indices are always a dense 0-based sequence. The set
// carries its own lock: handlers mutate it through the pointer RuleSetFor
// hands out, outside any scenario-level lock.
type RuleSet struct {
	mu     sync.Mutex
	labels map[string][]Fields
}

func NewRuleSet() *RuleSet {
	return &RuleSet{labels: make(map[string][]Fields)}
}

// AddRule appends a rule at the end of the label's list.
func (rs *RuleSet) AddRule(label string, fields Fields) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.labels[label] = append(rs.labels[label], fields)
}

// SetRule replaces the rule at index, or appends when index equals the
// current list length. Anything past that is rejected, not grown into.
func (rs *RuleSet) SetRule(label string, fields Fields, index int) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rules := rs.labels[label]
	if index < 0 || index > len(rules) {
		return indexError(label, index, len(rules))
	}
	if index == len(rules) {
		rs.labels[label] = append(rules, fields)
		return nil
	}
	rules[index] = fields
	return nil
}

// SwitchRules swaps the rules at positions i and j. Out-of-range positions
// are rejected so moving the first rule up or the last rule down fails
// instead of wrapping.
func (rs *RuleSet) SwitchRules(label string, i, j int) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rules := rs.labels[label]
	if i < 0 || i >= len(rules) {
		return indexError(label, i, len(rules))
	}
	if j < 0 || j >= len(rules) {
		return indexError(label, j, len(rules))
	}
	rules[i], rules[j] = rules[j], rules[i]
	return nil
}

// DeleteRule removes the rule at index and shifts the rest down. The label
// entry disappears entirely once its list is empty.
func (rs *RuleSet) DeleteRule(label string, index int) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rules, ok := rs.labels[label]
	if !ok || index < 0 || index >= len(rules) {
		return logging.NewError(logging.ErrorTypeNotFound, "rule not found", nil,
			map[string]interface{}{"label": label, "index": index})
	}
	rules = append(rules[:index], rules[index+1:]...)
	if len(rules) == 0 {
		delete(rs.labels, label)
		return nil
	}
	rs.labels[label] = rules
	return nil
}

// Rules returns the label's list in order.
func (rs *RuleSet) Rules(label string) []Fields {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return append([]Fields(nil), rs.labels[label]...)
}

// Len returns the number of rules under the label.
func (rs *RuleSet) Len(label string) int {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return len(rs.labels[label])
}

// Empty reports whether no label holds any rule.
func (rs *RuleSet) Empty() bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return len(rs.labels) == 0
}

// ToMap projects the set to its transport form: label to ordered payloads.
func (rs *RuleSet) ToMap() map[string][]Fields {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	out := make(map[string][]Fields, len(rs.labels))
	for label, rules := range rs.labels {
		out[label] = append([]Fields(nil), rules...)
	}
	return out
}

// RuleSetFromMap rebuilds a set from its transport form. Labels with empty
// lists are dropped to keep the dense-index invariant.
func RuleSetFromMap(m map[string][]Fields) *RuleSet {
	rs := NewRuleSet()
	for label, rules := range m {
		if len(rules) == 0 {
			continue
		}
		rs.labels[label] = append([]Fields(nil), rules...)
	}
	return rs
}

func indexError(label string, index, length int) error {
	return logging.NewError(logging.ErrorTypeIndexRange, "rule index out of range", nil,
		map[string]interface{}{"label": label, "index": index, "length": length})
}
