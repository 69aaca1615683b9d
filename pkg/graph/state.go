// Package graph provides a directed state graph for sequencing agent steps
// with conditional routing, bounded retry edges, and error-node handling.
package graph

import (
	"maps"

	"github.com/google/uuid"
)

// State is the named-slot mapping threaded through a workflow run. Set and
// AppendMessage return derived states (copy-on-write), so a node can never
// mutate state observed by another node; each run owns its state exclusively.
type State struct {
	runID    uuid.UUID
	slots    map[string]any
	messages []string
}

// NewState creates an empty state for a fresh run, seeded with the given
// initial slot values.
func NewState(initial map[string]any) State {
	slots := make(map[string]any, len(initial))
	maps.Copy(slots, initial)
	return State{
		runID: uuid.New(),
		slots: slots,
	}
}

// RunID returns the identifier of the run this state belongs to.
func (s State) RunID() uuid.UUID {
	return s.runID
}

// Get returns the value stored under key.
func (s State) Get(key string) (any, bool) {
	v, ok := s.slots[key]
	return v, ok
}

// GetString returns the string stored under key, or "" when absent or not
// a string.
func (s State) GetString(key string) string {
	v, ok := s.slots[key]
	if !ok {
		return ""
	}
	str, _ := v.(string)
	return str
}

// GetInt returns the int stored under key, or zero when absent or not an int.
func (s State) GetInt(key string) int {
	v, ok := s.slots[key]
	if !ok {
		return 0
	}
	n, _ := v.(int)
	return n
}

// Set returns a derived state with key bound to value.
func (s State) Set(key string, value any) State {
	slots := maps.Clone(s.slots)
	if slots == nil {
		slots = make(map[string]any, 1)
	}
	slots[key] = value

	return State{
		runID:    s.runID,
		slots:    slots,
		messages: s.messages,
	}
}

// Has reports whether key is bound.
func (s State) Has(key string) bool {
	_, ok := s.slots[key]
	return ok
}

// AppendMessage returns a derived state with msg added to the message trail.
func (s State) AppendMessage(msg string) State {
	messages := make([]string, len(s.messages), len(s.messages)+1)
	copy(messages, s.messages)

	return State{
		runID:    s.runID,
		slots:    s.slots,
		messages: append(messages, msg),
	}
}

// Messages returns the accumulated message trail.
func (s State) Messages() []string {
	return s.messages
}
