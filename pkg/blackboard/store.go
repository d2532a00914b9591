// Package blackboard is the shared, topic-keyed store the pipeline stages use to
// hand documents to each other. A Store belongs to exactly one run.
package blackboard

import (
	"sort"
	"sync"
)

// Topics written by the pipeline stages.
const (
	PlanTopic      = "plan"
	RetrievalTopic = "retrieval"
	ReasoningTopic = "reasoning"
)

// Store maps topic names to JSON compatible documents. All operations are
// serialized through one mutex and every value handed out is an independent copy.
type Store struct {
	mu     sync.Mutex
	topics map[string]any
}

func New() *Store {
	return &Store{topics: map[string]any{}}
}

// Write stores value under topic. With merge set and both the current and the new
// value being maps, keys of the new value overwrite existing keys and the others
// are kept; otherwise the topic is replaced. The resulting value is returned as a copy.
func (s *Store) Write(topic string, value any, merge bool) any {
	sanitized := Sanitize(value)

	s.mu.Lock()
	defer s.mu.Unlock()

	next := sanitized
	if merge {
		incoming, newIsMap := sanitized.(map[string]any)
		existing, oldIsMap := s.topics[topic].(map[string]any)
		if newIsMap && oldIsMap {
			merged := make(map[string]any, len(existing)+len(incoming))
			for k, v := range existing {
				merged[k] = v
			}
			for k, v := range incoming {
				merged[k] = v
			}
			next = merged
		}
	}
	s.topics[topic] = next
	return deepCopy(next)
}

// Read returns a copy of the value under topic, or a sanitized copy of def when the
// topic is absent.
func (s *Store) Read(topic string, def any) any {
	fallback := Sanitize(def)

	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.topics[topic]; ok {
		return deepCopy(v)
	}
	return fallback
}

// Has reports whether topic currently holds a value.
func (s *Store) Has(topic string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.topics[topic]
	return ok
}

// Reset clears every topic.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.topics = map[string]any{}
}

// Delete removes exactly the given topics, missing ones included, and returns the
// names of the topics that remain. An empty set removes nothing.
func (s *Store) Delete(topics ...string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range topics {
		delete(s.topics, t)
	}
	remaining := make([]string, 0, len(s.topics))
	for t := range s.topics {
		remaining = append(remaining, t)
	}
	sort.Strings(remaining)
	return remaining
}

// Snapshot copies the whole board.
func (s *Store) Snapshot() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := make(map[string]any, len(s.topics))
	for k, v := range s.topics {
		res[k] = deepCopy(v)
	}
	return res
}
