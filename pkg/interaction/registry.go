// Package interaction holds the set of event sources to observe and manages
// the handler subscriptions made against them.
package interaction

import (
	"errors"
	"fmt"

	"github.com/Veraticus/not-idle/pkg/interfaces"
)

// Spec pairs an event source with the event names observed on it.
type Spec struct {
	Source interfaces.EventSource
	Events []string
}

// Validate reports whether the spec can be watched.
func (s Spec) Validate() error {
	if s.Source == nil {
		return errors.New("interaction has no source")
	}
	if len(s.Events) == 0 {
		return errors.New("interaction has no events")
	}
	for i, name := range s.Events {
		if name == "" {
			return fmt.Errorf("interaction event %d is empty", i)
		}
	}
	return nil
}

// Pair is a single (source, event) subscription target.
type Pair struct {
	Source interfaces.EventSource
	Event  string
}

// Registry is an ordered, append-only list of specs.
// Duplicate specs are kept.
type Registry struct {
	specs []Spec
}

// Add appends specs in order.
func (r *Registry) Add(specs ...Spec) {
	for _, s := range specs {
		r.specs = append(r.specs, Spec{
			Source: s.Source,
			Events: append([]string(nil), s.Events...),
		})
	}
}

// AddDefaults appends a spec covering root and DefaultEvents.
func (r *Registry) AddDefaults(root interfaces.EventSource) {
	r.Add(Spec{Source: root, Events: DefaultEvents()})
}

// Len returns the number of specs.
func (r *Registry) Len() int {
	return len(r.specs)
}

// Specs returns a copy of the registered specs.
func (r *Registry) Specs() []Spec {
	out := make([]Spec, len(r.specs))
	copy(out, r.specs)
	return out
}

// Clone returns an independent copy of the registry.
func (r *Registry) Clone() *Registry {
	c := &Registry{}
	c.Add(r.specs...)
	return c
}

// Pairs expands the specs into subscription targets, preserving order.
func (r *Registry) Pairs() []Pair {
	var pairs []Pair
	for _, s := range r.specs {
		for _, name := range s.Events {
			pairs = append(pairs, Pair{Source: s.Source, Event: name})
		}
	}
	return pairs
}
