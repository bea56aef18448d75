package controller

import (
	"github.com/hyperion-energy/hyperion/pkg/types"
)

// Store holds the current Inputs of a session. It is owned by the session
// loop and is not safe for concurrent use.
type Store struct {
	current     types.Inputs
	subscribers []func(types.Inputs)
}

// NewStore creates a Store holding initial.
func NewStore(initial types.Inputs) *Store {
	return &Store{current: initial}
}

// Inputs returns the current snapshot.
func (s *Store) Inputs() types.Inputs {
	return s.current
}

// Subscribe registers fn to be called with every new snapshot.
func (s *Store) Subscribe(fn func(types.Inputs)) {
	s.subscribers = append(s.subscribers, fn)
}

// Edit replaces a single field and notifies subscribers. Values are taken as
// given; range clamping belongs to the input surface.
func (s *Store) Edit(f types.Field, v float64) (types.Inputs, error) {
	next, err := s.current.With(f, v)
	if err != nil {
		return s.current, err
	}
	return s.Replace(next), nil
}

// Replace swaps the whole snapshot and notifies subscribers.
func (s *Store) Replace(in types.Inputs) types.Inputs {
	s.current = in
	for _, fn := range s.subscribers {
		fn(in)
	}
	return in
}
