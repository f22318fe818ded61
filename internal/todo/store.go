package todo

import "github.com/roach88/unistate/internal/store"

// Store is the container specialised to this application.
type Store = store.Store[State, Action]

// NewStore creates a container wired to the root reducer, initialised with
// Init so that every slice starts empty.
func NewStore(opts ...store.Option) *Store {
	return store.NewWithInit[State, Action](Reduce, Init{}, opts...)
}
