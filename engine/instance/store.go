// Package instance holds the arena of live actor instances. Instances are
// addressed by id or index and are never removed individually; termination
// is a state transition and the whole set is cleared on shutdown.
package instance

import (
	"errors"
	"fmt"

	"github.com/nathoo/regioncore/types"
)

// ErrDuplicateID is returned when an instance id is already taken.
var ErrDuplicateID = errors.New("duplicate instance id")

// maxID bounds generated ids so they survive the float64 script boundary.
const maxID = 1 << 31

// IDSource draws random integers in [0, n).
type IDSource interface {
	Int63n(n int64) int64
}

// Store is the ordered instance arena.
type Store struct {
	list  []*types.Instance
	index map[int64]int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{index: map[int64]int{}}
}

// NewID draws a random id in [1, 2^31) that is not in use.
func (s *Store) NewID(src IDSource) int64 {
	for {
		id := src.Int63n(maxID-1) + 1
		if _, taken := s.index[id]; !taken {
			return id
		}
	}
}

// Add appends an instance. Maps left nil are initialized.
func (s *Store) Add(inst *types.Instance) error {
	if inst.ID == 0 {
		return fmt.Errorf("instance %q: id must be non-zero", inst.Name)
	}
	if _, taken := s.index[inst.ID]; taken {
		return fmt.Errorf("instance %d: %w", inst.ID, ErrDuplicateID)
	}
	Init(inst)
	s.index[inst.ID] = len(s.list)
	s.list = append(s.list, inst)
	return nil
}

// Init fills nil maps and defaults of an instance.
func Init(inst *types.Instance) {
	if inst.State == "" {
		inst.State = types.StateNormal
	}
	if inst.Motion.Kind == "" {
		inst.Motion.Kind = types.ActionOff
	}
	if inst.NodeValues == nil {
		inst.NodeValues = map[types.NodeKey]types.Value{}
	}
	if inst.Attributes == nil {
		inst.Attributes = map[string]types.Attr{}
	}
	if inst.Equipped == nil {
		inst.Equipped = map[string]*types.Item{}
	}
	if inst.BlockedEvents == nil {
		inst.BlockedEvents = map[string]int64{}
	}
	if inst.RegionsSent == nil {
		inst.RegionsSent = map[int]bool{}
	}
}

// Get returns the instance with the given id.
func (s *Store) Get(id int64) (*types.Instance, bool) {
	i, ok := s.index[id]
	if !ok {
		return nil, false
	}
	return s.list[i], true
}

// Index returns the position of an instance in tick order.
func (s *Store) Index(id int64) (int, bool) {
	i, ok := s.index[id]
	return i, ok
}

// At returns the instance at index i.
func (s *Store) At(i int) *types.Instance {
	return s.list[i]
}

// Len returns the number of instances, including terminated ones.
func (s *Store) Len() int {
	return len(s.list)
}

// All returns the instances in index order. The slice must not be modified.
func (s *Store) All() []*types.Instance {
	return s.list
}

// Players returns the player instances in index order.
func (s *Store) Players() []*types.Instance {
	var out []*types.Instance
	for _, inst := range s.list {
		if inst.Category == types.CategoryPlayer {
			out = append(out, inst)
		}
	}
	return out
}

// Clear drops every instance.
func (s *Store) Clear() {
	s.list = nil
	s.index = map[int64]int{}
}

// Live reports whether an instance takes part in ticks.
func Live(inst *types.Instance) bool {
	return inst.State != types.StateKilled && inst.State != types.StatePurged
}
