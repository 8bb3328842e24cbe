package reference

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator hands out identifiers for newly created entries.
type IDGenerator interface {
	Next() string
}

// Sequence generates IDs of the form "<prefix><n>" starting at 1.
// It is safe for concurrent use.
type Sequence struct {
	prefix string
	n      atomic.Uint64
}

// NewSequence returns a Sequence that yields prefix1, prefix2, ...
func NewSequence(prefix string) *Sequence {
	return &Sequence{prefix: prefix}
}

// NewSequenceFrom returns a Sequence whose first ID is prefix<start+1>.
func NewSequenceFrom(prefix string, start uint64) *Sequence {
	s := &Sequence{prefix: prefix}
	s.n.Store(start)
	return s
}

// Next returns the next ID in the sequence.
func (s *Sequence) Next() string {
	return fmt.Sprintf("%s%d", s.prefix, s.n.Add(1))
}

// UUIDGenerator generates random (version 4) UUIDs, optionally prefixed.
type UUIDGenerator struct {
	Prefix string
}

// Next returns a new UUID string.
func (g UUIDGenerator) Next() string {
	return g.Prefix + uuid.NewString()
}

// NewGenerator returns the generator for a configured ID style.
func NewGenerator(style, prefix string) (IDGenerator, error) {
	switch style {
	case "", "sequence":
		return NewSequence(prefix), nil
	case "uuid":
		return UUIDGenerator{Prefix: prefix}, nil
	default:
		return nil, fmt.Errorf("unknown id style: %s (valid: sequence, uuid)", style)
	}
}
