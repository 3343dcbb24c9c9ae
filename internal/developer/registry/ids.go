package registry

import (
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"

	id "devconnect/pkg/domain"
)

// IDGenerator hands out candidate ids. The registry rejects candidates that
// are already in use and asks again, so generators need not know the contents.
type IDGenerator interface {
	NextID() id.DeveloperID
}

// UUIDGenerator produces random UUIDv4 ids.
type UUIDGenerator struct{}

func (UUIDGenerator) NextID() id.DeveloperID {
	return id.DeveloperID(uuid.NewString())
}

// SequenceGenerator produces "1", "2", ... Safe for concurrent use.
type SequenceGenerator struct {
	last atomic.Int64
}

// NewSequenceGenerator returns a generator whose first id is start.
func NewSequenceGenerator(start int64) *SequenceGenerator {
	g := &SequenceGenerator{}
	g.last.Store(start - 1)
	return g
}

func (g *SequenceGenerator) NextID() id.DeveloperID {
	return id.DeveloperID(strconv.FormatInt(g.last.Add(1), 10))
}

// GeneratorFunc adapts a function to IDGenerator.
type GeneratorFunc func() id.DeveloperID

func (f GeneratorFunc) NextID() id.DeveloperID {
	return f()
}
