// Package id generates the identities that make a message unique within a
// simulation.
package id

import (
	"strconv"
	"sync/atomic"

	"github.com/rs/xid"
)

// An IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

var generator IDGenerator = &sequentialIDGenerator{}

// NewIDGenerator returns a sequential ID generator. IDs are deterministic
// across runs.
func NewIDGenerator() IDGenerator {
	return &sequentialIDGenerator{}
}

// NewParallelIDGenerator returns an ID generator that never contends between
// goroutines. IDs differ between runs.
func NewParallelIDGenerator() IDGenerator {
	return parallelIDGenerator{}
}

// Generate returns a new ID from the package-level generator.
func Generate() string {
	return generator.Generate()
}

type sequentialIDGenerator struct {
	nextID uint64
}

func (g *sequentialIDGenerator) Generate() string {
	idNumber := atomic.AddUint64(&g.nextID, 1)
	id := strconv.FormatUint(idNumber, 10)

	return id
}

type parallelIDGenerator struct{}

func (g parallelIDGenerator) Generate() string {
	return xid.New().String()
}
