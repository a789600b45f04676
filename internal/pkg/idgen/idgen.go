// Package idgen provides ID generation utilities
package idgen

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"sync/atomic"

	"github.com/google/uuid"
)

//go:generate mockgen -destination=mock/mock.go -package=idgenmock github.com/KirkDiggler/tabletop-api/internal/pkg/idgen Generator

// Generator generates unique identifiers
type Generator interface {
	Generate() string
}

// UUIDGenerator generates UUIDs with optional prefix
type UUIDGenerator struct {
	prefix string
}

// NewUUID creates a new UUID generator with optional prefix
func NewUUID(prefix string) *UUIDGenerator {
	return &UUIDGenerator{prefix: prefix}
}

// Generate creates a new UUID-based ID
func (g *UUIDGenerator) Generate() string {
	id := uuid.New().String()
	if g.prefix != "" {
		return fmt.Sprintf("%s_%s", g.prefix, id)
	}
	return id
}

// SequentialGenerator generates sequential IDs for testing
type SequentialGenerator struct {
	prefix  string
	counter uint64
}

// NewSequential creates a new sequential generator
func NewSequential(prefix string) *SequentialGenerator {
	return &SequentialGenerator{prefix: prefix}
}

// Generate creates a new sequential ID
func (g *SequentialGenerator) Generate() string {
	n := atomic.AddUint64(&g.counter, 1)
	if g.prefix != "" {
		return fmt.Sprintf("%s_%d", g.prefix, n)
	}
	return fmt.Sprintf("%d", n)
}

// InviteCodeAlphabet leaves out characters that are easy to misread (0/O, 1/I/L)
const InviteCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// InviteCodeLength is the number of characters in an invite code
const InviteCodeLength = 6

// InviteCodeGenerator produces short human-shareable codes from crypto/rand
type InviteCodeGenerator struct{}

// NewInviteCode creates an invite code generator
func NewInviteCode() *InviteCodeGenerator {
	return &InviteCodeGenerator{}
}

// Generate returns a new invite code. Uniqueness is checked by the caller.
func (g *InviteCodeGenerator) Generate() string {
	limit := big.NewInt(int64(len(InviteCodeAlphabet)))
	code := make([]byte, InviteCodeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			// crypto/rand should never fail on a properly configured system
			panic(fmt.Sprintf("crypto/rand.Int failed: %v", err))
		}
		code[i] = InviteCodeAlphabet[n.Int64()]
	}
	return string(code)
}

// StaticGenerator returns the queued values in order, then repeats the last one.
// Used in tests to force invite code collisions.
type StaticGenerator struct {
	values []string
	next   int64
}

// NewStatic creates a generator that replays values
func NewStatic(values ...string) *StaticGenerator {
	return &StaticGenerator{values: values}
}

// Generate returns the next queued value
func (g *StaticGenerator) Generate() string {
	if len(g.values) == 0 {
		return ""
	}
	i := atomic.AddInt64(&g.next, 1) - 1
	if i >= int64(len(g.values)) {
		i = int64(len(g.values)) - 1
	}
	return g.values[i]
}
