package domain

import (
	"math/rand"
	"sync"
	"time"
)

const (
	accessCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	AccessCodeLength   = 6
)

// CodeGenerator draws random access codes. It is safe for concurrent use.
type CodeGenerator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewCodeGenerator() *CodeGenerator {
	return NewCodeGeneratorWithSource(rand.NewSource(time.Now().UnixNano()))
}

// NewCodeGeneratorWithSource allows deterministic codes in tests.
func NewCodeGeneratorWithSource(src rand.Source) *CodeGenerator {
	return &CodeGenerator{rnd: rand.New(src)}
}

// Next returns a 6-character uppercase alphanumeric code.
func (g *CodeGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	buf := make([]byte, AccessCodeLength)
	for i := range buf {
		buf[i] = accessCodeAlphabet[g.rnd.Intn(len(accessCodeAlphabet))]
	}
	return string(buf)
}
