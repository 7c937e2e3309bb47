// Package uuid generates import job identifiers.
package uuid

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// JobPrefix marks import job ids so they are recognizable in logs.
const JobPrefix = "imp_"

// Generator creates time-ordered UUIDv7 ids with an optional prefix.
type Generator struct {
	prefix string
}

// NewUUIDGenerator creates a Generator that emits JobPrefix ids.
func NewUUIDGenerator() *Generator {
	return &Generator{prefix: JobPrefix}
}

// NewID returns prefix + UUIDv7.
func (g Generator) NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate uuid7: %w", err)
	}
	return g.prefix + id.String(), nil
}

// Valid reports whether id has the generator's shape.
func (g Generator) Valid(id string) bool {
	rest, ok := strings.CutPrefix(id, g.prefix)
	if !ok {
		return false
	}
	parsed, err := uuid.Parse(rest)
	return err == nil && parsed.Version() == 7
}
