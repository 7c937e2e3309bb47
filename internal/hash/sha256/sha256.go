// Package sha256 names archived pages by a SHA-256 digest of their HTML.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DefaultSize is the number of digest bytes kept in blob names.
const DefaultSize = 16

// Hasher implements onboarding.Hasher. It hex-encodes the first Size bytes of
// the digest.
type Hasher struct {
	size int
}

// New returns a Hasher that keeps DefaultSize bytes.
func New() *Hasher {
	return &Hasher{size: DefaultSize}
}

// NewSized returns a Hasher that keeps size bytes, 1 to 32.
func NewSized(size int) (*Hasher, error) {
	if size < 1 || size > sha256.Size {
		return nil, fmt.Errorf("digest size %d out of range 1..%d", size, sha256.Size)
	}
	return &Hasher{size: size}, nil
}

// Hash hashes the input and returns a hex digest.
func (h *Hasher) Hash(data []byte) (string, error) {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:h.size]), nil
}
