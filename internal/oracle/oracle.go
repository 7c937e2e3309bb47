// Package oracle asks a generative model for a structured reading of site text.
// Its answers are guesses: the reconciler cross-checks them against the
// deterministic extractors and never trusts them outright.
package oracle

import (
	"context"

	"github.com/JakeFAU/receptionist-onboarding/internal/profile"
)

// Oracle turns page text into an unverified profile guess.
type Oracle interface {
	Extract(ctx context.Context, text string) (profile.Guess, error)
}

// Noop is the oracle used when no model is configured. It always returns an empty guess.
type Noop struct{}

// Extract implements Oracle.
func (Noop) Extract(context.Context, string) (profile.Guess, error) {
	return profile.Guess{}, nil
}
