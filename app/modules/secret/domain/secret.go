// Package secretdomain holds the pure rules of the secret manager.
package secretdomain

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Alphabet is the character set secret values are drawn from.
const Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RandomValue returns a uniformly random secret of the given length.
func RandomValue(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("secret length must be positive, got %d", length)
	}
	max := big.NewInt(int64(len(Alphabet)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to draw secret character: %w", err)
		}
		out[i] = Alphabet[n.Int64()]
	}
	return string(out), nil
}

// RotationInput describes a team's last guess against a submission.
type RotationInput struct {
	HasRecentGuess     bool
	RecentGuessCorrect bool
	GuessesOnSecret    int
	MaxGuesses         int
	Requested          bool
}

// NeedsRotation reports whether an attack chat gets a new secret instead of
// the one the team last guessed on.
func NeedsRotation(in RotationInput) bool {
	switch {
	case !in.HasRecentGuess:
		return true
	case in.RecentGuessCorrect:
		return true
	case in.GuessesOnSecret >= in.MaxGuesses:
		return true
	}
	return in.Requested
}

// NextEvaluationIndex is 0 without a previous secret, else the following index.
func NextEvaluationIndex(previous *int) int {
	if previous == nil {
		return 0
	}
	return *previous + 1
}
