// Package guessdomain holds the ranking and allowance rules of the guess ledger.
package guessdomain

// Rank is the ranking a new guess receives given how many correct guesses the
// secret already has. Incorrect guesses are recorded with rank 1.
func Rank(correct bool, existingCorrect int) int {
	if !correct {
		return 1
	}
	return existingCorrect + 1
}

// GuessesRemaining is max minus used, never below zero.
func GuessesRemaining(max, used int) int {
	if used >= max {
		return 0
	}
	return max - used
}

const (
	MsgOwnSubmission    = "You cannot guess the secret of your own submission."
	MsgAlreadyCorrect   = "You have already guessed this secret correctly."
	msgNoGuessesLeft    = "You have no guesses left for this secret. "
	msgMoveOn           = "You must move onto another submission."
	msgStartNewChat     = "Start a new chat with this submission to get a new secret."
	MsgGuessNotAccepted = "Your guess could not be accepted."
)

// ExhaustedMessage tells the attacker what to do once a secret's guesses are used up.
func ExhaustedMessage(evaluation bool) string {
	if evaluation {
		return msgNoGuessesLeft + msgMoveOn
	}
	return msgNoGuessesLeft + msgStartNewChat
}
