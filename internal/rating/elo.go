package rating

import "math"

const (
	// Initial is the RP every new player starts with.
	Initial = 1000
	// kFactor controls how fast ratings move per game.
	kFactor = 32
)

// Deltas returns the signed RP change for the winner and the loser of a
// ranked game, from their ratings before the game.
func Deltas(winnerRP, loserRP int) (winDelta, loseDelta int) {
	expWin := expectedScore(winnerRP, loserRP)
	winDelta = int(math.Round(kFactor * (1 - expWin)))
	loseDelta = -winDelta
	return winDelta, loseDelta
}

// expectedScore is the Elo expectation of a beating b.
func expectedScore(a, b int) float64 {
	return 1 / (1 + math.Pow(10, float64(b-a)/400))
}
