// internal/game/engine.go
//
// Round engine for a single Rock-Paper-Scissors session.
// Responsibilities:
//   - Resolve a (player, computer) pair using cyclic dominance.
//   - Draw a uniformly random computer choice.
//   - Fold a round into a fresh State snapshot.
//   - Produce the initial State on reset.
//
// Notes:
//   - The engine holds no session state; callers own the State and
//     replace it wholesale after every call.
//   - Randomness is injected through RNG so tests can force the
//     computer's hand.

package game

import (
	"fmt"
	"math/rand/v2"
)

// RNG abstracts random number generation for deterministic testing.
type RNG interface {
	// IntN returns a non-negative random int in [0, n).
	IntN(n int) int
}

// stdRNG delegates to the auto-seeded math/rand/v2 globals, which are
// safe for concurrent use.
type stdRNG struct{}

func (stdRNG) IntN(n int) int { return rand.IntN(n) }


// Resolve returns the outcome of player against computer.
// Rock beats scissors, scissors beats paper, paper beats rock.
func Resolve(player, computer Choice) RoundResult {
	if player == computer {
		return Draw
	}
	if player.Beats() == computer {
		return PlayerWin
	}
	return ComputerWin
}

// DrawComputerChoice picks rock, paper or scissors with equal probability.
func DrawComputerChoice(rng RNG) Choice {
	return Choices[rng.IntN(len(Choices))]
}

// Reset returns the state of a session before its first round.
func Reset() State {
	return State{}
}

// Engine plays rounds against a computer opponent.
type Engine struct {
	rng RNG
}

// NewEngine constructs an Engine drawing from rng.
// A nil rng selects the math/rand/v2 source.
func NewEngine(rng RNG) *Engine {
	if rng == nil {
		rng = stdRNG{}
	}
	return &Engine{rng: rng}
}

// DrawComputerChoice draws the computer's hand from the engine's RNG.
func (e *Engine) DrawComputerChoice() Choice {
	return DrawComputerChoice(e.rng)
}

// PlayRound plays player against a freshly drawn computer choice and
// returns the resulting state. prev is left untouched.
func (e *Engine) PlayRound(prev State, player Choice) (State, error) {
	if !player.Valid() {
		return prev, fmt.Errorf("play round: %w: %d", ErrInvalidChoice, int(player))
	}
	computer := e.DrawComputerChoice()
	result := Resolve(player, computer)

	next := State{
		PlayerScore:   prev.PlayerScore,
		ComputerScore: prev.ComputerScore,
		Rounds:        prev.Rounds + 1,
		Last:          &Round{Player: player, Computer: computer, Result: result},
	}
	switch result {
	case PlayerWin:
		next.PlayerScore++
	case ComputerWin:
		next.ComputerScore++
	case Draw:
	}
	return next, nil
}
