// internal/game/types.go
//
// Core type definitions for the Rock-Paper-Scissors engine.
// Defines:
//   - Choice: one of rock/paper/scissors.
//   - RoundResult: outcome of a single round from the player's side.
//   - Round: the choices and result of the most recent round.
//   - State: immutable score snapshot for one session.

package game

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidChoice is returned when a player choice is outside rock/paper/scissors.
var ErrInvalidChoice = errors.New("invalid choice")

// Choice is a hand played in a round.
// The zero value is not a valid choice.
type Choice int

const (
	Rock Choice = iota + 1
	Paper
	Scissors
)

// Choices lists every valid Choice in draw order.
var Choices = [...]Choice{Rock, Paper, Scissors}

// ParseChoice maps "rock", "paper" or "scissors" (any case) to a Choice.
func ParseChoice(s string) (Choice, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rock":
		return Rock, nil
	case "paper":
		return Paper, nil
	case "scissors":
		return Scissors, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidChoice, s)
}

// Valid reports whether c is one of the three enumerated choices.
func (c Choice) Valid() bool {
	return c == Rock || c == Paper || c == Scissors
}

func (c Choice) String() string {
	switch c {
	case Rock:
		return "rock"
	case Paper:
		return "paper"
	case Scissors:
		return "scissors"
	}
	return fmt.Sprintf("choice(%d)", int(c))
}

// Beats returns the choice that c defeats.
// Panics on an invalid choice.
func (c Choice) Beats() Choice {
	switch c {
	case Rock:
		return Scissors
	case Paper:
		return Rock
	case Scissors:
		return Paper
	}
	panic(fmt.Sprintf("game: beats on invalid choice %d", int(c)))
}

func (c Choice) MarshalJSON() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChoice, int(c))
	}
	return json.Marshal(c.String())
}

func (c *Choice) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidChoice, b)
	}
	v, err := ParseChoice(s)
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// RoundResult is the outcome of a round, seen from the player.
type RoundResult int

const (
	PlayerWin RoundResult = iota + 1
	ComputerWin
	Draw
)

func (r RoundResult) String() string {
	switch r {
	case PlayerWin:
		return "player_win"
	case ComputerWin:
		return "computer_win"
	case Draw:
		return "draw"
	}
	return fmt.Sprintf("result(%d)", int(r))
}

// ParseRoundResult maps "player_win", "computer_win" or "draw" to a RoundResult.
func ParseRoundResult(s string) (RoundResult, error) {
	switch s {
	case "player_win":
		return PlayerWin, nil
	case "computer_win":
		return ComputerWin, nil
	case "draw":
		return Draw, nil
	}
	return 0, fmt.Errorf("unknown round result %q", s)
}

func (r RoundResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *RoundResult) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseRoundResult(s)
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// Round holds the choices and the outcome of one played round.
type Round struct {
	Player   Choice      `json:"player"`
	Computer Choice      `json:"computer"`
	Result   RoundResult `json:"result"`
}

// State is a score snapshot for a session.
// Values are never mutated in place; PlayRound and Reset return new ones.
type State struct {
	PlayerScore   int    `json:"playerScore"`
	ComputerScore int    `json:"computerScore"`
	Rounds        int    `json:"rounds"`         // rounds played since the last reset
	Last          *Round `json:"last,omitempty"` // nil until the first round
}

// LastPlayerChoice returns the player's choice in the latest round, if any.
func (s State) LastPlayerChoice() (Choice, bool) {
	if s.Last == nil {
		return 0, false
	}
	return s.Last.Player, true
}

// LastComputerChoice returns the computer's choice in the latest round, if any.
func (s State) LastComputerChoice() (Choice, bool) {
	if s.Last == nil {
		return 0, false
	}
	return s.Last.Computer, true
}

// LastResult returns the outcome of the latest round, if any.
func (s State) LastResult() (RoundResult, bool) {
	if s.Last == nil {
		return 0, false
	}
	return s.Last.Result, true
}
