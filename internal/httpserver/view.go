package httpserver

import "github.com/robalobadob/rps/internal/game"

// stateView is the JSON rendering of a game.State for front ends.
type stateView struct {
	PlayerScore        int               `json:"playerScore"`
	ComputerScore      int               `json:"computerScore"`
	Rounds             int               `json:"rounds"`
	LastPlayerChoice   *game.Choice      `json:"lastPlayerChoice,omitempty"`
	LastComputerChoice *game.Choice      `json:"lastComputerChoice,omitempty"`
	LastResult         *game.RoundResult `json:"lastResult,omitempty"`
	PlayerLabel        string            `json:"playerLabel"`
	ComputerLabel      string            `json:"computerLabel"`
	Status             string            `json:"status"`
}

func newStateView(st game.State) stateView {
	v := stateView{
		PlayerScore:   st.PlayerScore,
		ComputerScore: st.ComputerScore,
		Rounds:        st.Rounds,
		PlayerLabel:   choiceLabel(nil),
		ComputerLabel: choiceLabel(nil),
		Status:        statusText(nil),
	}
	if st.Last != nil {
		last := *st.Last
		v.LastPlayerChoice = &last.Player
		v.LastComputerChoice = &last.Computer
		v.LastResult = &last.Result
		v.PlayerLabel = choiceLabel(&last.Player)
		v.ComputerLabel = choiceLabel(&last.Computer)
		v.Status = statusText(&last.Result)
	}
	return v
}

// statusText describes the last round, or prompts for the first one.
func statusText(r *game.RoundResult) string {
	if r == nil {
		return "Choose Rock, Paper, or Scissors to start!"
	}
	switch *r {
	case game.PlayerWin:
		return "You won the last round! 🎉"
	case game.ComputerWin:
		return "Computer won the last round! 🤖"
	case game.Draw:
		return "Last round was a draw. 😐"
	}
	return ""
}

// choiceLabel is the display text for a choice; "—" when absent.
func choiceLabel(c *game.Choice) string {
	if c == nil {
		return "—"
	}
	switch *c {
	case game.Rock:
		return "Rock 🪨"
	case game.Paper:
		return "Paper 📄"
	case game.Scissors:
		return "Scissors ✂️"
	}
	return "—"
}
