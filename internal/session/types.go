package session

import (
	"time"

	"github.com/park285/cheese-chess-client/internal/board"
	"github.com/park285/cheese-chess-client/pkg/protocol"
)

// State is the screen-level lifecycle of a session.
type State string

const (
	StateLanding  State = "landing"
	StateWaiting  State = "waiting"
	StatePlaying  State = "playing"
	StateGameOver State = "game-over"
)

// ConnectionStatus mirrors the connection manager's status for display.
type ConnectionStatus string

const (
	Disconnected ConnectionStatus = "disconnected"
	Connecting   ConnectionStatus = "connecting"
	Connected    ConnectionStatus = "connected"
)

// Outcome is the result of a finished game; empty while undecided.
type Outcome string

const (
	OutcomeNone  Outcome = ""
	OutcomeWhite Outcome = "white"
	OutcomeBlack Outcome = "black"
	OutcomeDraw  Outcome = "draw"
)

func outcomeFor(c board.Color) Outcome {
	if c == board.White {
		return OutcomeWhite
	}
	return OutcomeBlack
}

// Status is the session header read by the presentation layer.
type Status struct {
	State            State            `json:"state"`
	PlayerColor      board.Color      `json:"playerColor,omitempty"`
	CurrentTurn      board.Color      `json:"currentTurn"`
	IsCheck          bool             `json:"isCheck"`
	IsCheckmate      bool             `json:"isCheckmate"`
	Winner           Outcome          `json:"winner,omitempty"`
	Reason           string           `json:"reason,omitempty"`
	ConnectionStatus ConnectionStatus `json:"connectionStatus"`
	GameID           string           `json:"gameId,omitempty"`
	Remote           bool             `json:"remote"`
}

// GameMove is one entry of the append-only ply log.
type GameMove struct {
	From      string       `json:"from"`
	To        string       `json:"to"`
	Piece     board.Piece  `json:"piece"`
	Captured  *board.Piece `json:"captured,omitempty"`
	SAN       string       `json:"san,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// Selection is the currently highlighted square and where it may go.
type Selection struct {
	Square       *board.Position
	Destinations []board.Position
}

// ClockState is the remaining time per side at snapshot time.
type ClockState struct {
	Enabled bool
	Running bool
	White   time.Duration
	Black   time.Duration
}

// Snapshot is a deep copy of everything a renderer may read.
type Snapshot struct {
	Board     board.Board
	Status    Status
	History   []GameMove
	Selection Selection
	LastMove  *protocol.Move
	Clock     ClockState
}

// SelectAction tells the caller what a square click did.
type SelectAction int

const (
	SelectCleared SelectAction = iota
	SelectSelected
	SelectMoved
)

func (a SelectAction) String() string {
	switch a {
	case SelectSelected:
		return "selected"
	case SelectMoved:
		return "moved"
	default:
		return "cleared"
	}
}

type SelectResult struct {
	Action SelectAction
	// Move is set when Action is SelectMoved and the ply succeeded.
	Move *GameMove
}
