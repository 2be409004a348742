// Package protocol defines the tagged messages exchanged with the game peer.
//
// Every frame is a JSON envelope {"type": ..., "payload": ...}. Decode turns
// a frame into exactly one of the variants below or fails; unknown tags never
// travel past this package.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Type is the envelope tag.
type Type string

const (
	TypeInitGame Type = "INIT_GAME"
	TypeMove     Type = "MOVE"
	TypeGameOver Type = "GAME_OVER"
)

var (
	ErrUnknownType = errf("unknown message type")
	ErrMalformed   = errf("malformed message")
)

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error         { return staticErr(s) }

// Envelope is the wire shape of every frame.
type Envelope struct {
	Type    Type            `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Message is a closed set: InitGame, MoveMsg, GameOver.
type Message interface {
	Type() Type
	validate() error
}

// Move is a ply in algebraic notation.
type Move struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// InitGame assigns the local player's colour and the game id. Sent by a
// client with empty fields it asks the server for a game.
type InitGame struct {
	Color  string `json:"color,omitempty"`
	GameID string `json:"gameId,omitempty"`
}

func (InitGame) Type() Type { return TypeInitGame }

func (m InitGame) validate() error {
	if m.Color != "white" && m.Color != "black" {
		return fmt.Errorf("%w: color %q", ErrMalformed, m.Color)
	}
	if m.GameID == "" {
		return fmt.Errorf("%w: empty gameId", ErrMalformed)
	}
	return nil
}

// IsRequest reports whether m is the client-side seek form.
func (m InitGame) IsRequest() bool { return m.Color == "" && m.GameID == "" }

// MoveMsg relays one ply. GameState is opaque peer data kept for logging.
type MoveMsg struct {
	Move      Move            `json:"move"`
	GameState json.RawMessage `json:"gameState,omitempty"`
}

func (MoveMsg) Type() Type { return TypeMove }

func (m MoveMsg) validate() error {
	if !square(m.Move.From) || !square(m.Move.To) {
		return fmt.Errorf("%w: move %q-%q", ErrMalformed, m.Move.From, m.Move.To)
	}
	return nil
}

// Winner values carried by GAME_OVER.
const (
	WinnerWhite = "white"
	WinnerBlack = "black"
	WinnerDraw  = "draw"
)

type GameOver struct {
	Winner string `json:"winner"`
	Reason string `json:"reason"`
}

func (GameOver) Type() Type { return TypeGameOver }

func (m GameOver) validate() error {
	switch m.Winner {
	case WinnerWhite, WinnerBlack, WinnerDraw:
		return nil
	default:
		return fmt.Errorf("%w: winner %q", ErrMalformed, m.Winner)
	}
}

// square is a cheap shape check; the board package owns the full codec.
func square(s string) bool {
	return len(s) == 2 && s[0] >= 'a' && s[0] <= 'h' && s[1] >= '1' && s[1] <= '8'
}

// Decode parses and validates a single frame.
func Decode(raw []byte) (Message, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	var msg Message
	switch env.Type {
	case TypeInitGame:
		var m InitGame
		if err := unmarshalPayload(env.Payload, &m); err != nil {
			return nil, err
		}
		msg = m
	case TypeMove:
		var m MoveMsg
		if err := unmarshalPayload(env.Payload, &m); err != nil {
			return nil, err
		}
		msg = m
	case TypeGameOver:
		var m GameOver
		if err := unmarshalPayload(env.Payload, &m); err != nil {
			return nil, err
		}
		msg = m
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
	if err := msg.validate(); err != nil {
		return nil, err
	}
	return msg, nil
}

func unmarshalPayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return fmt.Errorf("%w: missing payload", ErrMalformed)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

// Encode wraps m in an envelope. A seek request is sent without payload.
func Encode(m Message) ([]byte, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: nil message", ErrMalformed)
	}
	env := Envelope{Type: m.Type()}
	if ig, ok := m.(InitGame); !ok || !ig.IsRequest() {
		if err := m.validate(); err != nil {
			return nil, err
		}
		payload, err := json.Marshal(m)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}
		env.Payload = payload
	}
	return json.Marshal(env)
}
