package rules

import (
	nchess "github.com/corentings/chess/v2"
	"github.com/park285/cheese-chess-client/internal/board"
)

// Standard applies full chess legality through corentings/chess: sliding
// pieces, knight jumps, pawn pushes and captures, and king safety. Castling,
// en passant and promotion are never offered because the board model cannot
// express them, so a pawn has no moves onto the last rank.
type Standard struct{}

func NewStandard() Standard { return Standard{} }

func (s Standard) LegalDestinations(b board.Board, from board.Position, p board.Piece) []board.Position {
	if p.IsZero() || !from.InBounds() {
		return nil
	}
	option, err := nchess.FEN(EncodeFEN(b, p.Color))
	if err != nil {
		return nil
	}
	var out []board.Position
	for row := 0; row < board.Size; row++ {
		for col := 0; col < board.Size; col++ {
			to := board.Position{Row: row, Col: col}
			if to == from {
				continue
			}
			if target := b[row][col]; !target.IsZero() && target.Color == p.Color {
				continue
			}
			if _, ok := s.play(option, from, to); ok {
				out = append(out, to)
			}
		}
	}
	return out
}

// Assess replays from->to on before and inspects the resulting position.
// A ply the library rejects yields a zero Assessment.
func (s Standard) Assess(before board.Board, from, to board.Position) Assessment {
	mover, ok, err := before.PieceAt(from)
	if err != nil || !ok {
		return Assessment{}
	}
	option, err := nchess.FEN(EncodeFEN(before, mover.Color))
	if err != nil {
		return Assessment{}
	}
	game, ok := s.play(option, from, to)
	if !ok {
		return Assessment{}
	}
	positions := game.Positions()
	moves := game.Moves()
	if len(moves) == 0 || len(positions) == 0 {
		return Assessment{}
	}
	last := moves[len(moves)-1]
	out := Assessment{
		Check: last.HasTag(nchess.Check),
		SAN:   nchess.AlgebraicNotation{}.Encode(positions[0], last),
	}
	switch game.Method() {
	case nchess.Checkmate:
		out.Checkmate = true
		out.Check = true
	case nchess.Stalemate:
		out.Stalemate = true
	}
	return out
}

// play pushes the UCI move onto a fresh game built from option.
func (Standard) play(option func(*nchess.Game), from, to board.Position) (*nchess.Game, bool) {
	uci, ok := uciMove(from, to)
	if !ok {
		return nil, false
	}
	game := nchess.NewGame(option)
	if err := game.PushNotationMove(uci, nchess.UCINotation{}, nil); err == nil {
		return game, true
	}
	return nil, false
}
