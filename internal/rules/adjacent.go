package rules

import "github.com/park285/cheese-chess-client/internal/board"

// Adjacent is the placeholder policy: any of the eight neighbouring squares
// that is empty or holds an opposing piece. It ignores piece type, so a pawn
// moves like a king here.
type Adjacent struct{}

func (Adjacent) LegalDestinations(b board.Board, from board.Position, p board.Piece) []board.Position {
	var out []board.Position
	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			if dr == 0 && dc == 0 {
				continue
			}
			to := board.Position{Row: from.Row + dr, Col: from.Col + dc}
			target, occupied, err := b.PieceAt(to)
			if err != nil {
				continue
			}
			if occupied && target.Color == p.Color {
				continue
			}
			out = append(out, to)
		}
	}
	return out
}
