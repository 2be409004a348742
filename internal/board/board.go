package board

import "fmt"

// Board is an 8x8 grid indexed [row][col]. It is a value type: assignment
// copies every square, so a Board handed to a reader never changes under it.
type Board [Size][Size]Piece

var backRank = [Size]PieceType{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}

// Initialize returns the standard starting layout.
func Initialize() Board {
	var b Board
	for col := 0; col < Size; col++ {
		b[0][col] = Piece{Type: backRank[col], Color: Black}
		b[1][col] = Piece{Type: Pawn, Color: Black}
		b[6][col] = Piece{Type: Pawn, Color: White}
		b[7][col] = Piece{Type: backRank[col], Color: White}
	}
	return b
}

// PieceAt reports the piece on p; ok is false for an empty square.
func (b Board) PieceAt(p Position) (piece Piece, ok bool, err error) {
	if !p.InBounds() {
		return Piece{}, false, fmt.Errorf("%w: (%d,%d)", ErrOutOfBounds, p.Row, p.Col)
	}
	piece = b[p.Row][p.Col]
	return piece, !piece.IsZero(), nil
}

// Apply returns a new board with the piece on from relocated to to, and the
// piece it displaced (zero if to was empty). Legality and turn order are not
// checked here.
func (b Board) Apply(from, to Position) (Board, Piece, error) {
	if !from.InBounds() || !to.InBounds() {
		return b, Piece{}, fmt.Errorf("%w: %v -> %v", ErrOutOfBounds, from, to)
	}
	moving := b[from.Row][from.Col]
	if moving.IsZero() {
		return b, Piece{}, fmt.Errorf("%w: %v", ErrEmptySource, from)
	}
	next := b
	captured := next[to.Row][to.Col]
	next[to.Row][to.Col] = moving
	next[from.Row][from.Col] = Piece{}
	return next, captured, nil
}

// Count tallies pieces by type and colour.
func (b Board) Count() map[Piece]int {
	out := make(map[Piece]int)
	for row := range b {
		for _, p := range b[row] {
			if !p.IsZero() {
				out[p]++
			}
		}
	}
	return out
}

// IsLightSquare uses the parity (row+col)%2 == 0. Renderers depend on this
// exact rule.
func IsLightSquare(row, col int) bool {
	return (row+col)%2 == 0
}
