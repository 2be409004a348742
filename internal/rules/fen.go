package rules

import (
	"strconv"
	"strings"

	"github.com/park285/cheese-chess-client/internal/board"
)

// EncodeFEN renders b with toMove on move. The board model keeps no castling
// rights or en passant target, so both fields are "-".
func EncodeFEN(b board.Board, toMove board.Color) string {
	var sb strings.Builder
	for row := 0; row < board.Size; row++ {
		empty := 0
		for col := 0; col < board.Size; col++ {
			p := b[row][col]
			if p.IsZero() {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteString(strconv.Itoa(empty))
				empty = 0
			}
			sb.WriteByte(p.Letter())
		}
		if empty > 0 {
			sb.WriteString(strconv.Itoa(empty))
		}
		if row < board.Size-1 {
			sb.WriteByte('/')
		}
	}
	side := "w"
	if toMove == board.Black {
		side = "b"
	}
	sb.WriteString(" " + side + " - - 0 1")
	return sb.String()
}

// uciMove joins two squares, e.g. "e2e4".
func uciMove(from, to board.Position) (string, bool) {
	f, err := board.ToNotation(from)
	if err != nil {
		return "", false
	}
	t, err := board.ToNotation(to)
	if err != nil {
		return "", false
	}
	return f + t, true
}
