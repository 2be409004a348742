package board

// Color identifies a chess side.
type Color string

const (
	White Color = "white"
	Black Color = "black"
)

// Opponent returns the other side.
func (c Color) Opponent() Color {
	if c == White {
		return Black
	}
	return White
}

func (c Color) Valid() bool { return c == White || c == Black }

// ParseColor accepts "white"/"black" and the one-letter forms.
func ParseColor(s string) (Color, bool) {
	switch s {
	case "white", "w":
		return White, true
	case "black", "b":
		return Black, true
	default:
		return "", false
	}
}

type PieceType string

const (
	Pawn   PieceType = "pawn"
	Rook   PieceType = "rook"
	Knight PieceType = "knight"
	Bishop PieceType = "bishop"
	Queen  PieceType = "queen"
	King   PieceType = "king"
)

// Piece is an immutable value. The zero Piece means an empty square.
type Piece struct {
	Type  PieceType `json:"type"`
	Color Color     `json:"color"`
}

func (p Piece) IsZero() bool { return p.Type == "" }

var unicodeGlyphs = map[Color]map[PieceType]string{
	White: {King: "♔", Queen: "♕", Rook: "♖", Bishop: "♗", Knight: "♘", Pawn: "♙"},
	Black: {King: "♚", Queen: "♛", Rook: "♜", Bishop: "♝", Knight: "♞", Pawn: "♟"},
}

// Unicode returns the display glyph, or "" for an empty square.
func (p Piece) Unicode() string {
	if p.IsZero() {
		return ""
	}
	return unicodeGlyphs[p.Color][p.Type]
}

var letters = map[PieceType]byte{
	Pawn: 'p', Rook: 'r', Knight: 'n', Bishop: 'b', Queen: 'q', King: 'k',
}

// Letter returns the FEN letter: upper case for white, lower case for black.
func (p Piece) Letter() byte {
	l, ok := letters[p.Type]
	if !ok {
		return 0
	}
	if p.Color == White {
		return l - 'a' + 'A'
	}
	return l
}

func (p Piece) String() string {
	if p.IsZero() {
		return "empty"
	}
	return string(p.Color) + " " + string(p.Type)
}
