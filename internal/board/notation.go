package board

import "fmt"

// Size is the number of ranks and files.
const Size = 8

// Position addresses a square. Row 0 is rank 8, column 0 is file a.
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (p Position) InBounds() bool {
	return p.Row >= 0 && p.Row < Size && p.Col >= 0 && p.Col < Size
}

func (p Position) String() string {
	if s, err := ToNotation(p); err == nil {
		return s
	}
	return fmt.Sprintf("(%d,%d)", p.Row, p.Col)
}

// ToPosition parses a file letter a-h followed by a rank digit 1-8.
func ToPosition(notation string) (Position, error) {
	if len(notation) != 2 {
		return Position{}, fmt.Errorf("%w: %q", ErrInvalidNotation, notation)
	}
	file, rank := notation[0], notation[1]
	if file < 'a' || file > 'h' || rank < '1' || rank > '8' {
		return Position{}, fmt.Errorf("%w: %q", ErrInvalidNotation, notation)
	}
	return Position{Row: Size - int(rank-'0'), Col: int(file - 'a')}, nil
}

// ToNotation is the inverse of ToPosition.
func ToNotation(p Position) (string, error) {
	if !p.InBounds() {
		return "", fmt.Errorf("%w: (%d,%d)", ErrOutOfBounds, p.Row, p.Col)
	}
	return string([]byte{byte('a' + p.Col), byte('0' + Size - p.Row)}), nil
}

// FormatMove renders a history line such as "1. e2-e4".
func FormatMove(from, to string, number int) string {
	return fmt.Sprintf("%d. %s-%s", number, from, to)
}
