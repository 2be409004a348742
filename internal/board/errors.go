package board

var (
	ErrInvalidNotation = errf("invalid algebraic notation")
	ErrOutOfBounds     = errf("position out of bounds")
	ErrEmptySource     = errf("no piece on source square")
)

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error         { return staticErr(s) }
