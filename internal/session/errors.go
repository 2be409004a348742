package session

var (
	ErrNoPiece            = errf("no piece on source square")
	ErrWrongTurn          = errf("piece does not belong to the side to move")
	ErrNotYourTurn        = errf("it is the opponent's turn")
	ErrGameOver           = errf("game is over")
	ErrInvalidTransition  = errf("invalid session transition")
	ErrIllegalDestination = errf("destination not reachable")
)

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error         { return staticErr(s) }
