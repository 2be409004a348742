// Package presenter turns session snapshots into terminal text.
package presenter

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/park285/cheese-chess-client/internal/board"
	"github.com/park285/cheese-chess-client/internal/conn"
	"github.com/park285/cheese-chess-client/internal/msgcat"
	"github.com/park285/cheese-chess-client/internal/session"
)

const (
	materialScoreNeutral = 39
	capturedRecentLimit  = 5
)

var pieceValues = map[board.PieceType]int{
	board.Pawn: 1, board.Knight: 3, board.Bishop: 3, board.Rook: 5, board.Queen: 9,
}

// Formatter renders snapshots using the message catalog.
type Formatter struct {
	cat *msgcat.Catalog
}

func NewFormatter(cat *msgcat.Catalog) *Formatter {
	return &Formatter{cat: cat}
}

// Board draws the grid from white's side, or black's when flip is set.
// Selected square: [x]. Destinations: * on empty squares, (x) on captures.
// The last move's squares carry a trailing '.
func (f *Formatter) Board(snap session.Snapshot, flip bool) string {
	marks := make(map[board.Position]byte)
	for _, p := range snap.Selection.Destinations {
		marks[p] = '*'
	}
	if snap.Selection.Square != nil {
		marks[*snap.Selection.Square] = '['
	}
	last := make(map[board.Position]bool)
	if lm := snap.LastMove; lm != nil {
		for _, n := range []string{lm.From, lm.To} {
			if p, err := board.ToPosition(n); err == nil {
				last[p] = true
			}
		}
	}

	rows := make([]int, 0, board.Size)
	for i := 0; i < board.Size; i++ {
		if flip {
			rows = append(rows, board.Size-1-i)
		} else {
			rows = append(rows, i)
		}
	}

	var sb strings.Builder
	for _, row := range rows {
		sb.WriteString(fmt.Sprintf("%d ", board.Size-row))
		for i := 0; i < board.Size; i++ {
			col := i
			if flip {
				col = board.Size - 1 - i
			}
			p := board.Position{Row: row, Col: col}
			sb.WriteString(cell(snap.Board[row][col], board.IsLightSquare(row, col), marks[p], last[p]))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("  ")
	for i := 0; i < board.Size; i++ {
		file := 'a' + rune(i)
		if flip {
			file = 'h' - rune(i)
		}
		sb.WriteString(fmt.Sprintf(" %c  ", file))
	}
	return strings.TrimRight(sb.String(), " ")
}

func cell(p board.Piece, light bool, mark byte, last bool) string {
	glyph := p.Unicode()
	if glyph == "" {
		glyph = "·"
		if !light {
			glyph = ":"
		}
	}
	left, right := " ", " "
	switch mark {
	case '[':
		left, right = "[", "]"
	case '*':
		if p.IsZero() {
			glyph = "*"
		} else {
			left, right = "(", ")"
		}
	}
	tail := " "
	if last {
		tail = "'"
	}
	return left + glyph + right + tail
}

// Status is the header block: state, check, colour, game id, connection, clock.
func (f *Formatter) Status(snap session.Snapshot) string {
	st := snap.Status
	lines := []string{f.stateLine(st)}
	if st.State == session.StatePlaying {
		switch {
		case st.IsCheckmate:
			lines = append(lines, f.cat.Text("status.checkmate", nil))
		case st.IsCheck:
			lines = append(lines, f.cat.Text("status.check", nil))
		}
	}
	if st.Remote && st.PlayerColor != "" {
		lines = append(lines, f.cat.Text("status.you_play", map[string]any{"Color": string(st.PlayerColor)}))
	}
	if st.GameID != "" {
		lines = append(lines, f.cat.Text("status.game_id", map[string]any{"ID": st.GameID}))
	}
	if snap.Clock.Enabled && st.State != session.StateLanding {
		lines = append(lines, f.cat.Text("status.clock", map[string]any{
			"White": formatClock(snap.Clock.White),
			"Black": formatClock(snap.Clock.Black),
		}))
	}
	if line := f.capturedLine(snap.History); line != "" {
		lines = append(lines, line)
	}
	if sel := snap.Selection; sel.Square != nil {
		dests := make([]string, 0, len(sel.Destinations))
		for _, p := range sel.Destinations {
			dests = append(dests, p.String())
		}
		lines = append(lines, f.cat.Text("status.selected", map[string]any{
			"Square":       sel.Square.String(),
			"Destinations": strings.Join(dests, " "),
		}))
	}
	lines = append(lines, f.cat.Text("status.connection", map[string]any{"Status": string(st.ConnectionStatus)}))
	return strings.Join(lines, "\n")
}

func (f *Formatter) stateLine(st session.Status) string {
	switch st.State {
	case session.StateWaiting:
		return f.cat.Text("state.waiting", nil)
	case session.StatePlaying:
		return f.cat.Text("state.playing", map[string]any{"Turn": string(st.CurrentTurn)})
	case session.StateGameOver:
		return f.cat.Text("state.game_over", map[string]any{"Result": f.result(st)})
	default:
		return f.cat.Text("state.landing", nil)
	}
}

func (f *Formatter) result(st session.Status) string {
	reason := st.Reason
	if reason == "" {
		reason = "agreement"
	}
	switch st.Winner {
	case session.OutcomeWhite:
		return f.cat.Text("result.white", map[string]any{"Reason": reason})
	case session.OutcomeBlack:
		return f.cat.Text("result.black", map[string]any{"Reason": reason})
	default:
		return f.cat.Text("result.draw", map[string]any{"Reason": reason})
	}
}

// History lists plies two per line, SAN in brackets when known.
func (f *Formatter) History(moves []session.GameMove) string {
	if len(moves) == 0 {
		return f.cat.Text("history.empty", nil)
	}
	var sb strings.Builder
	sb.WriteString(f.cat.Text("history.header", nil))
	for i, mv := range moves {
		if i%2 == 0 {
			sb.WriteString("\n")
			sb.WriteString(board.FormatMove(mv.From, mv.To, i/2+1))
		} else {
			sb.WriteString(fmt.Sprintf("  %s-%s", mv.From, mv.To))
		}
		if mv.SAN != "" {
			sb.WriteString(" (" + mv.SAN + ")")
		}
	}
	return sb.String()
}

// capturedLine shows the most recent captures per side and the material lead.
func (f *Formatter) capturedLine(moves []session.GameMove) string {
	var byWhite, byBlack []board.Piece
	for _, mv := range moves {
		if mv.Captured == nil {
			continue
		}
		if mv.Piece.Color == board.White {
			byWhite = append(byWhite, *mv.Captured)
		} else {
			byBlack = append(byBlack, *mv.Captured)
		}
	}
	if len(byWhite) == 0 && len(byBlack) == 0 {
		return ""
	}
	var parts []string
	if s := formatCapturedSequence(recentPieces(byWhite, capturedRecentLimit)); s != "" {
		parts = append(parts, "white "+s)
	}
	if s := formatCapturedSequence(recentPieces(byBlack, capturedRecentLimit)); s != "" {
		parts = append(parts, "black "+s)
	}
	return "Captured: " + strings.Join(parts, " / ") + " | " + formatMaterial(byWhite, byBlack)
}

func formatMaterial(byWhite, byBlack []board.Piece) string {
	white := materialScoreNeutral - score(byBlack)
	black := materialScoreNeutral - score(byWhite)
	switch {
	case white > black:
		return fmt.Sprintf("white +%d", white-black)
	case black > white:
		return fmt.Sprintf("black +%d", black-white)
	default:
		return "even"
	}
}

// score sums piece values; kings are not counted.
func score(taken []board.Piece) int {
	n := 0
	for _, p := range taken {
		n += pieceValues[p.Type]
	}
	return n
}

func formatCapturedSequence(order []board.Piece) string {
	tokens := make([]string, 0, len(order))
	for _, p := range order {
		if g := p.Unicode(); g != "" {
			tokens = append(tokens, g)
		}
	}
	return strings.Join(tokens, " ")
}

// recentPieces returns up to limit entries, newest first.
func recentPieces(order []board.Piece, limit int) []board.Piece {
	if len(order) == 0 || limit <= 0 {
		return nil
	}
	if len(order) > limit {
		order = order[len(order)-limit:]
	}
	out := make([]board.Piece, len(order))
	for i := range order {
		out[i] = order[len(order)-1-i]
	}
	return out
}

func formatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}

// Error maps a failed gesture to a user message.
func (f *Formatter) Error(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, session.ErrNoPiece):
		return f.cat.Text("error.no_piece", nil)
	case errors.Is(err, session.ErrWrongTurn):
		return f.cat.Text("error.wrong_turn", nil)
	case errors.Is(err, session.ErrNotYourTurn):
		return f.cat.Text("error.not_your_turn", nil)
	case errors.Is(err, session.ErrGameOver):
		return f.cat.Text("error.game_over", nil)
	case errors.Is(err, session.ErrInvalidTransition):
		return f.cat.Text("error.invalid_transition", nil)
	case errors.Is(err, session.ErrIllegalDestination):
		return f.cat.Text("error.illegal", nil)
	case errors.Is(err, board.ErrInvalidNotation), errors.Is(err, board.ErrOutOfBounds):
		return f.cat.Text("error.notation", nil)
	case errors.Is(err, conn.ErrNotConnected):
		return f.cat.Text("error.not_connected", nil)
	default:
		return err.Error()
	}
}

func (f *Formatter) UnknownCommand(cmd string) string {
	return f.cat.Text("error.unknown_command", map[string]any{"Command": cmd})
}

func (f *Formatter) Help() string {
	return strings.TrimRight(f.cat.Text("help", nil), "\n")
}
