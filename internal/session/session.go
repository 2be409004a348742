// Package session holds the turn-based state machine of one game:
// landing -> waiting -> playing -> game-over, plus reset back to landing.
//
// All mutators take the write lock for their whole duration, so a reader
// calling Snapshot never sees a board and a turn from different plies.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/cheese-chess-client/internal/board"
	"github.com/park285/cheese-chess-client/internal/obslog"
	"github.com/park285/cheese-chess-client/internal/rules"
	"github.com/park285/cheese-chess-client/pkg/protocol"
)

type Session struct {
	mu sync.RWMutex

	rules rules.Provider
	now   func() time.Time
	newID func() string

	board        board.Board
	status       Status
	history      []GameMove
	selected     *board.Position
	destinations []board.Position
	lastMove     *protocol.Move
	clock        clock
}

type Option func(*Session)

// WithRules replaces the legality provider (adjacency placeholder by default).
func WithRules(p rules.Provider) Option {
	return func(s *Session) {
		if p != nil {
			s.rules = p
		}
	}
}

// WithTimeControl enables a per-side clock of d; zero disables it.
func WithTimeControl(d time.Duration) Option {
	return func(s *Session) { s.clock = newClock(d) }
}

func WithNow(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

func WithIDGenerator(f func() string) Option {
	return func(s *Session) {
		if f != nil {
			s.newID = f
		}
	}
}

func New(opts ...Option) *Session {
	s := &Session{
		rules: rules.Adjacent{},
		now:   time.Now,
		newID: uuid.NewString,
		clock: newClock(0),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.resetLocked()
	return s
}

func (s *Session) resetLocked() {
	s.board = board.Initialize()
	s.status = Status{
		State:            StateLanding,
		CurrentTurn:      board.White,
		ConnectionStatus: Connected,
	}
	s.history = nil
	s.clearSelectionLocked()
	s.lastMove = nil
	s.clock.reset()
}

func (s *Session) clearSelectionLocked() {
	s.selected = nil
	s.destinations = nil
}

// StartGame begins a local game with the local player on white.
func (s *Session) StartGame() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.State != StateLanding && s.status.State != StateWaiting {
		return fmt.Errorf("%w: start from %s", ErrInvalidTransition, s.status.State)
	}
	s.status.State = StatePlaying
	s.status.PlayerColor = board.White
	s.status.Remote = false
	s.status.ConnectionStatus = Connected
	if s.status.GameID == "" {
		s.status.GameID = s.newID()
	}
	s.clock.start(s.now())
	obslog.L().Info("session_start", zap.String("game_id", s.status.GameID), zap.String("mode", "local"))
	return nil
}

// Seek moves the session to the waiting screen while a peer game is requested.
func (s *Session) Seek() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.State != StateLanding {
		return fmt.Errorf("%w: seek from %s", ErrInvalidTransition, s.status.State)
	}
	s.status.State = StateWaiting
	return nil
}

// CancelSeek leaves the waiting screen, e.g. when the request could not be sent.
func (s *Session) CancelSeek() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.State != StateWaiting {
		return fmt.Errorf("%w: cancel seek from %s", ErrInvalidTransition, s.status.State)
	}
	s.status.State = StateLanding
	return nil
}

// Join starts a peer game with the colour assigned by the server.
func (s *Session) Join(color board.Color, gameID string) error {
	if !color.Valid() {
		return fmt.Errorf("%w: color %q", ErrInvalidTransition, color)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.State != StateLanding && s.status.State != StateWaiting {
		return fmt.Errorf("%w: join from %s", ErrInvalidTransition, s.status.State)
	}
	s.status.State = StatePlaying
	s.status.PlayerColor = color
	s.status.GameID = gameID
	s.status.Remote = true
	s.clock.start(s.now())
	obslog.L().Info("session_start",
		zap.String("game_id", gameID),
		zap.String("mode", "remote"),
		zap.String("color", string(color)),
	)
	return nil
}

// SelectSquare handles a click on p. Clicking a highlighted destination plays
// the move; clicking a piece of the side to move selects it; anything else
// clears the selection.
func (s *Session) SelectSquare(p board.Position) (SelectResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	piece, occupied, err := s.board.PieceAt(p)
	if err != nil {
		s.clearSelectionLocked()
		return SelectResult{Action: SelectCleared}, err
	}
	if s.status.State == StateGameOver {
		s.clearSelectionLocked()
		return SelectResult{Action: SelectCleared}, ErrGameOver
	}

	if s.selected != nil && containsPosition(s.destinations, p) {
		from := *s.selected
		s.clearSelectionLocked()
		if err := s.checkLocalLocked(); err != nil {
			return SelectResult{Action: SelectMoved}, err
		}
		mv, err := s.executeLocked(from, p)
		s.clearSelectionLocked()
		if err != nil {
			return SelectResult{Action: SelectMoved}, err
		}
		return SelectResult{Action: SelectMoved, Move: &mv}, nil
	}

	if occupied && piece.Color == s.status.CurrentTurn {
		if err := s.checkLocalLocked(); err != nil {
			s.clearSelectionLocked()
			return SelectResult{Action: SelectCleared}, err
		}
		sq := p
		s.selected = &sq
		s.destinations = s.rules.LegalDestinations(s.board, p, piece)
		return SelectResult{Action: SelectSelected}, nil
	}

	s.clearSelectionLocked()
	return SelectResult{Action: SelectCleared}, nil
}

// MakeMove plays from->to for the local player. Legality is the provider's
// concern at selection time; here only occupancy and turn order are checked.
func (s *Session) MakeMove(from, to string) (GameMove, error) {
	fp, tp, err := parseMove(from, to)
	if err != nil {
		return GameMove{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkLocalLocked(); err != nil {
		return GameMove{}, err
	}
	return s.executeLocked(fp, tp)
}

// ApplyRemoteMove plays the opponent's ply received from the peer.
func (s *Session) ApplyRemoteMove(from, to string) (GameMove, error) {
	fp, tp, err := parseMove(from, to)
	if err != nil {
		return GameMove{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.status.Remote || s.status.State != StatePlaying {
		return GameMove{}, fmt.Errorf("%w: remote move while %s", ErrInvalidTransition, s.status.State)
	}
	if s.status.CurrentTurn == s.status.PlayerColor {
		return GameMove{}, ErrWrongTurn
	}
	mv, err := s.executeLocked(fp, tp)
	if err == nil {
		s.clearSelectionLocked()
	}
	return mv, err
}

// checkLocalLocked rejects local gestures that cannot move anything: a
// finished game, or the opponent's turn in a peer game.
func (s *Session) checkLocalLocked() error {
	if s.status.State == StateGameOver {
		return ErrGameOver
	}
	if s.status.Remote && s.status.CurrentTurn != s.status.PlayerColor {
		return ErrNotYourTurn
	}
	return nil
}

func (s *Session) executeLocked(from, to board.Position) (GameMove, error) {
	if s.status.State == StateGameOver {
		return GameMove{}, ErrGameOver
	}
	piece, occupied, err := s.board.PieceAt(from)
	if err != nil {
		return GameMove{}, err
	}
	if !occupied {
		return GameMove{}, ErrNoPiece
	}
	if piece.Color != s.status.CurrentTurn {
		return GameMove{}, ErrWrongTurn
	}
	if from == to {
		return GameMove{}, ErrIllegalDestination
	}

	var assessment rules.Assessment
	if a, ok := s.rules.(rules.Assessor); ok {
		assessment = a.Assess(s.board, from, to)
	}
	next, captured, err := s.board.Apply(from, to)
	if err != nil {
		return GameMove{}, err
	}

	now := s.now()
	fromS, _ := board.ToNotation(from)
	toS, _ := board.ToNotation(to)
	mv := GameMove{From: fromS, To: toS, Piece: piece, SAN: assessment.SAN, Timestamp: now}
	if !captured.IsZero() {
		c := captured
		mv.Captured = &c
	}

	s.board = next
	s.history = append(s.history, mv)
	s.clock.punch(piece.Color, now)
	s.status.CurrentTurn = piece.Color.Opponent()
	s.clearSelectionLocked()
	s.lastMove = &protocol.Move{From: fromS, To: toS}

	s.status.IsCheck = assessment.Check
	s.status.IsCheckmate = assessment.Checkmate
	switch {
	case assessment.Checkmate:
		s.finishLocked(outcomeFor(piece.Color), "checkmate")
	case assessment.Stalemate:
		s.finishLocked(OutcomeDraw, "stalemate")
	}

	obslog.L().Debug("session_move",
		zap.String("game_id", s.status.GameID),
		zap.String("from", fromS),
		zap.String("to", toS),
		zap.String("piece", piece.String()),
		zap.Int("ply", len(s.history)),
		zap.Bool("check", assessment.Check),
	)
	return mv, nil
}

// Finish ends the game with the given outcome, e.g. on GAME_OVER from the peer.
func (s *Session) Finish(winner Outcome, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.status.State {
	case StatePlaying, StateWaiting:
	default:
		return fmt.Errorf("%w: finish from %s", ErrInvalidTransition, s.status.State)
	}
	s.finishLocked(winner, reason)
	return nil
}

func (s *Session) finishLocked(winner Outcome, reason string) {
	s.clock.stop(s.status.CurrentTurn, s.now())
	s.status.State = StateGameOver
	s.status.Winner = winner
	s.status.Reason = reason
	s.clearSelectionLocked()
	obslog.L().Info("session_over",
		zap.String("game_id", s.status.GameID),
		zap.String("winner", string(winner)),
		zap.String("reason", reason),
		zap.Int("plies", len(s.history)),
	)
}

// Tick ends a timed game when the side to move has run out of time at now.
// It reports whether the game ended on this call.
func (s *Session) Tick(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.State != StatePlaying {
		return false
	}
	turn := s.status.CurrentTurn
	if !s.clock.flagged(turn, now) {
		return false
	}
	s.clock.stop(turn, now)
	s.finishLocked(outcomeFor(turn.Opponent()), "timeout")
	return true
}

// ResetGame returns to landing from any state with a fresh board.
func (s *Session) ResetGame() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

func (s *Session) SetConnectionStatus(cs ConnectionStatus) {
	s.mu.Lock()
	s.status.ConnectionStatus = cs
	s.mu.Unlock()
}

func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Snapshot returns a copy safe to hand to another goroutine.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		Board:   s.board,
		Status:  s.status,
		History: make([]GameMove, len(s.history)),
		Clock:   s.clock.state(s.status.CurrentTurn, s.now()),
	}
	for i, mv := range s.history {
		if mv.Captured != nil {
			c := *mv.Captured
			mv.Captured = &c
		}
		snap.History[i] = mv
	}
	if s.selected != nil {
		sq := *s.selected
		snap.Selection.Square = &sq
		snap.Selection.Destinations = append([]board.Position(nil), s.destinations...)
	}
	if s.lastMove != nil {
		lm := *s.lastMove
		snap.LastMove = &lm
	}
	return snap
}

func parseMove(from, to string) (board.Position, board.Position, error) {
	fp, err := board.ToPosition(from)
	if err != nil {
		return board.Position{}, board.Position{}, err
	}
	tp, err := board.ToPosition(to)
	if err != nil {
		return board.Position{}, board.Position{}, err
	}
	return fp, tp, nil
}

func containsPosition(list []board.Position, p board.Position) bool {
	for _, q := range list {
		if q == p {
			return true
		}
	}
	return false
}
