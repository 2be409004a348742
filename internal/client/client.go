// Package client composes a game session with a peer connection. Every
// mutation runs on the goroutine executing Run, one event at a time.
package client

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/park285/cheese-chess-client/internal/board"
	"github.com/park285/cheese-chess-client/internal/conn"
	"github.com/park285/cheese-chess-client/internal/session"
	"github.com/park285/cheese-chess-client/pkg/protocol"
)

var ErrStopped = errf("client loop stopped")

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error         { return staticErr(s) }

// Conn is the part of conn.Manager the client drives.
type Conn interface {
	Connect(ctx context.Context) error
	Disconnect()
	Send(ctx context.Context, msg protocol.Message) error
	Status() conn.Status
	Events() <-chan conn.Event
}

type command struct {
	run  func(ctx context.Context) error
	done chan error
}

type Client struct {
	sess   *session.Session
	conn   Conn
	logger *zap.Logger
	now    func() time.Time
	tick   time.Duration

	cmds    chan command
	changes chan struct{}
	stopped chan struct{}
}

type Option func(*Client)

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTick sets how often the game clock is checked; zero disables it.
func WithTick(d time.Duration) Option {
	return func(c *Client) { c.tick = d }
}

func WithNow(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

func New(sess *session.Session, cn Conn, opts ...Option) *Client {
	c := &Client{
		sess:    sess,
		conn:    cn,
		logger:  zap.NewNop(),
		now:     time.Now,
		tick:    250 * time.Millisecond,
		cmds:    make(chan command),
		changes: make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.syncConnection()
	return c
}

// Changes receives a value whenever the session may have changed outside a
// direct call, e.g. after a peer message. Signals are coalesced.
func (c *Client) Changes() <-chan struct{} { return c.changes }

func (c *Client) Snapshot() session.Snapshot { return c.sess.Snapshot() }

// Run processes commands, connection events and clock ticks until ctx ends.
func (c *Client) Run(ctx context.Context) error {
	defer close(c.stopped)

	var tickC <-chan time.Time
	if c.tick > 0 {
		t := time.NewTicker(c.tick)
		defer t.Stop()
		tickC = t.C
	}
	var events <-chan conn.Event
	if c.conn != nil {
		events = c.conn.Events()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-c.cmds:
			cmd.done <- cmd.run(ctx)
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			c.handleEvent(ev)
			c.notify()
		case <-tickC:
			if c.sess.Tick(c.now()) {
				c.logger.Info("client_flag_fall", zap.String("game_id", c.sess.Status().GameID))
				c.notify()
			}
		}
	}
}

func (c *Client) do(ctx context.Context, run func(ctx context.Context) error) error {
	cmd := command{run: run, done: make(chan error, 1)}
	select {
	case c.cmds <- cmd:
	case <-c.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-cmd.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) notify() {
	select {
	case c.changes <- struct{}{}:
	default:
	}
}

func (c *Client) StartGame(ctx context.Context) error {
	return c.do(ctx, func(context.Context) error {
		if err := c.sess.StartGame(); err != nil {
			return err
		}
		c.syncConnection()
		return nil
	})
}

// Seek asks the peer for a game and shows the waiting screen. Without a live
// connection nothing changes and conn.ErrNotConnected is returned.
func (c *Client) Seek(ctx context.Context) error {
	return c.do(ctx, func(ctx context.Context) error {
		if c.conn == nil {
			return conn.ErrNotConnected
		}
		if err := c.sess.Seek(); err != nil {
			return err
		}
		if err := c.conn.Send(ctx, protocol.InitGame{}); err != nil {
			_ = c.sess.CancelSeek()
			return err
		}
		return nil
	})
}

// Select forwards a square click. A click that completes a move in a peer
// game relays it.
func (c *Client) Select(ctx context.Context, p board.Position) (session.SelectResult, error) {
	var res session.SelectResult
	err := c.do(ctx, func(ctx context.Context) error {
		var err error
		res, err = c.sess.SelectSquare(p)
		if err != nil || res.Move == nil {
			return err
		}
		return c.relay(ctx, *res.Move)
	})
	return res, err
}

func (c *Client) Move(ctx context.Context, from, to string) (session.GameMove, error) {
	var mv session.GameMove
	err := c.do(ctx, func(ctx context.Context) error {
		var err error
		mv, err = c.sess.MakeMove(from, to)
		if err != nil {
			return err
		}
		return c.relay(ctx, mv)
	})
	return mv, err
}

// relay sends a local ply of a peer game. The ply stays applied if the send
// fails; the error tells the caller the opponent has not seen it.
func (c *Client) relay(ctx context.Context, mv session.GameMove) error {
	if !c.sess.Status().Remote || c.conn == nil {
		return nil
	}
	if err := c.conn.Send(ctx, protocol.MoveMsg{Move: protocol.Move{From: mv.From, To: mv.To}}); err != nil {
		c.logger.Warn("client_move_not_sent", zap.String("from", mv.From), zap.String("to", mv.To), zap.Error(err))
		return fmt.Errorf("relay move: %w", err)
	}
	return nil
}

// Reset returns the session to landing. The connection is left as it is.
func (c *Client) Reset(ctx context.Context) error {
	return c.do(ctx, func(context.Context) error {
		c.sess.ResetGame()
		c.syncConnection()
		return nil
	})
}

func (c *Client) Connect(ctx context.Context) error {
	return c.do(ctx, func(ctx context.Context) error {
		if c.conn == nil {
			return conn.ErrNotConnected
		}
		if err := c.conn.Connect(ctx); err != nil {
			return err
		}
		c.syncConnection()
		return nil
	})
}

func (c *Client) Disconnect(ctx context.Context) error {
	return c.do(ctx, func(context.Context) error {
		if c.conn != nil {
			c.conn.Disconnect()
		}
		c.syncConnection()
		return nil
	})
}

func (c *Client) handleEvent(ev conn.Event) {
	switch ev.Kind {
	case conn.EventConnected, conn.EventConnecting, conn.EventDisconnected:
		c.syncConnection()
		if ev.Err != nil {
			c.logger.Debug("client_connection_event", zap.Stringer("kind", ev.Kind), zap.Error(ev.Err))
		}
	case conn.EventMessage:
		c.handleMessage(ev.Message)
	}
}

func (c *Client) handleMessage(msg protocol.Message) {
	if msg == nil {
		return
	}
	var err error
	switch m := msg.(type) {
	case protocol.InitGame:
		color, _ := board.ParseColor(m.Color)
		err = c.sess.Join(color, m.GameID)
	case protocol.MoveMsg:
		_, err = c.sess.ApplyRemoteMove(m.Move.From, m.Move.To)
	case protocol.GameOver:
		err = c.sess.Finish(session.Outcome(m.Winner), m.Reason)
	default:
		err = fmt.Errorf("%w: %T", protocol.ErrUnknownType, msg)
	}
	if err != nil {
		c.logger.Warn("client_message_rejected", zap.String("type", string(msg.Type())), zap.Error(err))
	}
}

// syncConnection mirrors the manager's real status into the session.
func (c *Client) syncConnection() {
	if c.conn == nil {
		c.sess.SetConnectionStatus(session.Disconnected)
		return
	}
	switch c.conn.Status() {
	case conn.StatusConnected:
		c.sess.SetConnectionStatus(session.Connected)
	case conn.StatusConnecting:
		c.sess.SetConnectionStatus(session.Connecting)
	default:
		c.sess.SetConnectionStatus(session.Disconnected)
	}
}
