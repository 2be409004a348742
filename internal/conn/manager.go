package conn

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/park285/cheese-chess-client/pkg/protocol"
)

// Manager owns the transport handle and the retry timer. Every transition
// bumps gen; goroutines started for an older gen discard their results.
type Manager struct {
	url          string
	dial         Dialer
	sched        Scheduler
	logger       *zap.Logger
	maxRetries   int
	baseDelay    time.Duration
	dialTimeout  time.Duration
	writeTimeout time.Duration
	pingInterval time.Duration

	mu       sync.Mutex
	status   Status
	attempts int
	gen      uint64
	timer    Timer
	tr       Transport
	trCancel context.CancelFunc
	closed   bool

	writeM sync.Mutex

	events   chan Event
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	rootCtx    context.Context
	rootCancel context.CancelFunc
}

type Option func(*Manager)

func WithDialer(d Dialer) Option {
	return func(m *Manager) {
		if d != nil {
			m.dial = d
		}
	}
}

func WithScheduler(s Scheduler) Option {
	return func(m *Manager) {
		if s != nil {
			m.sched = s
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithRetry sets the retry ceiling and the first backoff delay.
func WithRetry(max int, base time.Duration) Option {
	return func(m *Manager) {
		if max >= 0 {
			m.maxRetries = max
		}
		if base > 0 {
			m.baseDelay = base
		}
	}
}

func WithDialTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.dialTimeout = d
		}
	}
}

// WithPingInterval sets the keepalive period; zero disables pings.
func WithPingInterval(d time.Duration) Option {
	return func(m *Manager) {
		if d >= 0 {
			m.pingInterval = d
		}
	}
}

func New(url string, opts ...Option) *Manager {
	if url == "" {
		url = DefaultURL
	}
	m := &Manager{
		url:          url,
		dial:         DialWebsocket,
		sched:        realScheduler{},
		logger:       zap.NewNop(),
		maxRetries:   5,
		baseDelay:    time.Second,
		dialTimeout:  10 * time.Second,
		writeTimeout: 5 * time.Second,
		pingInterval: 30 * time.Second,
		status:       StatusDisconnected,
		events:       make(chan Event, 64),
		stopCh:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.rootCtx, m.rootCancel = context.WithCancel(context.Background())
	return m
}

// Events is closed after Close has stopped every goroutine.
func (m *Manager) Events() <-chan Event { return m.events }

func (m *Manager) URL() string { return m.url }

func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Attempts is the number of automatic retries since the last success.
func (m *Manager) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

// Connect starts dialing in the background and returns at once. The outcome
// arrives on Events. It is a no-op while connecting or connected.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.status != StatusDisconnected {
		m.mu.Unlock()
		return nil
	}
	m.stopTimerLocked()
	g := m.beginDialLocked()
	m.mu.Unlock()

	go m.dialOnce(ctx, g)
	return nil
}

func (m *Manager) beginDialLocked() uint64 {
	m.gen++
	m.status = StatusConnecting
	m.wg.Add(1)
	return m.gen
}

func (m *Manager) dialOnce(ctx context.Context, g uint64) {
	defer m.wg.Done()

	dctx, cancel := context.WithTimeout(ctx, m.dialTimeout)
	stop := context.AfterFunc(m.rootCtx, cancel)
	tr, err := m.dial(dctx, m.url)
	stop()
	cancel()

	m.mu.Lock()
	if g != m.gen || m.closed {
		m.mu.Unlock()
		if tr != nil {
			_ = tr.Close(websocket.StatusNormalClosure, "cancelled")
		}
		m.logger.Debug("ws_dial_discarded", zap.String("url", m.url))
		return
	}
	if err != nil {
		m.status = StatusDisconnected
		m.scheduleLocked()
		m.mu.Unlock()
		m.logger.Warn("ws_connect_failed", zap.String("url", m.url), zap.Error(err))
		m.emit(Event{Kind: EventDisconnected, Err: err})
		return
	}

	lctx, lcancel := context.WithCancel(m.rootCtx)
	m.tr = tr
	m.trCancel = lcancel
	m.status = StatusConnected
	m.attempts = 0
	m.wg.Add(2)
	m.mu.Unlock()

	m.logger.Info("ws_connect", zap.String("url", m.url))
	m.emit(Event{Kind: EventConnected})
	go m.listen(lctx, g, tr)
	go m.pingLoop(lctx, g, tr)
}

func (m *Manager) listen(ctx context.Context, g uint64, tr Transport) {
	defer m.wg.Done()
	for {
		data, err := tr.Read(ctx)
		if err != nil {
			m.drop(g, tr, err)
			return
		}
		msg, err := protocol.Decode(data)
		if err != nil {
			m.logger.Warn("ws_message_dropped", zap.Error(err), zap.Int("bytes", len(data)))
			continue
		}
		m.emit(Event{Kind: EventMessage, Message: msg})
	}
}

func (m *Manager) pingLoop(ctx context.Context, g uint64, tr Transport) {
	defer m.wg.Done()
	if m.pingInterval <= 0 {
		return
	}
	t := time.NewTicker(m.pingInterval)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := tr.Ping(pctx)
			cancel()
			if err == nil {
				failures = 0
				continue
			}
			failures++
			if failures >= 2 {
				m.drop(g, tr, fmt.Errorf("ping: %w", err))
				return
			}
		}
	}
}

// drop handles loss of the current transport and arms the next retry.
func (m *Manager) drop(g uint64, tr Transport, cause error) {
	m.mu.Lock()
	if g != m.gen || m.closed || m.tr != tr {
		m.mu.Unlock()
		return
	}
	m.releaseLocked()
	m.status = StatusDisconnected
	m.scheduleLocked()
	m.mu.Unlock()

	_ = tr.Close(websocket.StatusGoingAway, "reconnect")
	m.logger.Warn("ws_disconnected", zap.String("url", m.url), zap.Error(cause))
	m.emit(Event{Kind: EventDisconnected, Err: cause})
}

func (m *Manager) scheduleLocked() {
	if m.attempts >= m.maxRetries {
		m.logger.Warn("ws_reconnect_exhausted", zap.Int("attempts", m.attempts))
		return
	}
	delay := backoffDelay(m.baseDelay, m.attempts)
	m.attempts++
	g := m.gen
	m.timer = m.sched.AfterFunc(delay, func() { m.retry(g) })
	m.logger.Info("ws_reconnect_scheduled",
		zap.Duration("delay", delay),
		zap.Int("attempt", m.attempts),
	)
}

func (m *Manager) retry(g uint64) {
	m.mu.Lock()
	if g != m.gen || m.closed || m.status != StatusDisconnected {
		m.mu.Unlock()
		return
	}
	m.timer = nil
	next := m.beginDialLocked()
	m.mu.Unlock()

	m.emit(Event{Kind: EventConnecting})
	m.dialOnce(m.rootCtx, next)
}

// Disconnect cancels a pending retry, closes the session with a normal
// closure and resets the retry counter. Safe to call in any state.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.stopTimerLocked()
	m.gen++
	m.attempts = 0
	tr := m.tr
	m.releaseLocked()
	m.status = StatusDisconnected
	m.mu.Unlock()

	if tr != nil {
		_ = tr.Close(websocket.StatusNormalClosure, "disconnect")
	}
	m.logger.Info("ws_disconnect", zap.String("url", m.url))
}

// Send encodes msg and writes it. It fails with ErrNotConnected unless the
// session is up; nothing is queued.
func (m *Manager) Send(ctx context.Context, msg protocol.Message) error {
	data, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	m.mu.Lock()
	tr := m.tr
	up := m.status == StatusConnected && tr != nil
	m.mu.Unlock()
	if !up {
		m.logger.Warn("ws_send_dropped", zap.String("type", string(msg.Type())))
		return ErrNotConnected
	}

	wctx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		wctx, cancel = context.WithTimeout(ctx, m.writeTimeout)
		defer cancel()
	}
	m.writeM.Lock()
	defer m.writeM.Unlock()
	if err := tr.Write(wctx, data); err != nil {
		return fmt.Errorf("send %s: %w", msg.Type(), err)
	}
	return nil
}

// Close tears the manager down: pending timers are cancelled, the session is
// closed and every goroutine is waited for. Events is closed on success.
func (m *Manager) Close(ctx context.Context) error {
	m.stopOnce.Do(func() { close(m.stopCh) })

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.stopTimerLocked()
	m.gen++
	tr := m.tr
	m.releaseLocked()
	m.status = StatusDisconnected
	m.mu.Unlock()

	if tr != nil {
		_ = tr.Close(websocket.StatusNormalClosure, "close")
	}
	m.rootCancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		close(m.events)
		return nil
	}
}

func (m *Manager) stopTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

func (m *Manager) releaseLocked() {
	if m.trCancel != nil {
		m.trCancel()
		m.trCancel = nil
	}
	m.tr = nil
}

// emit blocks until the event is consumed or the manager is closed.
func (m *Manager) emit(ev Event) {
	select {
	case m.events <- ev:
	case <-m.stopCh:
	}
}
