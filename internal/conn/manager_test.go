package conn

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/cheese-chess-client/pkg/protocol"
)

type fakeTimer struct {
	delay   time.Duration
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{delay: d, f: f}
	s.timers = append(s.timers, t)
	return t
}

func (s *fakeScheduler) delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, 0, len(s.timers))
	for _, t := range s.timers {
		out = append(out, t.delay)
	}
	return out
}

func (s *fakeScheduler) last(t *testing.T) *fakeTimer {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.timers) == 0 {
		t.Fatalf("no timer scheduled")
	}
	return s.timers[len(s.timers)-1]
}

type fakeTransport struct {
	mu      sync.Mutex
	written [][]byte
	code    websocket.StatusCode
	closed  chan struct{}
	once    sync.Once
}

func newFakeTransport() *fakeTransport { return &fakeTransport{closed: make(chan struct{})} }

func (f *fakeTransport) Read(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-f.closed:
		return nil, errors.New("closed")
	}
}

func (f *fakeTransport) Write(_ context.Context, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.written = append(f.written, append([]byte(nil), data...))
	return nil
}

func (f *fakeTransport) Ping(context.Context) error { return nil }

func (f *fakeTransport) Close(code websocket.StatusCode, _ string) error {
	f.once.Do(func() {
		f.mu.Lock()
		f.code = code
		f.mu.Unlock()
		close(f.closed)
	})
	return nil
}

func (f *fakeTransport) closeCode() websocket.StatusCode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.code
}

type countingDialer struct {
	mu    sync.Mutex
	calls int
	next  func(call int) (Transport, error)
}

func (d *countingDialer) dial(ctx context.Context, _ string) (Transport, error) {
	d.mu.Lock()
	d.calls++
	call := d.calls
	d.mu.Unlock()
	return d.next(call)
}

func (d *countingDialer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func nextEvent(t *testing.T, m *Manager) Event {
	t.Helper()
	select {
	case ev := <-m.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for event")
		return Event{}
	}
}

func expectKind(t *testing.T, m *Manager, want EventKind) Event {
	t.Helper()
	ev := nextEvent(t, m)
	if ev.Kind != want {
		t.Fatalf("event=%s want %s (err=%v)", ev.Kind, want, ev.Err)
	}
	return ev
}

func closeManager(t *testing.T, m *Manager) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := m.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

var errRefused = errors.New("connection refused")

func TestBackoffDelay(t *testing.T) {
	var got []time.Duration
	for i := 0; i < 5; i++ {
		got = append(got, backoffDelay(time.Second, i))
	}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("delays mismatch (-want +got):\n%s", diff)
	}
}

func TestRetryScheduleStopsAtCeiling(t *testing.T) {
	sched := &fakeScheduler{}
	d := &countingDialer{next: func(int) (Transport, error) { return nil, errRefused }}
	m := New("ws://peer.invalid", WithDialer(d.dial), WithScheduler(sched))
	defer closeManager(t, m)

	if err := m.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	ev := expectKind(t, m, EventDisconnected)
	if !errors.Is(ev.Err, errRefused) {
		t.Fatalf("err=%v want refused", ev.Err)
	}

	for i := 0; i < 5; i++ {
		sched.last(t).f()
		expectKind(t, m, EventConnecting)
		expectKind(t, m, EventDisconnected)
	}

	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second}
	if diff := cmp.Diff(want, sched.delays()); diff != "" {
		t.Fatalf("delays mismatch (-want +got):\n%s", diff)
	}
	if got := d.count(); got != 6 {
		t.Fatalf("dials=%d want 6", got)
	}
	if m.Status() != StatusDisconnected || m.Attempts() != 5 {
		t.Fatalf("status=%s attempts=%d", m.Status(), m.Attempts())
	}
}

func TestDisconnectCancelsPendingRetry(t *testing.T) {
	sched := &fakeScheduler{}
	d := &countingDialer{next: func(int) (Transport, error) { return nil, errRefused }}
	m := New("ws://peer.invalid", WithDialer(d.dial), WithScheduler(sched))
	defer closeManager(t, m)

	if err := m.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	expectKind(t, m, EventDisconnected)
	timer := sched.last(t)

	m.Disconnect()
	if !timer.stopped {
		t.Fatalf("pending timer not stopped")
	}
	// a timer that already fired must still be a no-op
	timer.f()
	if got := d.count(); got != 1 {
		t.Fatalf("dials=%d want 1", got)
	}
	if m.Status() != StatusDisconnected || m.Attempts() != 0 {
		t.Fatalf("status=%s attempts=%d", m.Status(), m.Attempts())
	}
	m.Disconnect()
}

func TestSuccessfulRetryResetsAttempts(t *testing.T) {
	sched := &fakeScheduler{}
	tr := newFakeTransport()
	d := &countingDialer{next: func(call int) (Transport, error) {
		if call < 3 {
			return nil, errRefused
		}
		return tr, nil
	}}
	m := New("ws://peer.invalid", WithDialer(d.dial), WithScheduler(sched), WithPingInterval(0))
	defer closeManager(t, m)

	if err := m.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	expectKind(t, m, EventDisconnected)
	sched.last(t).f()
	expectKind(t, m, EventConnecting)
	expectKind(t, m, EventDisconnected)
	if m.Attempts() != 2 {
		t.Fatalf("attempts=%d want 2", m.Attempts())
	}
	sched.last(t).f()
	expectKind(t, m, EventConnecting)
	expectKind(t, m, EventConnected)
	if m.Status() != StatusConnected || m.Attempts() != 0 {
		t.Fatalf("status=%s attempts=%d", m.Status(), m.Attempts())
	}

	if err := m.Connect(context.Background()); err != nil {
		t.Fatalf("Connect while connected: %v", err)
	}
	if d.count() != 3 {
		t.Fatalf("connect while connected dialed again")
	}

	m.Disconnect()
	if tr.closeCode() != websocket.StatusNormalClosure {
		t.Fatalf("close code=%v want normal closure", tr.closeCode())
	}
}

func TestDropSchedulesReconnect(t *testing.T) {
	sched := &fakeScheduler{}
	tr := newFakeTransport()
	d := &countingDialer{next: func(int) (Transport, error) { return tr, nil }}
	m := New("ws://peer.invalid", WithDialer(d.dial), WithScheduler(sched), WithPingInterval(0))
	defer closeManager(t, m)

	if err := m.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	expectKind(t, m, EventConnected)

	_ = tr.Close(websocket.StatusAbnormalClosure, "gone")
	expectKind(t, m, EventDisconnected)
	if m.Status() != StatusDisconnected {
		t.Fatalf("status=%s", m.Status())
	}
	if diff := cmp.Diff([]time.Duration{time.Second}, sched.delays()); diff != "" {
		t.Fatalf("delays mismatch:\n%s", diff)
	}
}

func TestLateDialResultIsClosed(t *testing.T) {
	release := make(chan struct{})
	tr := newFakeTransport()
	d := &countingDialer{next: func(int) (Transport, error) {
		<-release
		return tr, nil
	}}
	m := New("ws://peer.invalid", WithDialer(d.dial), WithScheduler(&fakeScheduler{}))
	defer closeManager(t, m)

	if err := m.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	if m.Status() != StatusConnecting {
		t.Fatalf("status=%s want connecting", m.Status())
	}
	m.Disconnect()
	close(release)

	select {
	case <-tr.closed:
	case <-time.After(2 * time.Second):
		t.Fatalf("late transport was not closed")
	}
	if tr.closeCode() != websocket.StatusNormalClosure {
		t.Fatalf("close code=%v", tr.closeCode())
	}
	if m.Status() != StatusDisconnected {
		t.Fatalf("status=%s", m.Status())
	}
	select {
	case ev := <-m.Events():
		t.Fatalf("unexpected event %s", ev.Kind)
	default:
	}
}

func TestSendRequiresConnection(t *testing.T) {
	m := New("", WithScheduler(&fakeScheduler{}))
	defer closeManager(t, m)
	if m.URL() != DefaultURL {
		t.Fatalf("url=%s want %s", m.URL(), DefaultURL)
	}
	err := m.Send(context.Background(), protocol.MoveMsg{Move: protocol.Move{From: "e2", To: "e4"}})
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("err=%v want ErrNotConnected", err)
	}
}

func TestCloseIsFinal(t *testing.T) {
	m := New("ws://peer.invalid", WithScheduler(&fakeScheduler{}))
	closeManager(t, m)
	if err := m.Connect(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("Connect after Close err=%v", err)
	}
	if _, ok := <-m.Events(); ok {
		t.Fatalf("events channel still open")
	}
	closeManager(t, m)
}

func TestWebsocketRoundTrip(t *testing.T) {
	received := make(chan protocol.Envelope, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		ctx := r.Context()
		_ = c.Write(ctx, websocket.MessageText, []byte("not json"))
		_ = c.Write(ctx, websocket.MessageText, []byte(`{"type":"CHAT","payload":{}}`))
		_ = wsjson.Write(ctx, c, map[string]any{
			"type":    "INIT_GAME",
			"payload": map[string]string{"color": "black", "gameId": "g-7"},
		})
		var env protocol.Envelope
		if err := wsjson.Read(ctx, c, &env); err == nil {
			received <- env
		}
		_ = c.Close(websocket.StatusNormalClosure, "bye")
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	sched := &fakeScheduler{}
	m := New(url, WithScheduler(sched), WithPingInterval(0))
	defer closeManager(t, m)

	if err := m.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	expectKind(t, m, EventConnected)
	ev := expectKind(t, m, EventMessage)
	if diff := cmp.Diff(protocol.InitGame{Color: "black", GameID: "g-7"}, ev.Message); diff != "" {
		t.Fatalf("message mismatch (-want +got):\n%s", diff)
	}

	if err := m.Send(context.Background(), protocol.MoveMsg{Move: protocol.Move{From: "e7", To: "e5"}}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	select {
	case env := <-received:
		if env.Type != protocol.TypeMove || !strings.Contains(string(env.Payload), `"e7"`) {
			t.Fatalf("server got %+v", env)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("server did not receive the move")
	}

	expectKind(t, m, EventDisconnected)
	if got := sched.delays(); len(got) != 1 || got[0] != time.Second {
		t.Fatalf("reconnect delays=%v", got)
	}
}
