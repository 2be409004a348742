// Package conn keeps one logical websocket session to the game peer and
// reports what happens to it as a stream of events.
package conn

import (
	"context"
	"time"

	"nhooyr.io/websocket"

	"github.com/park285/cheese-chess-client/pkg/protocol"
)

// DefaultURL is the peer endpoint used when none is configured.
const DefaultURL = "ws://localhost:8080"

var (
	ErrNotConnected = errf("ws not connected")
	ErrClosed       = errf("connection manager closed")
)

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error         { return staticErr(s) }

type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
)

type EventKind int

const (
	EventConnected EventKind = iota + 1
	// EventConnecting is emitted when a scheduled retry starts dialing.
	EventConnecting
	EventMessage
	EventDisconnected
)

func (k EventKind) String() string {
	switch k {
	case EventConnected:
		return "connected"
	case EventConnecting:
		return "connecting"
	case EventMessage:
		return "message"
	case EventDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Event is one thing that happened on the connection. Message is set for
// EventMessage; Err carries the cause of an EventDisconnected, if any.
type Event struct {
	Kind    EventKind
	Message protocol.Message
	Err     error
}

// Transport is an established session. Close must unblock a pending Read.
type Transport interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Ping(ctx context.Context) error
	Close(code websocket.StatusCode, reason string) error
}

// Dialer opens a Transport to url.
type Dialer func(ctx context.Context, url string) (Transport, error)

// Timer is a pending callback that may be cancelled.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// backoffDelay returns base * 2^attempt, so attempt 0 waits base.
func backoffDelay(base time.Duration, attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 16 {
		attempt = 16
	}
	return time.Duration(1<<uint(attempt)) * base
}
