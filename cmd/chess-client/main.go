package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/park285/cheese-chess-client/internal/client"
	appcfg "github.com/park285/cheese-chess-client/internal/config"
	"github.com/park285/cheese-chess-client/internal/conn"
	"github.com/park285/cheese-chess-client/internal/msgcat"
	"github.com/park285/cheese-chess-client/internal/obslog"
	"github.com/park285/cheese-chess-client/internal/presenter"
	"github.com/park285/cheese-chess-client/internal/rules"
	"github.com/park285/cheese-chess-client/internal/session"
)

func main() {
	wsURL := flag.String("url", "", "peer endpoint (overrides CHESS_WS_URL)")
	rulesName := flag.String("rules", "", "move rules: standard or adjacent (overrides CHESS_RULES)")
	autoConnect := flag.Bool("connect", false, "connect on startup")
	flag.Parse()

	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer obslog.Sync()

	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if *wsURL != "" {
		cfg.WSURL = *wsURL
	}
	if *rulesName != "" {
		cfg.Rules = *rulesName
	}
	if *autoConnect {
		cfg.AutoConnect = true
	}

	if err := run(cfg, os.Stdin, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(cfg *appcfg.AppConfig, in io.Reader, out io.Writer) error {
	logger := obslog.L()

	provider, err := rules.New(cfg.Rules)
	if err != nil {
		return fmt.Errorf("rules: %w", err)
	}
	cat, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return fmt.Errorf("messages: %w", err)
	}

	sess := session.New(session.WithRules(provider), session.WithTimeControl(cfg.TimeControl))
	mgr := conn.New(cfg.WSURL,
		conn.WithLogger(logger),
		conn.WithRetry(cfg.ReconnectMax, cfg.ReconnectBase),
		conn.WithDialTimeout(cfg.DialTimeout),
		conn.WithPingInterval(cfg.PingInterval),
	)
	cl := client.New(sess, mgr, client.WithLogger(logger))

	w := &lockedWriter{w: out}
	view := presenter.NewPresenter(w, presenter.NewFormatter(cat))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loopDone := make(chan error, 1)
	go func() { loopDone <- cl.Run(ctx) }()

	logger.Info("client_start",
		zap.String("url", cfg.WSURL),
		zap.String("rules", cfg.Rules),
		zap.Duration("time_control", cfg.TimeControl),
	)

	if cfg.AutoConnect {
		if err := cl.Connect(ctx); err != nil {
			_ = view.Error(err)
		}
	}
	_ = view.Render(cl.Snapshot())

	redrawDone := make(chan struct{})
	go func() {
		defer close(redrawDone)
		for {
			select {
			case <-ctx.Done():
				return
			case <-cl.Changes():
				_ = view.Render(cl.Snapshot())
			}
		}
	}()

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for quit := false; !quit; {
		select {
		case <-ctx.Done():
			quit = true
		case line, ok := <-lines:
			if !ok {
				quit = true
				break
			}
			quit = handle(ctx, cl, view, parseCommand(line))
		}
	}

	stop()
	<-redrawDone
	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := mgr.Close(closeCtx); err != nil {
		logger.Warn("client_close", zap.Error(err))
	}
	if err := <-loopDone; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// handle runs one command and reports whether the user asked to quit.
func handle(ctx context.Context, cl *client.Client, view *presenter.Presenter, c command) bool {
	var err error
	render := true
	switch c.kind {
	case cmdEmpty:
		return false
	case cmdQuit:
		return true
	case cmdHelp:
		_ = view.Help()
		return false
	case cmdHistory:
		_ = view.History(cl.Snapshot())
		return false
	case cmdBoard:
	case cmdStart:
		err = cl.StartGame(ctx)
	case cmdSeek:
		err = cl.Seek(ctx)
	case cmdSelect:
		_, err = cl.Select(ctx, c.square)
	case cmdMove:
		_, err = cl.Move(ctx, c.from, c.to)
	case cmdReset:
		err = cl.Reset(ctx)
	case cmdConnect:
		err = cl.Connect(ctx)
	case cmdDisconnect:
		err = cl.Disconnect(ctx)
	default:
		_ = view.UnknownCommand(c.raw)
		return false
	}
	if err != nil {
		_ = view.Error(err)
		render = !errors.Is(err, client.ErrStopped)
	}
	if render {
		_ = view.Render(cl.Snapshot())
	}
	return false
}

// lockedWriter serialises output from the command loop and the redraw loop.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
