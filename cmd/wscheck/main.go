package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	appcfg "github.com/park285/cheese-chess-client/internal/config"
	"github.com/park285/cheese-chess-client/internal/conn"
	"github.com/park285/cheese-chess-client/internal/obslog"
	"github.com/park285/cheese-chess-client/internal/probe"
	"github.com/park285/cheese-chess-client/pkg/protocol"
)

func main() {
	window := flag.Duration("window", 10*time.Second, "how long to observe the connection")
	seek := flag.Bool("seek", false, "send an INIT_GAME request once connected")
	skipHealth := flag.Bool("skip-health", false, "skip the HTTP health probe")
	flag.Parse()

	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer obslog.Sync()

	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	if !*skipHealth {
		hctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		res, err := probe.NewClient().Check(hctx, cfg.HealthEndpoint())
		cancel()
		if err != nil {
			log.Printf("health %s error: %v", cfg.HealthEndpoint(), err)
		} else {
			log.Printf("health %s ok: status=%d latency=%s", cfg.HealthEndpoint(), res.Status, res.Latency)
		}
	}

	mgr := conn.New(cfg.WSURL,
		conn.WithLogger(obslog.L()),
		conn.WithRetry(cfg.ReconnectMax, cfg.ReconnectBase),
		conn.WithDialTimeout(cfg.DialTimeout),
		conn.WithPingInterval(cfg.PingInterval),
	)
	if !observe(mgr, *window, *seek) {
		os.Exit(1)
	}
}

// observe connects and logs events until window elapses. It reports whether
// a connection was ever established.
func observe(mgr *conn.Manager, window time.Duration, seek bool) bool {
	ctx, cancel := context.WithTimeout(context.Background(), window)
	defer cancel()

	if err := mgr.Connect(ctx); err != nil {
		log.Printf("WS connect error: %v", err)
		return false
	}

	connected := false
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case ev, ok := <-mgr.Events():
			if !ok {
				break loop
			}
			switch ev.Kind {
			case conn.EventConnected:
				connected = true
				log.Printf("WS state: %s", mgr.Status())
				if seek {
					if err := mgr.Send(ctx, protocol.InitGame{}); err != nil {
						log.Printf("WS seek error: %v", err)
					}
				}
			case conn.EventMessage:
				log.Printf("WS msg type=%s %+v", ev.Message.Type(), ev.Message)
			default:
				log.Printf("WS state: %s attempts=%d err=%v", mgr.Status(), mgr.Attempts(), ev.Err)
			}
		}
	}

	closeCtx, ccancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer ccancel()
	if err := mgr.Close(closeCtx); err != nil {
		obslog.L().Warn("wscheck_close", zap.Error(err))
	}
	return connected
}
