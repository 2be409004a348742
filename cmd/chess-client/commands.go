package main

import (
	"strings"

	"github.com/park285/cheese-chess-client/internal/board"
)

type commandKind int

const (
	cmdUnknown commandKind = iota
	cmdEmpty
	cmdHelp
	cmdStart
	cmdSeek
	cmdSelect
	cmdMove
	cmdHistory
	cmdBoard
	cmdReset
	cmdConnect
	cmdDisconnect
	cmdQuit
)

type command struct {
	kind     commandKind
	square   board.Position
	from, to string
	raw      string
}

// parseCommand reads one input line. Squares are accepted as "e2", moves as
// "e2e4", "e2 e4" or "e2-e4".
func parseCommand(line string) command {
	raw := strings.TrimSpace(line)
	fields := strings.Fields(strings.ToLower(raw))
	if len(fields) == 0 {
		return command{kind: cmdEmpty}
	}
	c := command{raw: raw}
	switch fields[0] {
	case "help", "?":
		c.kind = cmdHelp
	case "start":
		c.kind = cmdStart
	case "seek":
		c.kind = cmdSeek
	case "history", "moves":
		c.kind = cmdHistory
	case "board", "show":
		c.kind = cmdBoard
	case "reset":
		c.kind = cmdReset
	case "connect":
		c.kind = cmdConnect
	case "disconnect":
		c.kind = cmdDisconnect
	case "quit", "exit":
		c.kind = cmdQuit
	}
	if c.kind != cmdUnknown {
		return c
	}

	joined := strings.ReplaceAll(strings.Join(fields, ""), "-", "")
	switch len(joined) {
	case 2:
		if p, err := board.ToPosition(joined); err == nil {
			c.kind, c.square = cmdSelect, p
		}
	case 4:
		from, to := joined[:2], joined[2:]
		if _, err := board.ToPosition(from); err != nil {
			return c
		}
		if _, err := board.ToPosition(to); err != nil {
			return c
		}
		c.kind, c.from, c.to = cmdMove, from, to
	}
	return c
}
