package main

import (
	"testing"

	"github.com/park285/cheese-chess-client/internal/board"
)

func TestParseCommand(t *testing.T) {
	e2, _ := board.ToPosition("e2")
	cases := []struct {
		in   string
		want command
	}{
		{"", command{kind: cmdEmpty}},
		{"  START ", command{kind: cmdStart, raw: "START"}},
		{"seek", command{kind: cmdSeek, raw: "seek"}},
		{"e2", command{kind: cmdSelect, square: e2, raw: "e2"}},
		{"e2e4", command{kind: cmdMove, from: "e2", to: "e4", raw: "e2e4"}},
		{"E2 E4", command{kind: cmdMove, from: "e2", to: "e4", raw: "E2 E4"}},
		{"e2-e4", command{kind: cmdMove, from: "e2", to: "e4", raw: "e2-e4"}},
		{"z9", command{kind: cmdUnknown, raw: "z9"}},
		{"e2e9", command{kind: cmdUnknown, raw: "e2e9"}},
		{"castle now", command{kind: cmdUnknown, raw: "castle now"}},
		{"quit", command{kind: cmdQuit, raw: "quit"}},
	}
	for _, tc := range cases {
		if got := parseCommand(tc.in); got != tc.want {
			t.Fatalf("parseCommand(%q)=%+v want %+v", tc.in, got, tc.want)
		}
	}
}
