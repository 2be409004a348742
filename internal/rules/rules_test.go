package rules

import (
	"sort"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/park285/cheese-chess-client/internal/board"
)

func pos(t *testing.T, s string) board.Position {
	t.Helper()
	p, err := board.ToPosition(s)
	if err != nil {
		t.Fatalf("ToPosition(%q): %v", s, err)
	}
	return p
}

func notations(t *testing.T, ps []board.Position) []string {
	t.Helper()
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		s, err := board.ToNotation(p)
		if err != nil {
			t.Fatalf("provider returned off-board square %v", p)
		}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func place(b *board.Board, t *testing.T, sq string, p board.Piece) {
	t.Helper()
	at := pos(t, sq)
	b[at.Row][at.Col] = p
}

func TestAdjacentFromStart(t *testing.T) {
	b := board.Initialize()
	got := notations(t, Adjacent{}.LegalDestinations(b, pos(t, "e2"), board.Piece{Type: board.Pawn, Color: board.White}))
	want := []string{"d3", "e3", "f3"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("destinations mismatch (-want +got):\n%s", diff)
	}
}

func TestAdjacentCornerAndCapture(t *testing.T) {
	var b board.Board
	place(&b, t, "a1", board.Piece{Type: board.King, Color: board.White})
	place(&b, t, "a2", board.Piece{Type: board.Pawn, Color: board.White})
	place(&b, t, "b2", board.Piece{Type: board.Pawn, Color: board.Black})
	got := notations(t, Adjacent{}.LegalDestinations(b, pos(t, "a1"), board.Piece{Type: board.King, Color: board.White}))
	want := []string{"b1", "b2"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("destinations mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodeFEN(t *testing.T) {
	got := EncodeFEN(board.Initialize(), board.White)
	want := "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w - - 0 1"
	if got != want {
		t.Fatalf("EncodeFEN = %q; want %q", got, want)
	}
	if !strings.Contains(EncodeFEN(board.Initialize(), board.Black), " b ") {
		t.Fatalf("black to move not encoded")
	}
}

func TestStandardOpeningMoves(t *testing.T) {
	b := board.Initialize()
	s := NewStandard()

	pawn := notations(t, s.LegalDestinations(b, pos(t, "e2"), board.Piece{Type: board.Pawn, Color: board.White}))
	if diff := cmp.Diff([]string{"e3", "e4"}, pawn); diff != "" {
		t.Fatalf("pawn destinations (-want +got):\n%s", diff)
	}
	knight := notations(t, s.LegalDestinations(b, pos(t, "g1"), board.Piece{Type: board.Knight, Color: board.White}))
	if diff := cmp.Diff([]string{"f3", "h3"}, knight); diff != "" {
		t.Fatalf("knight destinations (-want +got):\n%s", diff)
	}
	if got := s.LegalDestinations(b, pos(t, "a1"), board.Piece{Type: board.Rook, Color: board.White}); len(got) != 0 {
		t.Fatalf("blocked rook should have no moves, got %v", got)
	}
	black := notations(t, s.LegalDestinations(b, pos(t, "b8"), board.Piece{Type: board.Knight, Color: board.Black}))
	if diff := cmp.Diff([]string{"a6", "c6"}, black); diff != "" {
		t.Fatalf("black knight destinations (-want +got):\n%s", diff)
	}
}

func TestStandardPinnedPiece(t *testing.T) {
	var b board.Board
	place(&b, t, "e1", board.Piece{Type: board.King, Color: board.White})
	place(&b, t, "e2", board.Piece{Type: board.Bishop, Color: board.White})
	place(&b, t, "e8", board.Piece{Type: board.Rook, Color: board.Black})
	place(&b, t, "a8", board.Piece{Type: board.King, Color: board.Black})
	got := NewStandard().LegalDestinations(b, pos(t, "e2"), board.Piece{Type: board.Bishop, Color: board.White})
	if len(got) != 0 {
		t.Fatalf("pinned bishop must not move, got %v", got)
	}
}

func TestStandardSkipsPromotion(t *testing.T) {
	var b board.Board
	place(&b, t, "e1", board.Piece{Type: board.King, Color: board.White})
	place(&b, t, "h8", board.Piece{Type: board.King, Color: board.Black})
	place(&b, t, "b7", board.Piece{Type: board.Pawn, Color: board.White})
	place(&b, t, "a8", board.Piece{Type: board.Rook, Color: board.Black})
	pawn := board.Piece{Type: board.Pawn, Color: board.White}
	if got := NewStandard().LegalDestinations(b, pos(t, "b7"), pawn); len(got) != 0 {
		t.Fatalf("last-rank pawn moves offered: %v", notations(t, got))
	}
	if a := NewStandard().Assess(b, pos(t, "b7"), pos(t, "a8")); a != (Assessment{}) {
		t.Fatalf("promotion capture assessed as %+v", a)
	}
}

func TestStandardAssessCheckmate(t *testing.T) {
	b := board.Initialize()
	for _, mv := range [][2]string{{"f2", "f3"}, {"e7", "e5"}, {"g2", "g4"}} {
		next, _, err := b.Apply(pos(t, mv[0]), pos(t, mv[1]))
		if err != nil {
			t.Fatalf("Apply %v: %v", mv, err)
		}
		b = next
	}
	a := NewStandard().Assess(b, pos(t, "d8"), pos(t, "h4"))
	if !a.Checkmate || !a.Check {
		t.Fatalf("expected checkmate, got %+v", a)
	}
	if !strings.HasPrefix(a.SAN, "Qh4") {
		t.Fatalf("SAN = %q; want Qh4#", a.SAN)
	}
}

func TestStandardAssessCheckAndStalemate(t *testing.T) {
	var b board.Board
	place(&b, t, "e1", board.Piece{Type: board.King, Color: board.White})
	place(&b, t, "a1", board.Piece{Type: board.Rook, Color: board.White})
	place(&b, t, "e8", board.Piece{Type: board.King, Color: board.Black})
	a := NewStandard().Assess(b, pos(t, "a1"), pos(t, "a8"))
	if !a.Check || a.Checkmate || a.Stalemate {
		t.Fatalf("expected plain check, got %+v", a)
	}

	var s board.Board
	place(&s, t, "a8", board.Piece{Type: board.King, Color: board.Black})
	place(&s, t, "b6", board.Piece{Type: board.King, Color: board.White})
	place(&s, t, "c1", board.Piece{Type: board.Queen, Color: board.White})
	a = NewStandard().Assess(s, pos(t, "c1"), pos(t, "c7"))
	if !a.Stalemate || a.Check {
		t.Fatalf("expected stalemate, got %+v", a)
	}
}

func TestStandardAssessRejectedMove(t *testing.T) {
	a := NewStandard().Assess(board.Initialize(), pos(t, "e2"), pos(t, "e5"))
	if a != (Assessment{}) {
		t.Fatalf("illegal ply should give zero assessment, got %+v", a)
	}
}

func TestNewProvider(t *testing.T) {
	if p, err := New("adjacent"); err != nil || p != (Adjacent{}) {
		t.Fatalf("New(adjacent) = %v, %v", p, err)
	}
	if _, err := New("standard"); err != nil {
		t.Fatalf("New(standard): %v", err)
	}
	if _, err := New("fischer"); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
	var _ Assessor = Standard{}
}
