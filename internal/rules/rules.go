// Package rules answers "where can this piece move" for a board snapshot.
//
// The session machine only depends on Provider, so the adjacency placeholder
// and the full rules engine are interchangeable.
package rules

import (
	"fmt"
	"strings"

	"github.com/park285/cheese-chess-client/internal/board"
)

// Provider returns the destinations available to p standing on from.
// Implementations never return off-board squares or squares held by p's own colour.
type Provider interface {
	LegalDestinations(b board.Board, from board.Position, p board.Piece) []board.Position
}

// Assessment describes the position reached after a ply.
type Assessment struct {
	Check     bool
	Checkmate bool
	Stalemate bool
	SAN       string
}

// Assessor is implemented by providers that can detect check and mate.
// Providers without it leave the session's check fields inert.
type Assessor interface {
	Assess(before board.Board, from, to board.Position) Assessment
}

const (
	NameAdjacent = "adjacent"
	NameStandard = "standard"
)

// New returns the provider registered under name.
func New(name string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case NameAdjacent:
		return Adjacent{}, nil
	case "", NameStandard:
		return NewStandard(), nil
	default:
		return nil, fmt.Errorf("unknown rules provider %q", name)
	}
}
