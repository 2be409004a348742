package presenter

import (
	"fmt"
	"io"
	"strings"

	"github.com/park285/cheese-chess-client/internal/board"
	"github.com/park285/cheese-chess-client/internal/session"
)

// Presenter writes formatted output to a terminal.
type Presenter struct {
	w io.Writer
	f *Formatter
}

func NewPresenter(w io.Writer, f *Formatter) *Presenter {
	return &Presenter{w: w, f: f}
}

// Render prints the board and the status block. Black sees the board from
// its own side in a peer game.
func (p *Presenter) Render(snap session.Snapshot) error {
	if p == nil {
		return nil
	}
	flip := snap.Status.Remote && snap.Status.PlayerColor == board.Black
	var sb strings.Builder
	if snap.Status.State != session.StateLanding {
		sb.WriteString(p.f.Board(snap, flip))
		sb.WriteString("\n\n")
	}
	sb.WriteString(p.f.Status(snap))
	sb.WriteString("\n")
	_, err := io.WriteString(p.w, sb.String())
	return err
}

func (p *Presenter) History(snap session.Snapshot) error {
	return p.Message(p.f.History(snap.History))
}

func (p *Presenter) Error(err error) error {
	return p.Message(p.f.Error(err))
}

func (p *Presenter) Help() error {
	return p.Message(p.f.Help())
}

func (p *Presenter) UnknownCommand(cmd string) error {
	return p.Message(p.f.UnknownCommand(cmd))
}

func (p *Presenter) Message(text string) error {
	if p == nil {
		return nil
	}
	if text = strings.TrimSpace(text); text == "" {
		return nil
	}
	_, err := fmt.Fprintln(p.w, text)
	return err
}
