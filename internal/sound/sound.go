// Package sound plays the break alarm.
package sound

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
)

// Bell rings the terminal bell on its writer.
type Bell struct {
	mu sync.Mutex
	w  io.Writer
}

// NewBell returns a Bell writing to w, or to stderr when w is nil. Stdout
// belongs to the TUI renderer.
func NewBell(w io.Writer) *Bell {
	if w == nil {
		w = os.Stderr
	}
	return &Bell{w: w}
}

func (b *Bell) Beep() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, err := fmt.Fprint(b.w, "\a")
	return err
}

// Player prefers the platform's sound player and falls back to the bell.
type Player struct {
	bell *Bell
}

func NewPlayer() *Player {
	return &Player{bell: NewBell(nil)}
}

func (p *Player) Beep() error {
	if playSystem() == nil {
		return nil
	}
	return p.bell.Beep()
}

// startReaped starts cmd without blocking and waits for it in the
// background so the child is reaped. The channel yields its exit error.
func startReaped(cmd *exec.Cmd) (<-chan error, error) {
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	return done, nil
}
