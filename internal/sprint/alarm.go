package sprint

import (
	"sync"
	"time"

	"github.com/sadopc/focussplit/internal/logger"
)

// Beeper plays one alarm sound.
type Beeper interface {
	Beep() error
}

// alarm beeps immediately and then on every period until stopped.
type alarm struct {
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func startAlarm(b Beeper, every time.Duration) *alarm {
	a := &alarm{stop: make(chan struct{}), done: make(chan struct{})}
	go func() {
		defer close(a.done)
		ticker := time.NewTicker(every)
		defer ticker.Stop()

		warned := false
		ring := func() {
			if err := b.Beep(); err != nil && !warned {
				logger.Warn("alarm sound failed", "err", err)
				warned = true
			}
		}

		ring()
		for {
			select {
			case <-a.stop:
				return
			case <-ticker.C:
				ring()
			}
		}
	}()
	return a
}

// Stop silences the alarm and waits for its goroutine to exit.
func (a *alarm) Stop() {
	a.stopOnce.Do(func() { close(a.stop) })
	<-a.done
}
