package inspection

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Poller runs fn on a fixed interval until stopped or its context ends.
type Poller struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// StartPoller starts the loop. Errors from fn are logged and do not stop it.
func StartPoller(ctx context.Context, interval time.Duration, fn func(context.Context) error, log zerolog.Logger) *Poller {
	ctx, cancel := context.WithCancel(ctx)
	p := &Poller{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(p.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := fn(ctx); err != nil && ctx.Err() == nil {
					log.Warn().Err(err).Msg("poll failed")
				}
			}
		}
	}()
	return p
}

// Stop cancels the loop and waits for it to exit. Safe to call twice.
func (p *Poller) Stop() {
	p.once.Do(p.cancel)
	<-p.done
}

// Done is closed once the loop has exited.
func (p *Poller) Done() <-chan struct{} { return p.done }
