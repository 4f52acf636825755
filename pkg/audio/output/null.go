// ABOUTME: Silent audio device
// ABOUTME: Advances the graph clock in real time without producing sound
package output

import (
	"context"
	"time"
)

// Null renders and discards frames on a ticker
type Null struct {
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewNull creates a silent device ticking every 10ms
func NewNull() *Null {
	return &Null{interval: 10 * time.Millisecond}
}

// Start begins advancing g's clock
func (n *Null) Start(g *Graph) error {
	ctx, cancel := context.WithCancel(context.Background())
	n.cancel = cancel
	n.done = make(chan struct{})

	go func() {
		defer close(n.done)
		ticker := time.NewTicker(n.interval)
		defer ticker.Stop()

		last := time.Now()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				g.Advance(now.Sub(last).Seconds())
				last = now
			}
		}
	}()
	return nil
}

// Close stops the ticker
func (n *Null) Close() error {
	if n.cancel == nil {
		return nil
	}
	n.cancel()
	<-n.done
	n.cancel = nil
	return nil
}
