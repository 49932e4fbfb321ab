// AngelaMos | 2026
// notifier.go

package identity

import (
	"context"
	"sync"

	"github.com/carterperez-dev/reseller-console/internal/authz"
)

const notifierBuffer = 64

// Notifier is the identity provider's state-change stream. All transitions
// go through one channel, so the consumer sees them in publish order.
type Notifier struct {
	ch     chan authz.Transition
	mu     sync.RWMutex
	closed bool
}

func NewNotifier() *Notifier {
	return &Notifier{ch: make(chan authz.Transition, notifierBuffer)}
}

// Publish blocks while the buffer is full. It is a no-op once Close has
// been called.
func (n *Notifier) Publish(ctx context.Context, t authz.Transition) error {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if n.closed {
		return nil
	}

	select {
	case n.ch <- t:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (n *Notifier) Transitions() <-chan authz.Transition {
	return n.ch
}

func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.closed {
		n.closed = true
		close(n.ch)
	}
}
