package repository

import (
	"context"
	"sync"

	"github.com/k-fujimoto/careerchat/pkg/model"
)

// Repository defines the interface for transcript persistence. The store
// is the single source of truth; the UI is derived from Watch snapshots.
type Repository interface {
	// Append writes one immutable message to the user-scoped ordered
	// collection with a server-assigned timestamp. An empty userID is a
	// logged no-op.
	Append(ctx context.Context, userID model.UserID, text string, role model.Role) (*model.Message, error)

	// Watch opens a subscription delivering the full ordered transcript
	// on every change, starting with the current contents.
	Watch(ctx context.Context, userID model.UserID) (*Subscription, error)

	// Close releases any underlying client resources
	Close() error
}

// Subscription is a restartable, unbounded stream of transcript snapshots.
// Updates is closed when the subscription ends; Err reports the terminal
// error, if any, once Updates is closed.
type Subscription struct {
	updates chan model.Transcript

	mu  sync.Mutex
	err error

	stopOnce sync.Once
	stop     func()
}

func newSubscription(updates chan model.Transcript, stop func()) *Subscription {
	return &Subscription{
		updates: updates,
		stop:    stop,
	}
}

// Updates returns the snapshot channel. Every delivery is a full ordered
// transcript, not a delta.
func (s *Subscription) Updates() <-chan model.Transcript {
	return s.updates
}

// Err returns the error that terminated the subscription, or nil
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Subscription) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// Stop ends the subscription. Safe to call more than once.
func (s *Subscription) Stop() {
	s.stopOnce.Do(s.stop)
}
