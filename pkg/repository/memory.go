package repository

import (
	"context"
	"sync"
	"time"

	"github.com/k-fujimoto/careerchat/pkg/model"
	"github.com/k-fujimoto/careerchat/pkg/utils/logging"
)

// memoryRepo is an in-memory Repository used for development and tests.
// It honors the same contract as the Firestore implementation: messages
// get a strictly increasing timestamp on write and subscribers receive
// full ordered snapshots.
type memoryRepo struct {
	mu       sync.Mutex
	messages map[model.UserID]model.Transcript
	watchers map[model.UserID][]*memoryWatcher
	lastTS   time.Time
	closed   bool
}

type memoryWatcher struct {
	sub     *Subscription
	updates chan model.Transcript
}

// NewMemory creates an in-memory repository
func NewMemory() Repository {
	return &memoryRepo{
		messages: make(map[model.UserID]model.Transcript),
		watchers: make(map[model.UserID][]*memoryWatcher),
	}
}

// nextTimestamp emulates the store's server-assigned monotonic marker
func (r *memoryRepo) nextTimestamp() time.Time {
	ts := time.Now()
	if !ts.After(r.lastTS) {
		ts = r.lastTS.Add(time.Microsecond)
	}
	r.lastTS = ts
	return ts
}

func (r *memoryRepo) Append(ctx context.Context, userID model.UserID, text string, role model.Role) (*model.Message, error) {
	if userID == "" {
		logging.From(ctx).Error("append without resolved user, dropping message", "role", role)
		return nil, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	msg := &model.Message{
		ID:        model.NewMessageID(),
		Text:      text,
		Role:      role,
		CreatedAt: r.nextTimestamp(),
	}
	r.messages[userID] = append(r.messages[userID], msg)

	snapshot := r.snapshotLocked(userID)
	for _, w := range r.watchers[userID] {
		w.deliver(snapshot)
	}

	return msg, nil
}

func (r *memoryRepo) snapshotLocked(userID model.UserID) model.Transcript {
	stored := r.messages[userID]
	snapshot := make(model.Transcript, len(stored))
	copy(snapshot, stored)
	return snapshot
}

// deliver coalesces pending snapshots: only the broadcaster writes to the
// channel and it holds the repository lock, so the post-drain send cannot
// block.
func (w *memoryWatcher) deliver(snapshot model.Transcript) {
	select {
	case w.updates <- snapshot:
	default:
		select {
		case <-w.updates:
		default:
		}
		w.updates <- snapshot
	}
}

func (r *memoryRepo) Watch(ctx context.Context, userID model.UserID) (*Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	w := &memoryWatcher{updates: make(chan model.Transcript, 1)}
	w.sub = newSubscription(w.updates, func() {
		r.removeWatcher(userID, w)
	})
	r.watchers[userID] = append(r.watchers[userID], w)

	// Initial delivery, mirroring the Firestore snapshot behavior
	w.deliver(r.snapshotLocked(userID))

	context.AfterFunc(ctx, w.sub.Stop)

	return w.sub, nil
}

func (r *memoryRepo) removeWatcher(userID model.UserID, target *memoryWatcher) {
	r.mu.Lock()
	defer r.mu.Unlock()

	watchers := r.watchers[userID]
	for i, w := range watchers {
		if w == target {
			r.watchers[userID] = append(watchers[:i], watchers[i+1:]...)
			close(target.updates)
			return
		}
	}
}

func (r *memoryRepo) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	for userID, watchers := range r.watchers {
		for _, w := range watchers {
			close(w.updates)
		}
		delete(r.watchers, userID)
	}
	return nil
}
