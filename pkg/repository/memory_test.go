package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/k-fujimoto/careerchat/pkg/model"
	"github.com/k-fujimoto/careerchat/pkg/repository"
	"github.com/m-mizutani/gt"
)

func TestMemoryAppendOrdering(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	defer repo.Close()
	userID := model.UserID("u1")

	first, err := repo.Append(ctx, userID, "Hi", model.RoleUser)
	gt.NoError(t, err)
	gt.V(t, first).NotNil()
	gt.NotEqual(t, first.ID, model.MessageID(""))

	second, err := repo.Append(ctx, userID, "Hello!", model.RoleAI)
	gt.NoError(t, err)

	// Timestamps are server-assigned and strictly increasing
	gt.True(t, second.CreatedAt.After(first.CreatedAt))

	sub, err := repo.Watch(ctx, userID)
	gt.NoError(t, err)
	defer sub.Stop()

	snapshot := <-sub.Updates()
	gt.A(t, snapshot).Length(2)
	gt.Equal(t, snapshot[0].Text, "Hi")
	gt.Equal(t, snapshot[1].Text, "Hello!")
}

func TestMemoryAppendWithoutUser(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	defer repo.Close()

	// No resolved user: logged no-op, nothing stored
	msg, err := repo.Append(ctx, "", "orphan", model.RoleUser)
	gt.NoError(t, err)
	gt.V(t, msg).Nil()
}

func TestMemoryWatchDeliversChanges(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	defer repo.Close()
	userID := model.UserID("u1")

	sub, err := repo.Watch(ctx, userID)
	gt.NoError(t, err)
	defer sub.Stop()

	gt.A(t, <-sub.Updates()).Length(0)

	_, err = repo.Append(ctx, userID, "Hi", model.RoleUser)
	gt.NoError(t, err)

	select {
	case snapshot := <-sub.Updates():
		gt.A(t, snapshot).Length(1)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
}

func TestMemoryWatchCoalesces(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	defer repo.Close()
	userID := model.UserID("u1")

	sub, err := repo.Watch(ctx, userID)
	gt.NoError(t, err)
	defer sub.Stop()

	// Not consuming between writes: only the latest snapshot remains
	for _, text := range []string{"one", "two", "three"} {
		_, err := repo.Append(ctx, userID, text, model.RoleUser)
		gt.NoError(t, err)
	}

	snapshot := <-sub.Updates()
	gt.A(t, snapshot).Length(3)
}

func TestMemoryWatchStop(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	defer repo.Close()
	userID := model.UserID("u1")

	sub, err := repo.Watch(ctx, userID)
	gt.NoError(t, err)

	sub.Stop()
	sub.Stop() // idempotent

	// Channel drains its pending snapshot and closes
	<-sub.Updates()
	_, ok := <-sub.Updates()
	gt.False(t, ok)
	gt.NoError(t, sub.Err())
}

func TestMemoryWatchCanceledContext(t *testing.T) {
	repo := repository.NewMemory()
	defer repo.Close()
	userID := model.UserID("u1")

	ctx, cancel := context.WithCancel(context.Background())
	sub, err := repo.Watch(ctx, userID)
	gt.NoError(t, err)

	cancel()

	// The subscription ends once the context is gone
	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-sub.Updates():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("subscription did not close on context cancel")
		}
	}
}

func TestMemoryWatchIsolatesUsers(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	defer repo.Close()

	_, err := repo.Append(ctx, "alice", "hi from alice", model.RoleUser)
	gt.NoError(t, err)

	sub, err := repo.Watch(ctx, "bob")
	gt.NoError(t, err)
	defer sub.Stop()

	gt.A(t, <-sub.Updates()).Length(0)
}
