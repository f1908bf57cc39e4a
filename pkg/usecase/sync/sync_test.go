package sync_test

import (
	"context"
	"testing"
	"time"

	"github.com/k-fujimoto/careerchat/pkg/model"
	"github.com/k-fujimoto/careerchat/pkg/repository"
	"github.com/k-fujimoto/careerchat/pkg/usecase/sync"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
)

type mockRenderer struct {
	renders chan model.Transcript
}

func newMockRenderer() *mockRenderer {
	return &mockRenderer{renders: make(chan model.Transcript, 16)}
}

func (m *mockRenderer) Render(transcript model.Transcript) {
	m.renders <- transcript
}

func (m *mockRenderer) next(t *testing.T) model.Transcript {
	t.Helper()
	select {
	case transcript := <-m.renders:
		return transcript
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for render")
		return nil
	}
}

type mockNotifier struct {
	notices chan string
}

func (m *mockNotifier) Notify(message string) {
	m.notices <- message
}

type failingRepo struct {
	repository.Repository
}

func (r *failingRepo) Watch(ctx context.Context, userID model.UserID) (*repository.Subscription, error) {
	return nil, goerr.New("subscription rejected")
}

func TestRunRendersEveryChange(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo := repository.NewMemory()
	userID := model.UserID("test-user")
	renderer := newMockRenderer()
	notifier := &mockNotifier{notices: make(chan string, 1)}

	synchronizer := sync.New(repo, renderer, notifier)
	done := make(chan error, 1)
	go func() {
		done <- synchronizer.Run(ctx, userID)
	}()

	// Initial snapshot is empty
	gt.A(t, renderer.next(t)).Length(0)

	_, err := repo.Append(ctx, userID, "Hi", model.RoleUser)
	gt.NoError(t, err)
	first := renderer.next(t)
	gt.A(t, first).Length(1)
	gt.Equal(t, first[0].Text, "Hi")

	_, err = repo.Append(ctx, userID, "Hello!", model.RoleAI)
	gt.NoError(t, err)
	second := renderer.next(t)
	gt.A(t, second).Length(2)
	gt.Equal(t, second[1].Role, model.RoleAI)

	cancel()
	gt.NoError(t, <-done)
}

func TestRunSubscriptionFailure(t *testing.T) {
	ctx := context.Background()
	repo := &failingRepo{Repository: repository.NewMemory()}
	renderer := newMockRenderer()
	notifier := &mockNotifier{notices: make(chan string, 1)}

	synchronizer := sync.New(repo, renderer, notifier)
	gt.Error(t, synchronizer.Run(ctx, "test-user"))

	select {
	case notice := <-notifier.notices:
		gt.S(t, notice).Contains("Lost connection")
	default:
		t.Fatal("expected a notification")
	}
}
