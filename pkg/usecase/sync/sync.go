package sync

import (
	"context"

	"github.com/k-fujimoto/careerchat/pkg/model"
	"github.com/k-fujimoto/careerchat/pkg/repository"
	"github.com/m-mizutani/goerr/v2"
)

// Renderer receives the full ordered transcript on every change. This is
// a full-replace render, not incremental; the previous view is discarded.
type Renderer interface {
	Render(transcript model.Transcript)
}

// Notifier surfaces subscription failures to the user
type Notifier interface {
	Notify(message string)
}

const noticeSyncLost = "Lost connection to the conversation. Recent messages may be missing."

// Synchronizer keeps a renderer in lockstep with the stored transcript
// through a standing subscription.
type Synchronizer struct {
	repo     repository.Repository
	renderer Renderer
	notifier Notifier
}

func New(repo repository.Repository, renderer Renderer, notifier Notifier) *Synchronizer {
	return &Synchronizer{
		repo:     repo,
		renderer: renderer,
		notifier: notifier,
	}
}

// Run blocks, re-rendering on every snapshot until ctx is canceled or the
// subscription fails. On failure the last render stays as-is.
func (s *Synchronizer) Run(ctx context.Context, userID model.UserID) error {
	sub, err := s.repo.Watch(ctx, userID)
	if err != nil {
		s.notifier.Notify(noticeSyncLost)
		return goerr.Wrap(err, "failed to open message subscription")
	}
	defer sub.Stop()

	for snapshot := range sub.Updates() {
		s.renderer.Render(snapshot)
	}

	if err := sub.Err(); err != nil && ctx.Err() == nil {
		s.notifier.Notify(noticeSyncLost)
		return goerr.Wrap(err, "message subscription ended")
	}
	return nil
}
