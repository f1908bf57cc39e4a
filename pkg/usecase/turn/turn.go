package turn

import (
	"context"
	_ "embed"
	"errors"
	"strings"
	"sync"

	"github.com/k-fujimoto/careerchat/pkg/adapter"
	"github.com/k-fujimoto/careerchat/pkg/model"
	"github.com/k-fujimoto/careerchat/pkg/repository"
	"github.com/k-fujimoto/careerchat/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

//go:embed prompt/persona.md
var personaPrompt string

// State of the turn orchestrator. A submission is accepted only in
// StateIdle; the guard lives here, not in any UI control.
type State string

const (
	StateIdle               State = "idle"
	StateSubmitting         State = "submitting"
	StateAwaitingHistory    State = "awaiting-history"
	StateAwaitingGeneration State = "awaiting-generation"
)

// ErrBusy is returned when a submission arrives while a turn is in flight
var ErrBusy = goerr.New("a turn is already in flight")

// Notifier is the single-slot, last-message-wins notification surface
type Notifier interface {
	Notify(message string)
	Clear()
}

// Feedback receives the binary busy flag tied to orchestrator state
type Feedback interface {
	SetBusy(busy bool)
	FocusInput()
}

const (
	noticeNoReply = "Sorry, I couldn't come up with a response. Please try again."
	noticeGeneric = "Something went wrong. Please try again."
)

// Orchestrator runs one conversation turn at a time: persist the user
// message, rebuild context from the store, call the generation endpoint,
// persist the reply.
type Orchestrator struct {
	repo     repository.Repository
	gemini   adapter.Gemini
	session  *model.Session
	notifier Notifier
	feedback Feedback

	mu    sync.Mutex
	state State
}

// NewInput contains parameters for creating an Orchestrator
type NewInput struct {
	Repo     repository.Repository
	Gemini   adapter.Gemini
	Session  *model.Session
	Notifier Notifier
	Feedback Feedback
}

func New(input NewInput) *Orchestrator {
	return &Orchestrator{
		repo:     input.Repo,
		gemini:   input.Gemini,
		session:  input.Session,
		notifier: input.Notifier,
		feedback: input.Feedback,
		state:    StateIdle,
	}
}

// State returns the current orchestrator state
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = s
}

// Submit runs one full turn. Empty input and an unresolved session are
// silent no-ops; a turn already in flight returns ErrBusy. Whatever the
// outcome, the orchestrator ends idle with the busy flag cleared and
// focus returned to the input.
func (o *Orchestrator) Submit(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" || !o.session.Ready() {
		return nil
	}

	o.mu.Lock()
	if o.state != StateIdle {
		o.mu.Unlock()
		return ErrBusy
	}
	o.state = StateSubmitting
	o.mu.Unlock()

	o.notifier.Clear()
	o.feedback.SetBusy(true)
	defer func() {
		o.feedback.SetBusy(false)
		o.feedback.FocusInput()
		o.setState(StateIdle)
	}()

	userID := o.session.UserID()
	userMsg, err := o.repo.Append(ctx, userID, text, model.RoleUser)
	if err != nil {
		o.notifier.Notify(noticeGeneric)
		return goerr.Wrap(err, "failed to persist user message")
	}

	o.setState(StateAwaitingHistory)
	prior := o.readHistory(ctx, userID, userMsg)
	prompt := BuildPrompt(prior, text)

	o.setState(StateAwaitingGeneration)
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(personaPrompt, ""),
	}
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}

	resp, err := o.gemini.GenerateContent(ctx, contents, config)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) && apiErr.Message != "" {
			o.notifier.Notify(apiErr.Message)
		} else {
			o.notifier.Notify(noticeGeneric)
		}
		return goerr.Wrap(err, "generation request failed")
	}

	reply := responseText(resp)
	if reply == "" {
		o.notifier.Notify(noticeNoReply)
		return nil
	}

	if _, err := o.repo.Append(ctx, userID, reply, model.RoleAI); err != nil {
		o.notifier.Notify(noticeGeneric)
		return goerr.Wrap(err, "failed to persist reply")
	}

	return nil
}

// readHistory does a one-shot read of the stored transcript by opening a
// fresh subscription and taking its first delivery. A failure degrades to
// an empty context; the turn proceeds.
func (o *Orchestrator) readHistory(ctx context.Context, userID model.UserID, exclude *model.Message) model.Transcript {
	sub, err := o.repo.Watch(ctx, userID)
	if err != nil {
		logging.From(ctx).Warn("history read failed, continuing with empty context", "error", err)
		return nil
	}
	defer sub.Stop()

	snapshot, ok := <-sub.Updates()
	if !ok {
		logging.From(ctx).Warn("history read failed, continuing with empty context", "error", sub.Err())
		return nil
	}

	if exclude == nil {
		return snapshot
	}
	prior := make(model.Transcript, 0, len(snapshot))
	for _, msg := range snapshot {
		if msg.ID == exclude.ID {
			continue
		}
		prior = append(prior, msg)
	}
	return prior
}

// responseText extracts the generated text from the first candidate
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var parts []string
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			parts = append(parts, part.Text)
		}
	}
	return strings.Join(parts, "\n")
}
