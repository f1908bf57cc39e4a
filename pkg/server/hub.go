package server

import (
	"sync"

	"github.com/k-fujimoto/careerchat/pkg/model"
)

// Event is one server-sent event: a name and a JSON-encodable payload
type Event struct {
	Name string
	Data any
}

// Message is the wire form of a stored message. Side carries the display
// mapping: "right" for user messages, "left" for everything else.
type Message struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Role      string `json:"role"`
	Side      string `json:"side"`
	CreatedAt string `json:"createdAt"`
}

func toWireMessages(transcript model.Transcript) []Message {
	out := make([]Message, 0, len(transcript))
	for _, msg := range transcript {
		side := "left"
		if msg.Role == model.RoleUser {
			side = "right"
		}
		out = append(out, Message{
			ID:        string(msg.ID),
			Text:      msg.Text,
			Role:      string(msg.Role),
			Side:      side,
			CreatedAt: msg.CreatedAt.UTC().Format("2006-01-02T15:04:05.000000Z"),
		})
	}
	return out
}

// Hub is the browser-facing rendition of the UI feedback layer. It keeps
// the latest transcript, busy flag and notice, and fans every change out
// to SSE subscribers. It implements the orchestrator's Notifier/Feedback
// and the synchronizer's Renderer.
type Hub struct {
	mu          sync.Mutex
	transcript  []Message
	busy        bool
	notice      string
	subscribers map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{
		transcript:  []Message{},
		subscribers: make(map[chan Event]struct{}),
	}
}

// Render replaces the visible transcript wholesale
func (h *Hub) Render(transcript model.Transcript) {
	h.mu.Lock()
	h.transcript = toWireMessages(transcript)
	ev := Event{Name: "transcript", Data: h.transcript}
	h.broadcastLocked(ev)
	h.mu.Unlock()
}

// Notify replaces any previous notice; last message wins
func (h *Hub) Notify(message string) {
	h.mu.Lock()
	h.notice = message
	h.broadcastLocked(Event{Name: "notice", Data: map[string]string{"message": message}})
	h.mu.Unlock()
}

func (h *Hub) Clear() {
	h.mu.Lock()
	h.notice = ""
	h.broadcastLocked(Event{Name: "notice-clear", Data: map[string]string{}})
	h.mu.Unlock()
}

func (h *Hub) SetBusy(busy bool) {
	h.mu.Lock()
	h.busy = busy
	h.broadcastLocked(Event{Name: "busy", Data: map[string]bool{"busy": busy}})
	h.mu.Unlock()
}

// FocusInput is a no-op on this surface; the browser owns focus
func (h *Hub) FocusInput() {}

// Messages returns the latest rendered transcript
func (h *Hub) Messages() []Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.transcript
}

// Notice returns the current notice, empty when dismissed
func (h *Hub) Notice() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.notice
}

func (h *Hub) Busy() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.busy
}

// Subscribe registers an SSE consumer. The returned channel is primed
// with the current state so a newly attached browser renders immediately.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)

	h.mu.Lock()
	ch <- Event{Name: "transcript", Data: h.transcript}
	ch <- Event{Name: "busy", Data: map[string]bool{"busy": h.busy}}
	if h.notice != "" {
		ch <- Event{Name: "notice", Data: map[string]string{"message": h.notice}}
	}
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subscribers[ch]; ok {
			delete(h.subscribers, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// broadcastLocked drops events for subscribers that cannot keep up; the
// next transcript snapshot supersedes anything they missed
func (h *Hub) broadcastLocked(ev Event) {
	for ch := range h.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
}
