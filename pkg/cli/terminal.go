package cli

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/chzyer/readline"
	"github.com/k-fujimoto/careerchat/pkg/model"
)

// transcriptWidth is the column the right-aligned user messages end at
const transcriptWidth = 80

// terminalView is the terminal rendition of the chat surface: spinner as
// the loading indicator, a single-slot notice line, and a full-replace
// transcript redraw on every store change.
type terminalView struct {
	w    io.Writer
	rl   *readline.Instance
	spin *spinner.Spinner

	mu     sync.Mutex
	notice string
}

func newTerminalView(w io.Writer, rl *readline.Instance) *terminalView {
	spin := spinner.New(spinner.CharSets[14], 100*time.Millisecond,
		spinner.WithWriter(w), spinner.WithSuffix(" thinking..."))

	return &terminalView{
		w:    w,
		rl:   rl,
		spin: spin,
	}
}

// Render clears the view and reprints the whole transcript in timestamp
// order. User messages go to the right edge, everything else to the left.
func (v *terminalView) Render(transcript model.Transcript) {
	v.mu.Lock()
	defer v.mu.Unlock()

	fmt.Fprint(v.w, "\033[H\033[2J")
	for _, msg := range transcript {
		if msg.Role == model.RoleUser {
			fmt.Fprintf(v.w, "%*s\n", transcriptWidth, "You: "+msg.Text)
		} else {
			fmt.Fprintf(v.w, "Advisor: %s\n", msg.Text)
		}
	}
	if v.notice != "" {
		fmt.Fprintf(v.w, "\n[!] %s (press Enter to dismiss)\n", v.notice)
	}
	v.rl.Refresh()
}

// Notify replaces any previous notice; last message wins
func (v *terminalView) Notify(message string) {
	v.mu.Lock()
	v.notice = message
	v.mu.Unlock()

	fmt.Fprintf(v.w, "\n[!] %s (press Enter to dismiss)\n", message)
}

func (v *terminalView) Clear() {
	v.mu.Lock()
	v.notice = ""
	v.mu.Unlock()
}

func (v *terminalView) SetBusy(busy bool) {
	if busy {
		v.spin.Start()
	} else {
		v.spin.Stop()
	}
}

func (v *terminalView) FocusInput() {
	v.rl.Refresh()
}

// dismiss clears the notice on an empty input line
func (v *terminalView) dismiss() {
	v.mu.Lock()
	hadNotice := v.notice != ""
	v.notice = ""
	v.mu.Unlock()

	if hadNotice {
		v.rl.Refresh()
	}
}
