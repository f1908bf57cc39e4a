package turn

import (
	"strings"

	"github.com/k-fujimoto/careerchat/pkg/model"
)

// BuildPrompt assembles the generation prompt: every prior message's text
// joined by newlines in timestamp order, then the new input under a
// "User:" label.
func BuildPrompt(prior model.Transcript, input string) string {
	lines := make([]string, 0, len(prior))
	for _, msg := range prior {
		lines = append(lines, msg.Text)
	}
	return strings.Join(lines, "\n") + "\n\nUser: " + input
}
