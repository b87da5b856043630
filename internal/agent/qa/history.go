package qa

import (
	"strings"

	"github.com/docuchat/server/internal/agent/model"
)

// sanitizeHistory copies the caller-supplied history, dropping entries that
// carry no content. A nil or otherwise unusable history degrades to empty;
// it must never fail the workflow.
func sanitizeHistory(history []model.Exchange) []model.Exchange {
	if len(history) == 0 {
		return nil
	}
	out := make([]model.Exchange, 0, len(history))
	for _, ex := range history {
		if strings.TrimSpace(ex.Question) == "" && strings.TrimSpace(ex.Answer) == "" {
			continue
		}
		out = append(out, ex)
	}
	return out
}

// formatHistory renders prior exchanges, most recent last, for prompt
// consumption.
func formatHistory(history []model.Exchange) string {
	if len(history) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("<conversation_context>\n")
	for _, ex := range history {
		b.WriteString("User: " + ex.Question + "\n")
		b.WriteString("Assistant: " + ex.Answer + "\n")
	}
	b.WriteString("</conversation_context>")
	return b.String()
}
