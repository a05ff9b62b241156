// Package assistant wraps the external text-generation collaborator behind a
// typed reply so the escalation marker convention stays in one place.
package assistant

import (
	"context"
	"strings"
)

// escalationMarker is the reserved tag the model appends when a human
// specialist should take over. It never reaches the user.
const escalationMarker = "[ESCALATE]"

// systemPrompt pins the assistant persona and the company facts it may use.
const systemPrompt = `You are an HR Assistant for InnoTech, a forward-thinking technology company.
Your goal is to assist employees with common HR questions (benefits, leave, payroll, workplace culture) professionally, empathetically, and concisely.

RULES:
1. Be helpful and polite. Use the employee's name if known.
2. Keep answers short (under 3 sentences) unless a detailed explanation is required.
3. If the user asks about a serious issue (harassment, legal dispute, severe conflict), or if you do not know the answer, you MUST append the tag "[ESCALATE]" to the end of your response.
4. Do not make up specific policy details (like exact dollar amounts) if you don't know them. Instead, say "I can check the policy manual for you, or you can escalate this to a specialist."

CONTEXT:
- Company: InnoTech
- Payroll Cutoff: 25th of the month
- Insurance Provider: BlueCross (Group ID: 554433)`

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one prior exchange in the conversation history.
type Turn struct {
	Role string
	Text string
}

// Reply is the typed assistant response with the marker already stripped.
type Reply struct {
	Text           string
	ShouldEscalate bool
}

// Assistant generates a reply to the user's text given the conversation so
// far. Implementations may block for unbounded wall-clock time; callers pass
// a context and must stay responsive while a call is outstanding.
type Assistant interface {
	Reply(ctx context.Context, history []Turn, userText string) (Reply, error)
}

// parseReply lifts the raw model output into the typed form. A reply that is
// nothing but the marker falls back to a canned handoff line.
func parseReply(raw string) Reply {
	text := strings.TrimSpace(raw)
	if !strings.Contains(text, escalationMarker) {
		return Reply{Text: text}
	}

	text = strings.TrimSpace(strings.ReplaceAll(text, escalationMarker, ""))
	if text == "" {
		text = "I think this is best handled by a human specialist."
	}
	return Reply{Text: text, ShouldEscalate: true}
}
