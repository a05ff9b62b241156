package bot

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/innotech/hrbot/internal/assistant"
	"github.com/innotech/hrbot/internal/models"
	"github.com/innotech/hrbot/internal/storage"
)

var (
	ErrInvalidState     = errors.New("event not applicable in current state")
	ErrInvalidDateRange = errors.New("end date is before start date")
)

type State string

const (
	StateIdle               State = "idle"
	StateAwaitingLeaveDates State = "awaiting_leave_dates"
	StateAwaitingFreeText   State = "awaiting_free_text"
	StateAwaitingAssistant  State = "awaiting_assistant"
	StateOfferingEscalation State = "offering_escalation"
)

type Intent string

const (
	IntentLeave      Intent = "leave"
	IntentIssue      Intent = "issue"
	IntentHarassment Intent = "harassment"
	IntentEscalate   Intent = "escalate"
)

var intentLabels = map[Intent]string{
	IntentLeave:      "Request Leave",
	IntentIssue:      "Personal/Professional Issue",
	IntentHarassment: "Report Harassment",
	IntentEscalate:   "Escalate to HR",
}

// Conversation is the chat orchestrator for one employee session. It is a
// single-threaded cooperative state machine: every handler is one complete,
// atomic step triggered by one UI event, and the caller must not invoke
// handlers concurrently.
type Conversation struct {
	store     storage.Storage
	assistant assistant.Assistant // nil when no AI backend is configured
	logger    *zap.Logger
	user      models.Identity

	state   State
	intent  Intent
	history []assistant.Turn
}

func NewConversation(store storage.Storage, asst assistant.Assistant, user models.Identity, logger *zap.Logger) *Conversation {
	return &Conversation{
		store:     store,
		assistant: asst,
		logger:    logger,
		user:      user,
		state:     StateIdle,
	}
}

func (c *Conversation) State() State { return c.state }

// Welcome opens the session with the greeting line.
func (c *Conversation) Welcome(ctx context.Context) string {
	text := fmt.Sprintf("Hi %s! I'm your HR assistant. How can I help you today? Choose an option from the sidebar or type your request.", c.user.Name)
	c.record(ctx, "bot", text)
	return text
}

// HandleIntent reacts to one of the sidebar quick actions. Only valid while
// idle.
func (c *Conversation) HandleIntent(ctx context.Context, intent Intent) ([]string, error) {
	if c.state != StateIdle {
		return nil, ErrInvalidState
	}
	label, ok := intentLabels[intent]
	if !ok {
		return nil, fmt.Errorf("%w: unknown intent %q", ErrInvalidState, intent)
	}

	c.record(ctx, "user", "Selected: "+label)
	c.intent = intent

	var replies []string
	switch intent {
	case IntentLeave:
		c.emit(ctx, &replies, "I'll help you request time off. Please select your leave dates below.")
		c.state = StateAwaitingLeaveDates
	case IntentIssue:
		if c.assistant != nil {
			c.emit(ctx, &replies, "I'm connected to the AI knowledge base. Please describe your issue, and I'll do my best to help!")
			c.state = StateAwaitingAssistant
			c.history = nil
		} else {
			c.emit(ctx, &replies, "Please describe your issue, and I'll forward it to the HR team.")
			c.state = StateAwaitingFreeText
		}
	case IntentHarassment:
		c.emit(ctx, &replies, "I'm sorry you're experiencing this. Your safety is our priority. Please provide details about the incident. This will be escalated immediately and handled with complete confidentiality.")
		c.state = StateAwaitingFreeText
	case IntentEscalate:
		c.emit(ctx, &replies, "I'll escalate your request to the HR team. Please describe what you need help with.")
		c.state = StateAwaitingFreeText
	}

	return replies, nil
}

// HandleText processes a free-text submission in the current state.
func (c *Conversation) HandleText(ctx context.Context, text string) ([]string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	switch c.state {
	case StateIdle:
		c.record(ctx, "user", text)
		var replies []string
		if answer, ok := policyAnswer(text); ok {
			c.emit(ctx, &replies, answer)
		} else {
			c.emit(ctx, &replies, "I'm not sure how to handle that. Please use the buttons in the sidebar to start a specific request, or ask me about company policies.")
		}
		return replies, nil

	case StateAwaitingFreeText:
		c.record(ctx, "user", text)
		return c.submitFreeText(ctx, text)

	case StateAwaitingAssistant:
		c.record(ctx, "user", text)
		return c.consultAssistant(ctx, text)

	default:
		return nil, ErrInvalidState
	}
}

func (c *Conversation) submitFreeText(ctx context.Context, text string) ([]string, error) {
	draft := storage.RequestDraft{
		Message:   text,
		Escalated: c.intent == IntentHarassment || c.intent == IntentEscalate,
	}
	switch c.intent {
	case IntentHarassment:
		draft.Type = models.RequestHarassment
	case IntentEscalate:
		draft.Type = models.RequestGeneral
	default:
		draft.Type = models.RequestIssue
	}

	var replies []string
	req, err := c.store.SubmitRequest(ctx, draft, c.user)
	if err != nil {
		c.logger.Error("failed to save request",
			zap.Error(err),
			zap.String("user_id", c.user.ID))
		c.emit(ctx, &replies, "Sorry, I couldn't save your request. Please try again.")
		return replies, nil
	}

	if draft.Type == models.RequestHarassment {
		c.emit(ctx, &replies, fmt.Sprintf("Thank you. Your request has been escalated to HR immediately. They will reach out within 24 hours. Reference: #%s", shortRef(req.ID)))
	} else {
		c.emit(ctx, &replies, fmt.Sprintf("Thank you. Your request has been submitted to HR. Reference: #%s", shortRef(req.ID)))
	}
	c.reset()
	return replies, nil
}

func (c *Conversation) consultAssistant(ctx context.Context, text string) ([]string, error) {
	var replies []string

	reply, err := c.assistant.Reply(ctx, c.history, text)
	c.history = append(c.history, assistant.Turn{Role: assistant.RoleUser, Text: text})
	if err != nil {
		// Surfaced inline so the user can retry; the state is retained.
		c.logger.Error("assistant call failed",
			zap.Error(err),
			zap.String("user_id", c.user.ID))
		c.emit(ctx, &replies, fmt.Sprintf("Connection Error: %v. Please check your API Key.", err))
		return replies, nil
	}

	c.history = append(c.history, assistant.Turn{Role: assistant.RoleAssistant, Text: reply.Text})
	c.emit(ctx, &replies, reply.Text)

	if reply.ShouldEscalate {
		c.emit(ctx, &replies, "Would you like me to escalate this ticket to HR now?")
		c.state = StateOfferingEscalation
	}
	return replies, nil
}

// HandleLeaveDates completes the leave form. The day count is inclusive of
// both endpoints.
func (c *Conversation) HandleLeaveDates(ctx context.Context, start, end time.Time) ([]string, error) {
	if c.state != StateAwaitingLeaveDates {
		return nil, ErrInvalidState
	}

	var replies []string
	days, err := LeaveDays(start, end)
	if err != nil {
		c.emit(ctx, &replies, "The end date cannot be before the start date. Please try again.")
		return replies, nil
	}

	c.record(ctx, "user", fmt.Sprintf("Requesting leave from %s to %s",
		start.Format("2006-01-02"), end.Format("2006-01-02")))

	draft := storage.RequestDraft{
		Type: models.RequestLeave,
		Message: fmt.Sprintf("Leave Request: %s to %s (%d days)",
			start.Format("2006-01-02"), end.Format("2006-01-02"), days),
		Dates: &models.DateRange{Start: start, End: end},
	}
	req, err := c.store.SubmitRequest(ctx, draft, c.user)
	if err != nil {
		c.logger.Error("failed to save leave request",
			zap.Error(err),
			zap.String("user_id", c.user.ID))
		c.emit(ctx, &replies, "Sorry, I couldn't save your request. Please try again.")
		return replies, nil
	}

	c.emit(ctx, &replies, fmt.Sprintf("Your leave request has been submitted for %d days. HR will review and respond within 24 hours. Reference: #%s", days, shortRef(req.ID)))
	c.reset()
	return replies, nil
}

// HandleConfirm answers the escalation offer. solved=true closes the thread
// without a ticket; solved=false files an escalated request.
func (c *Conversation) HandleConfirm(ctx context.Context, solved bool) ([]string, error) {
	if c.state != StateOfferingEscalation {
		return nil, ErrInvalidState
	}

	var replies []string
	if solved {
		c.record(ctx, "user", "Yes, that helped.")
		c.emit(ctx, &replies, "Great! I'm glad I could help. Let me know if you need anything else.")
		c.reset()
		return replies, nil
	}

	c.record(ctx, "user", "No, I need to talk to someone.")
	req, err := c.store.SubmitRequest(ctx, storage.RequestDraft{
		Type:      models.RequestIssue,
		Message:   "Escalated: AI could not resolve issue.",
		Escalated: true,
	}, c.user)
	if err != nil {
		c.logger.Error("failed to save escalated request",
			zap.Error(err),
			zap.String("user_id", c.user.ID))
		c.emit(ctx, &replies, "Sorry, I couldn't save your request. Please try again.")
		c.reset()
		return replies, nil
	}

	c.emit(ctx, &replies, fmt.Sprintf("Understood. I've escalated this to HR immediately. Reference: #%s", shortRef(req.ID)))
	c.reset()
	return replies, nil
}

// EndChat leaves an ongoing assistant conversation.
func (c *Conversation) EndChat(ctx context.Context) ([]string, error) {
	if c.state != StateAwaitingAssistant {
		return nil, ErrInvalidState
	}

	var replies []string
	c.emit(ctx, &replies, "Conversation ended. How else can I help?")
	c.reset()
	return replies, nil
}

// NoteHRMessage appends a delivered HR notification to the replay log.
func (c *Conversation) NoteHRMessage(ctx context.Context, msg *models.Message) string {
	text := fmt.Sprintf("Message from HR: %s", msg.Message)
	c.record(ctx, "HR", text)
	return text
}

func (c *Conversation) reset() {
	c.state = StateIdle
	c.intent = ""
	c.history = nil
}

func (c *Conversation) emit(ctx context.Context, replies *[]string, text string) {
	c.record(ctx, "bot", text)
	*replies = append(*replies, text)
}

func (c *Conversation) record(ctx context.Context, from, text string) {
	err := c.store.AppendHistory(ctx, c.user.ID, models.ChatEntry{
		ID:        uuid.New().String(),
		From:      from,
		Text:      text,
		Timestamp: time.Now(),
	})
	if err != nil {
		c.logger.Error("failed to append chat history",
			zap.Error(err),
			zap.String("user_id", c.user.ID))
	}
}

// LeaveDays counts the days in a leave span, inclusive of both endpoints.
func LeaveDays(start, end time.Time) (int, error) {
	if end.Before(start) {
		return 0, ErrInvalidDateRange
	}
	return int(math.Ceil(end.Sub(start).Hours()/24)) + 1, nil
}

// policyAnswer is the keyword knowledge base consulted for idle free text.
func policyAnswer(text string) (string, bool) {
	lower := strings.ToLower(text)
	if !strings.Contains(lower, "policy") && !strings.Contains(lower, "rule") {
		return "", false
	}

	switch {
	case strings.Contains(lower, "leave") || strings.Contains(lower, "vacation"):
		return "Our Leave Policy: Employees are entitled to 20 days of paid leave per year. Requests > 3 days need manager approval.", true
	case strings.Contains(lower, "remote") || strings.Contains(lower, "wfh") || strings.Contains(lower, "home"):
		return "Remote Work Policy: We embrace a hybrid model. Employees can work from home up to 3 days a week with manager coordination.", true
	case strings.Contains(lower, "sick"):
		return "Sick Leave: You have 10 sick days annually. A medical certificate is required for absences longer than 2 consecutive days.", true
	default:
		return "I can answer questions about Leave, Remote Work, and Sick policies. What would you like to know?", true
	}
}

func shortRef(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
