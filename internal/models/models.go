package models

import "time"

type RequestType string

const (
	RequestLeave      RequestType = "leave"
	RequestIssue      RequestType = "issue"
	RequestHarassment RequestType = "harassment"
	RequestGeneral    RequestType = "general"
)

type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusApproved RequestStatus = "approved"
	StatusRejected RequestStatus = "rejected"
	StatusReplied  RequestStatus = "replied"
)

// DateRange holds the inclusive start and end of a leave request.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Request is a single HR ticket submitted through the chat flow.
type Request struct {
	ID        string        `json:"id"`
	Type      RequestType   `json:"type"`
	Message   string        `json:"message"`
	Dates     *DateRange    `json:"dates,omitempty"`
	Escalated bool          `json:"escalated"`
	Status    RequestStatus `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	UserID    string        `json:"user_id"`
	UserName  string        `json:"user_name"`
}

type MessageSender string

const (
	SenderSystem MessageSender = "system"
	SenderHR     MessageSender = "HR"
)

// Message is an HR-to-employee notification. RequestID is empty for
// broadcast messages tied only to a user.
type Message struct {
	ID        string        `json:"id"`
	RequestID string        `json:"request_id,omitempty"`
	UserID    string        `json:"user_id"`
	From      MessageSender `json:"from"`
	Message   string        `json:"message"`
	Timestamp time.Time     `json:"timestamp"`
	Read      bool          `json:"read"`
}

// ChatEntry is a display message in the conversation replay log. It is
// kept separate from Message: entries are never marked read or targeted.
type ChatEntry struct {
	ID        string    `json:"id"`
	From      string    `json:"from"` // "user", "bot" or "HR"
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Identity is an authenticated portal user.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	HR    bool   `json:"hr,omitempty"`
}

// RequestStats is the aggregate view shown on the HR dashboard.
type RequestStats struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Escalated  int `json:"escalated"`
	Leave      int `json:"leave"`
	Issues     int `json:"issues"`
	Harassment int `json:"harassment"`
}
