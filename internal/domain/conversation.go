// Package domain contains core domain types for the intake advisor.
package domain

import (
	"time"
)

// Stage is a named phase of the intake workflow. It gates which data and
// actions are expected next. Stages normally advance but the resolver may
// move a conversation backward when previously valid data is invalidated.
type Stage string

const (
	StageGreeting           Stage = "greeting"
	StageQualification      Stage = "qualification"
	StageDocumentCollection Stage = "document_collection"
	StageApplication        Stage = "application"
	StageUnderwriting       Stage = "underwriting"
	StageClosing            Stage = "closing"
)

// Channel identifies how a borrower reached the advisor.
type Channel string

const (
	ChannelWeb   Channel = "web"
	ChannelSMS   Channel = "sms"
	ChannelVoice Channel = "voice"
	ChannelEmail Channel = "email"
)

// ValidChannel reports whether c is a known intake channel.
func ValidChannel(c Channel) bool {
	switch c {
	case ChannelWeb, ChannelSMS, ChannelVoice, ChannelEmail:
		return true
	}
	return false
}

// Speaker identifies who produced a turn.
type Speaker string

const (
	SpeakerUser    Speaker = "user"
	SpeakerAdvisor Speaker = "advisor"
)

// Turn is a single utterance in the conversation history.
type Turn struct {
	Speaker   Speaker   `json:"speaker"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Conversation holds the full accumulated state of one borrower's
// interaction with the advisor. It is owned exclusively by the session
// store; all access goes through the store's per-session serialization.
type Conversation struct {
	SessionID string  `json:"session_id"`
	Channel   Channel `json:"channel"`
	Stage     Stage   `json:"stage"`

	// History is append-only. It is never mutated or reordered; it serves
	// both as the language-model context window and as the audit trail.
	History []Turn `json:"history"`

	// Data maps canonical field names to extracted values. Merges are
	// last-write-wins per field. Values that fail validation are dropped
	// before stage resolution, so anything here is trusted.
	Data map[string]any `json:"extracted_data"`

	// Documents is the set of document types already satisfied.
	Documents map[string]bool `json:"required_documents"`

	// QualificationScore is derived from Data on every turn, never
	// persisted as independent truth.
	QualificationScore float64 `json:"qualification_score"`

	// Weak references to externally owned records, set once the
	// persistence boundary creates them.
	BorrowerRef    string `json:"borrower_ref,omitempty"`
	PropertyRef    string `json:"property_ref,omitempty"`
	ApplicationRef string `json:"application_ref,omitempty"`

	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`
}

// NewConversation creates an empty conversation in the greeting stage.
func NewConversation(sessionID string, channel Channel) *Conversation {
	now := time.Now()
	return &Conversation{
		SessionID:    sessionID,
		Channel:      channel,
		Stage:        StageGreeting,
		History:      []Turn{},
		Data:         make(map[string]any),
		Documents:    make(map[string]bool),
		CreatedAt:    now,
		LastActiveAt: now,
	}
}

// Append adds a turn to the history and bumps the activity timestamp.
func (c *Conversation) Append(speaker Speaker, text string) {
	now := time.Now()
	c.History = append(c.History, Turn{Speaker: speaker, Text: text, Timestamp: now})
	c.LastActiveAt = now
}

// RecentTurns returns the last n turns of history.
func (c *Conversation) RecentTurns(n int) []Turn {
	if n >= len(c.History) {
		return c.History
	}
	return c.History[len(c.History)-n:]
}

// Has reports whether a field is present in the extracted data.
func (c *Conversation) Has(field string) bool {
	_, ok := c.Data[field]
	return ok
}

// Number returns a field as float64, accepting any numeric JSON shape.
func (c *Conversation) Number(field string) (float64, bool) {
	v, ok := c.Data[field]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// Text returns a field as its string form, empty if absent.
func (c *Conversation) Text(field string) string {
	v, ok := c.Data[field]
	if !ok {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// IdleFor reports whether the conversation has seen no activity for ttl.
func (c *Conversation) IdleFor(ttl time.Duration) bool {
	return time.Since(c.LastActiveAt) > ttl
}
