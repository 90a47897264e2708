package store

import (
	"context"
	"time"
)

const (
	SenderBot  = "bot"
	SenderUser = "user"
)

// Message is one transcript entry.
type Message struct {
	ID           int64     `json:"id"`
	Sender       string    `json:"sender"`
	Text         string    `json:"text"`
	QuickReplies []string  `json:"quickReplies,omitempty"`
	CTALabel     string    `json:"ctaLabel,omitempty"`
	CTAPath      string    `json:"ctaPath,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Transcripts stores the conversation for each session.
// Append assigns IDs in order, starting at 0 for a new session.
// Seed stores msg only if the transcript is empty and returns the full
// transcript; concurrent callers see exactly one seeded message.
type Transcripts interface {
	Append(ctx context.Context, sessionID string, msgs ...Message) ([]Message, error)
	Seed(ctx context.Context, sessionID string, msg Message) ([]Message, error)
	Get(ctx context.Context, sessionID string) ([]Message, error)
	Clear(ctx context.Context, sessionID string) error
}

// TermsStore records which sessions accepted the assistant's terms.
type TermsStore interface {
	HasAccepted(ctx context.Context, sessionID string) (bool, error)
	Accept(ctx context.Context, sessionID string) error
	Revoke(ctx context.Context, sessionID string) error
}
