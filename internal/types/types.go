package types

import (
	"lifewood-support-backend/internal/responder"
	"lifewood-support-backend/internal/store"
)

type ChatRequest struct {
	Message string `json:"message"`
}

type ChatResponse struct {
	SessionID  string          `json:"sessionId"`
	Reply      responder.Reply `json:"reply"`
	Transcript string          `json:"transcript,omitempty"`
}

type TermsRequest struct {
	Accepted bool `json:"accepted"`
}

type TermsResponse struct {
	SessionID string `json:"sessionId"`
	Accepted  bool   `json:"accepted"`
}

type TranscriptResponse struct {
	SessionID string          `json:"sessionId"`
	Messages  []store.Message `json:"messages"`
}

type ErrorResponse struct {
	Error  string          `json:"error"`
	Intent *IntentResponse `json:"intent,omitempty"`
}

// IntentResponse tells the widget which UI action to take, e.g. showing
// the terms modal.
type IntentResponse struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
}

const IntentRequireTerms = "require_terms"
