// Package responder maps a free-text support question to one canned reply.
//
// Rules are evaluated top to bottom and the first match wins, so an utterance
// mentioning both pricing and careers resolves to pricing.
package responder

import (
	"regexp"
	"strings"
)

// CTA is a navigation link attached to a reply.
type CTA struct {
	Label string `json:"label"`
	Path  string `json:"path"`
}

// Reply is the structured answer for a single utterance.
type Reply struct {
	Text         string   `json:"text"`
	QuickReplies []string `json:"quickReplies"`
	CTA          *CTA     `json:"cta,omitempty"`
	Topic        string   `json:"topic"`
}

// Responder holds a read-only rule table and is safe for concurrent use.
type Responder struct {
	rules Rules
}

func New(rules Rules) *Responder {
	return &Responder{rules: rules}
}

var defaultResponder = New(DefaultRules())

// Default returns a responder backed by the built-in table.
func Default() *Responder { return defaultResponder }

// Respond classifies with the built-in table.
func Respond(utterance string) Reply {
	return defaultResponder.Respond(utterance)
}

// Respond never fails; unmatched input yields the fallback reply.
func (r *Responder) Respond(utterance string) Reply {
	input := strings.ToLower(strings.TrimSpace(utterance))
	if input == "" {
		return build(TopicEmpty, r.rules.Empty)
	}
	for _, rule := range r.rules.Topics {
		if rule.Matches(input) {
			return build(rule.Topic, rule.Reply)
		}
	}
	return build(TopicFallback, r.rules.Fallback)
}

// ReplyFor returns the reply of a named topic, including empty and fallback.
func (r *Responder) ReplyFor(topic string) (Reply, bool) {
	switch topic {
	case TopicEmpty:
		return build(TopicEmpty, r.rules.Empty), true
	case TopicFallback:
		return build(TopicFallback, r.rules.Fallback), true
	}
	for _, rule := range r.rules.Topics {
		if rule.Topic == topic {
			return build(rule.Topic, rule.Reply), true
		}
	}
	return Reply{}, false
}

// Topics lists the matchable topics in evaluation order.
func (r *Responder) Topics() []string {
	out := make([]string, 0, len(r.rules.Topics))
	for _, rule := range r.rules.Topics {
		out = append(out, rule.Topic)
	}
	return out
}

// Rules returns a deep copy of the rule table.
func (r *Responder) Rules() []TopicRule {
	out := make([]TopicRule, len(r.rules.Topics))
	for i, rule := range r.rules.Topics {
		rule.Patterns = append([]*regexp.Regexp(nil), rule.Patterns...)
		rule.Reply.QuickReplies = append([]string(nil), rule.Reply.QuickReplies...)
		if rule.Reply.CTA != nil {
			cta := *rule.Reply.CTA
			rule.Reply.CTA = &cta
		}
		out[i] = rule
	}
	return out
}

// Welcome is the first bot message of a new conversation.
func Welcome() Reply {
	return Reply{
		Text:         "How can I help today? You can ask about AI services, pricing, careers, or contact support.",
		QuickReplies: append([]string(nil), DefaultQuickReplies...),
		Topic:        "welcome",
	}
}

func build(topic string, t Template) Reply {
	out := Reply{
		Text:         t.Text,
		QuickReplies: append([]string{}, t.QuickReplies...),
		Topic:        topic,
	}
	if t.CTA != nil {
		cta := *t.CTA
		out.CTA = &cta
	}
	return out
}
