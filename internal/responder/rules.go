package responder

import "regexp"

// Topic names produced by the default table.
const (
	TopicEmpty    = "empty"
	TopicGreeting = "greeting"
	TopicPricing  = "pricing"
	TopicServices = "services"
	TopicCareers  = "careers"
	TopicOffices  = "offices"
	TopicSupport  = "support"
	TopicFallback = "fallback"
)

// DefaultQuickReplies are offered whenever no topic narrows the follow-ups.
var DefaultQuickReplies = []string{"AI Services", "Pricing", "Careers", "Talk to support"}

// Template is the canned part of a reply.
type Template struct {
	Text         string
	QuickReplies []string
	CTA          *CTA
}

// TopicRule pairs a pattern set with the reply returned when any pattern matches.
type TopicRule struct {
	Topic    string
	Patterns []*regexp.Regexp
	Reply    Template
}

// Matches reports whether any pattern matches the normalized utterance.
func (r TopicRule) Matches(normalized string) bool {
	for _, p := range r.Patterns {
		if p.MatchString(normalized) {
			return true
		}
	}
	return false
}

// Rules is an ordered rule table plus the replies for blank and unmatched input.
// Order matters: the first matching rule wins.
type Rules struct {
	Empty    Template
	Fallback Template
	Topics   []TopicRule
}

func patterns(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, e := range exprs {
		out = append(out, regexp.MustCompile("(?i)"+e))
	}
	return out
}

func defaultEmpty() Template {
	return Template{Text: "Please type a question so I can help.", QuickReplies: DefaultQuickReplies}
}

func defaultFallback() Template {
	return Template{
		Text:         "I can help with services, pricing, careers, offices, and support routing.",
		QuickReplies: DefaultQuickReplies,
	}
}

// DefaultRules returns the built-in table. Each call builds a new value.
func DefaultRules() Rules {
	return Rules{
		Empty:    defaultEmpty(),
		Fallback: defaultFallback(),
		Topics: []TopicRule{
			{
				Topic:    TopicGreeting,
				Patterns: patterns(`^hi\b`, `^hello\b`, `^hey\b`, `good (morning|afternoon|evening)`),
				Reply: Template{
					Text:         "Hello. I can help with services, careers, locations, and contact support.",
					QuickReplies: DefaultQuickReplies,
				},
			},
			{
				Topic:    TopicPricing,
				Patterns: patterns(`price`, `cost`, `quote`, `budget`, `pricing`),
				Reply: Template{
					Text:         "Pricing depends on scope, volume, and delivery model. I can direct you to our support team for a tailored quote.",
					QuickReplies: []string{"Talk to support", "AI Services"},
					CTA:          &CTA{Label: "Contact Support", Path: "/contact-us"},
				},
			},
			{
				Topic:    TopicServices,
				Patterns: patterns(`service`, `annotation`, `dataset`, `\bai\b`, `llm`, `data collection`),
				Reply: Template{
					Text:         "Lifewood supports AI data services across text, image, audio, and video workflows.",
					QuickReplies: []string{"Pricing", "Talk to support"},
					CTA:          &CTA{Label: "View AI Services", Path: "/ai-services"},
				},
			},
			{
				Topic:    TopicCareers,
				Patterns: patterns(`career`, `job`, `hiring`, `vacanc`, `apply`),
				Reply: Template{
					Text:         "You can explore open roles and opportunities on our Careers page.",
					QuickReplies: []string{"Talk to support"},
					CTA:          &CTA{Label: "Open Careers", Path: "/careers"},
				},
			},
			{
				Topic:    TopicOffices,
				Patterns: patterns(`office`, `location`, `country`, `where`),
				Reply: Template{
					Text:         "We operate globally across multiple countries and centers. You can view our footprint on the Offices page.",
					QuickReplies: []string{"Talk to support"},
					CTA:          &CTA{Label: "Open Offices", Path: "/offices"},
				},
			},
			{
				Topic:    TopicSupport,
				Patterns: patterns(`support`, `human`, `agent`, `contact`, `help`),
				Reply: Template{
					Text:         "I can connect you with our customer support team.",
					QuickReplies: []string{"AI Services", "Careers"},
					CTA:          &CTA{Label: "Go to Contact Us", Path: "/contact-us"},
				},
			},
		},
	}
}
