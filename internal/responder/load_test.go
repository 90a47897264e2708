package responder

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRules = `
fallback:
  text: "Ask me about billing or jobs."
  quick_replies: ["Billing"]
rules:
  - topic: billing
    patterns: ["invoice", "bill(ing)?"]
    reply:
      text: "Billing questions go to finance."
      quick_replies: ["Talk to support"]
      cta: { label: "Contact Finance", path: "/contact-us" }
  - topic: jobs
    patterns: ["job"]
    reply:
      text: "See our careers page."
`

func TestLoadRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleRules), 0o600))

	rules, err := LoadRules(path)
	require.NoError(t, err)
	r := New(rules)

	assert.Equal(t, []string{"billing", "jobs"}, r.Topics())

	got := r.Respond("Where is my INVOICE")
	assert.Equal(t, "billing", got.Topic)
	require.NotNil(t, got.CTA)
	assert.Equal(t, "Contact Finance", got.CTA.Label)

	got = r.Respond("a job and a bill")
	assert.Equal(t, "billing", got.Topic, "first rule wins")

	got = r.Respond("job")
	assert.Nil(t, got.CTA)
	assert.Empty(t, got.QuickReplies)

	got = r.Respond("weather")
	assert.Equal(t, "Ask me about billing or jobs.", got.Text)

	// Empty reply was not overridden.
	assert.Equal(t, "Please type a question so I can help.", r.Respond(" ").Text)
}

func TestLoadRules_MissingFile(t *testing.T) {
	_, err := LoadRules(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read rules file")
}

func TestParseRules_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"malformed", "rules: [", "parse rules"},
		{"no rules", "rules: []", "no rules"},
		{"no topic", `rules: [{patterns: ["a"], reply: {text: "x"}}]`, "topic is required"},
		{"reserved", `rules: [{topic: fallback, patterns: ["a"], reply: {text: "x"}}]`, "reserved"},
		{"duplicate", `rules: [{topic: a, patterns: ["a"], reply: {text: "x"}}, {topic: a, patterns: ["b"], reply: {text: "y"}}]`, "duplicate topic"},
		{"no patterns", `rules: [{topic: a, reply: {text: "x"}}]`, "at least one pattern"},
		{"bad regexp", `rules: [{topic: a, patterns: ["("], reply: {text: "x"}}]`, "pattern"},
		{"no text", `rules: [{topic: a, patterns: ["a"], reply: {}}]`, "reply text is required"},
		{"half cta", `rules: [{topic: a, patterns: ["a"], reply: {text: "x", cta: {label: "Go"}}}]`, "both label and path"},
		{"bad fallback", "fallback: {quick_replies: [a]}\nrules: [{topic: a, patterns: [\"a\"], reply: {text: \"x\"}}]", "fallback reply"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseRules([]byte(tc.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoadRules_ExampleMatchesBuiltin(t *testing.T) {
	rules, err := LoadRules("../../rules.example.yaml")
	require.NoError(t, err)
	fromFile := New(rules)

	assert.Equal(t, Default().Topics(), fromFile.Topics())
	for _, in := range []string{"", "hello", "Good evening", "pricing for careers", "tell me about AI",
		"he said nothing", "any vacancies?", "where", "human please", "weather"} {
		assert.Equal(t, Respond(in), fromFile.Respond(in), in)
	}
}
