package responder

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

type ctaSpec struct {
	Label string `yaml:"label"`
	Path  string `yaml:"path"`
}

type templateSpec struct {
	Text         string   `yaml:"text"`
	QuickReplies []string `yaml:"quick_replies"`
	CTA          *ctaSpec `yaml:"cta"`
}

// RulesSpec is the on-disk YAML layout of a rule table.
type RulesSpec struct {
	Empty    *templateSpec `yaml:"empty"`
	Fallback *templateSpec `yaml:"fallback"`
	Rules    []struct {
		Topic    string       `yaml:"topic"`
		Patterns []string     `yaml:"patterns"`
		Reply    templateSpec `yaml:"reply"`
	} `yaml:"rules"`
}

// LoadRules reads a YAML rule table from path.
func LoadRules(path string) (Rules, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read rules file: %w", err)
	}
	return ParseRules(b)
}

// ParseRules compiles a YAML rule table. Omitted empty/fallback replies use the defaults.
func ParseRules(b []byte) (Rules, error) {
	var spec RulesSpec
	if err := yaml.Unmarshal(b, &spec); err != nil {
		return Rules{}, fmt.Errorf("parse rules: %w", err)
	}
	if len(spec.Rules) == 0 {
		return Rules{}, fmt.Errorf("rules file defines no rules")
	}

	out := Rules{Empty: defaultEmpty(), Fallback: defaultFallback()}
	if spec.Empty != nil {
		t, err := spec.Empty.compile()
		if err != nil {
			return Rules{}, fmt.Errorf("empty reply: %w", err)
		}
		out.Empty = t
	}
	if spec.Fallback != nil {
		t, err := spec.Fallback.compile()
		if err != nil {
			return Rules{}, fmt.Errorf("fallback reply: %w", err)
		}
		out.Fallback = t
	}

	seen := make(map[string]bool, len(spec.Rules))
	for i, r := range spec.Rules {
		topic := strings.TrimSpace(r.Topic)
		if topic == "" {
			return Rules{}, fmt.Errorf("rule %d: topic is required", i)
		}
		if topic == TopicEmpty || topic == TopicFallback {
			return Rules{}, fmt.Errorf("rule %d (%s): topic name is reserved", i, topic)
		}
		if seen[topic] {
			return Rules{}, fmt.Errorf("rule %d (%s): duplicate topic", i, topic)
		}
		seen[topic] = true
		if len(r.Patterns) == 0 {
			return Rules{}, fmt.Errorf("rule %d (%s): at least one pattern is required", i, topic)
		}
		compiled := make([]*regexp.Regexp, 0, len(r.Patterns))
		for _, p := range r.Patterns {
			re, err := regexp.Compile("(?i)" + p)
			if err != nil {
				return Rules{}, fmt.Errorf("rule %d (%s): pattern %q: %w", i, topic, p, err)
			}
			compiled = append(compiled, re)
		}
		t, err := r.Reply.compile()
		if err != nil {
			return Rules{}, fmt.Errorf("rule %d (%s): %w", i, topic, err)
		}
		out.Topics = append(out.Topics, TopicRule{Topic: topic, Patterns: compiled, Reply: t})
	}
	return out, nil
}

func (s templateSpec) compile() (Template, error) {
	text := strings.TrimSpace(s.Text)
	if text == "" {
		return Template{}, fmt.Errorf("reply text is required")
	}
	t := Template{Text: text, QuickReplies: append([]string{}, s.QuickReplies...)}
	if s.CTA != nil {
		label, path := strings.TrimSpace(s.CTA.Label), strings.TrimSpace(s.CTA.Path)
		if (label == "") != (path == "") {
			return Template{}, fmt.Errorf("cta needs both label and path")
		}
		if label != "" {
			t.CTA = &CTA{Label: label, Path: path}
		}
	}
	return t, nil
}
