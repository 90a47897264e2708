package responder

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// NoTopic is returned when the model cannot place an utterance.
const NoTopic = "none"

const classifierSystem = `You route questions for the Lifewood website support assistant.
Pick exactly one topic for the user's message from this list: %s.
Reply with "none" if no topic fits. Output ONLY a JSON object like {"topic": "careers"}.`

// Classifier asks a chat model to label utterances the rule table left unmatched.
// It only picks among known topics; reply text always comes from the rule table.
type Classifier struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

func NewClassifier(client *openai.Client, model string) *Classifier {
	return &Classifier{client: client, model: model, timeout: 10 * time.Second}
}

// Classify returns one of topics or NoTopic.
func (c *Classifier) Classify(ctx context.Context, utterance string, topics []string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0.1,
		MaxTokens:   20,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: fmt.Sprintf(classifierSystem, strings.Join(topics, ", "))},
			{Role: openai.ChatMessageRoleUser, Content: strings.TrimSpace(utterance)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("classify: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("classify: no choices")
	}
	return parseTopic(resp.Choices[0].Message.Content, topics), nil
}

// parseTopic accepts a bare label, a JSON object, or a JSON object wrapped in prose.
func parseTopic(raw string, topics []string) string {
	label := strings.TrimSpace(raw)
	var out struct {
		Topic string `json:"topic"`
	}
	if err := json.Unmarshal([]byte(label), &out); err == nil {
		label = out.Topic
	} else if first, last := strings.Index(label, "{"), strings.LastIndex(label, "}"); first >= 0 && last > first {
		if err := json.Unmarshal([]byte(label[first:last+1]), &out); err == nil {
			label = out.Topic
		}
	}
	label = strings.ToLower(strings.Trim(strings.TrimSpace(label), `"'.`))
	for _, t := range topics {
		if label == t {
			return t
		}
	}
	return NoTopic
}
