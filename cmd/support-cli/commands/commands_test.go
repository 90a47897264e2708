package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifewood-support-backend/internal/responder"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestAsk(t *testing.T) {
	out, err := run(t, "", "ask", "do", "you", "have", "any", "job", "openings")
	require.NoError(t, err)
	assert.Contains(t, out, "Careers page")
	assert.Contains(t, out, "-> Open Careers (/careers)")
	assert.Contains(t, out, "[1] Talk to support")
}

func TestAsk_JSON(t *testing.T) {
	out, err := run(t, "", "ask", "--json", "pricing for careers")
	require.NoError(t, err)

	var reply responder.Reply
	require.NoError(t, json.Unmarshal([]byte(out), &reply))
	assert.Equal(t, responder.TopicPricing, reply.Topic)
	require.NotNil(t, reply.CTA)
	assert.Equal(t, "/contact-us", reply.CTA.Path)
}

func TestAsk_NoArgsIsEmptyReply(t *testing.T) {
	out, err := run(t, "", "ask")
	require.NoError(t, err)
	assert.Contains(t, out, "Please type a question so I can help.")
}

func TestRules(t *testing.T) {
	out, err := run(t, "", "rules")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 7)
	assert.Contains(t, lines[1], "greeting")
	assert.Contains(t, lines[2], "pricing")
	assert.Contains(t, lines[6], "support")
	assert.Contains(t, lines[4], "/careers")
}

func TestRules_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	doc := "rules:\n  - topic: billing\n    patterns: [invoice]\n    reply: {text: \"Finance handles invoices.\"}\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	out, err := run(t, "", "--rules", path, "ask", "where is my invoice")
	require.NoError(t, err)
	assert.Contains(t, out, "Finance handles invoices.")

	_, err = run(t, "", "--rules", filepath.Join(t.TempDir(), "missing.yaml"), "rules")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading rules")
}

func TestChat_QuickReplyNumbers(t *testing.T) {
	// "2" picks "Pricing" from the welcome chips, then "1" picks "Talk to support".
	out, err := run(t, "2\n\n1\n/quit\n", "chat")
	require.NoError(t, err)
	assert.Contains(t, out, "How can I help today?")
	assert.Contains(t, out, "Pricing depends on scope")
	assert.Contains(t, out, "I can connect you with our customer support team.")
}

func TestChat_EOF(t *testing.T) {
	out, err := run(t, "hello", "chat")
	require.NoError(t, err)
	assert.Contains(t, out, "Hello. I can help with services")
}

func TestResolveQuickReply(t *testing.T) {
	chips := []string{"AI Services", "Pricing"}
	assert.Equal(t, "Pricing", resolveQuickReply("2", chips))
	assert.Equal(t, "3", resolveQuickReply("3", chips))
	assert.Equal(t, "0", resolveQuickReply("0", chips))
	assert.Equal(t, "careers", resolveQuickReply("careers", chips))
}

func TestVersion(t *testing.T) {
	orig := versionInfo
	defer func() { versionInfo = orig }()
	SetVersion("1.2.3", "abc123", "2026-10-01")

	out, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "support-cli 1.2.3 (commit abc123, built 2026-10-01)\n", out)
}
