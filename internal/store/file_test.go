package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileTermsStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "terms.json")
	f := NewFileTermsStore(path)

	ok, err := f.HasAccepted(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, ok, "missing file means nobody accepted")

	require.NoError(t, f.Accept(ctx, "s1"))
	require.NoError(t, f.Accept(ctx, "s2"))

	// A second store on the same file sees the persisted flag.
	other := NewFileTermsStore(path)
	ok, err = other.HasAccepted(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, ok)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.NoError(t, other.Revoke(ctx, "s1"))
	ok, _ = f.HasAccepted(ctx, "s1")
	assert.False(t, ok)
	ok, _ = f.HasAccepted(ctx, "s2")
	assert.True(t, ok)

	require.NoError(t, f.Revoke(ctx, "unknown"))
}

func TestFileTermsStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "terms.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewFileTermsStore(path).HasAccepted(context.Background(), "s")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode terms file")
}

func TestFileTermsStore_RequiresSession(t *testing.T) {
	f := NewFileTermsStore(filepath.Join(t.TempDir(), "terms.json"))
	assert.Error(t, f.Accept(context.Background(), ""))
}
