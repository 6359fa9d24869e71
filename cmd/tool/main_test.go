package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baechuer/account-service/internal/domain"
	"github.com/baechuer/account-service/internal/infrastructure/filestore"
)

var toolNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func seedDir(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	s, err := filestore.New(dir)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.Create(ctx, "old@example.com", domain.Record{
		Email: "old@example.com", Username: "old", Password: "pw", Code: "111111",
		CreatedTime: toolNow.Add(-48 * time.Hour),
	}))
	require.NoError(t, s.Create(ctx, "new@example.com", domain.Record{
		Email: "new@example.com", Username: "new", Password: "pw", Code: "222222",
		CreatedTime: toolNow.Add(-time.Hour),
	}))
	require.NoError(t, s.Create(ctx, "done@example.com", domain.Record{
		Email: "done@example.com", Username: "done", Password: "$2a$hash", Verified: true,
		CreatedTime: toolNow.Add(-72 * time.Hour),
	}))
	require.NoError(t, s.Create(ctx, "guest", domain.Record{
		Email: "guest@demo.local", Username: "guest", Demo: true,
		CreatedTime: toolNow.Add(-72 * time.Hour),
	}))
	return dir
}

func runTool(t *testing.T, args ...string) (int, string, string) {
	t.Helper()

	var out, errOut bytes.Buffer
	code := run(context.Background(), args, &out, &errOut, func() time.Time { return toolNow })
	return code, out.String(), errOut.String()
}

func TestList(t *testing.T) {
	dir := seedDir(t)

	code, out, _ := runTool(t, "-dir", dir, "list")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "KEY")
	assert.Contains(t, out, "guest")
	assert.Contains(t, out, "demo")
	assert.Contains(t, out, "finalized")
	assert.Contains(t, out, "pending")
}

func TestShow_RedactsSecrets(t *testing.T) {
	dir := seedDir(t)

	code, out, _ := runTool(t, "-dir", dir, "show", "old@example.com")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "username: old")
	assert.NotContains(t, out, "111111")
	assert.Contains(t, out, "<redacted>")

	code, _, errOut := runTool(t, "-dir", dir, "show", "ghost@example.com")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "user_not_found")
}

func TestPurgeDemo(t *testing.T) {
	dir := seedDir(t)

	code, out, _ := runTool(t, "-dir", dir, "purge-demo")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "deleted 1 demo record(s)")

	code, _, _ = runTool(t, "-dir", dir, "show", "guest")
	assert.Equal(t, 1, code)
}

func TestPurgePending_RespectsAge(t *testing.T) {
	dir := seedDir(t)

	code, out, _ := runTool(t, "-dir", dir, "purge-pending", "-older-than", "24h")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "deleted 1 pending record(s)")

	s, err := filestore.New(dir)
	require.NoError(t, err)
	ctx := context.Background()

	ok, err := s.Exists(ctx, "old@example.com")
	require.NoError(t, err)
	assert.False(t, ok)

	for _, k := range []string{"new@example.com", "done@example.com", "guest"} {
		ok, err := s.Exists(ctx, k)
		require.NoError(t, err)
		assert.True(t, ok, k)
	}
}

func TestUsageErrors(t *testing.T) {
	dir := t.TempDir()

	code, _, errOut := runTool(t, "-dir", dir)
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "usage")

	code, _, errOut = runTool(t, "-dir", dir, "explode")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "unknown command")

	code, _, _ = runTool(t, "-dir", dir, "show")
	assert.Equal(t, 2, code)

	code, _, _ = runTool(t, "-dir", dir, "purge-pending", "-older-than", "-1h")
	assert.Equal(t, 2, code)
}
