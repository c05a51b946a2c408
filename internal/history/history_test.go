package history

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordAndRecent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	id, err := store.Record(ctx, Message{
		Repo:     "owner/repo",
		Question: "how is this structured?",
		Answer:   "three packages",
		Category: "structure",
	})
	require.NoError(t, err)
	assert.Positive(t, id)

	messages, err := store.Recent(ctx, "owner/repo", 10)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "how is this structured?", messages[0].Question)
	assert.Equal(t, "structure", messages[0].Category)
	assert.False(t, messages[0].CreatedAt.IsZero())
}

func TestRecentOrderAndLimit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := store.Record(ctx, Message{
			Repo:     "owner/repo",
			Question: fmt.Sprintf("q%d", i),
			Answer:   "a",
			Category: "general",
		})
		require.NoError(t, err)
	}

	messages, err := store.Recent(ctx, "owner/repo", 3)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "q4", messages[0].Question)
	assert.Equal(t, "q2", messages[2].Question)
}

func TestRecentFiltersByRepo(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.Record(ctx, Message{Repo: "a/a", Question: "q", Answer: "a", Category: "general"})
	require.NoError(t, err)
	_, err = store.Record(ctx, Message{Repo: "b/b", Question: "q", Answer: "a", Category: "general"})
	require.NoError(t, err)

	messages, err := store.Recent(ctx, "a/a", 10)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "a/a", messages[0].Repo)

	all, err := store.Recent(ctx, "", 10)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestClear(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.Record(ctx, Message{Repo: "a/a", Question: "q", Answer: "a", Category: "general"})
	require.NoError(t, err)
	_, err = store.Record(ctx, Message{Repo: "b/b", Question: "q", Answer: "a", Category: "general"})
	require.NoError(t, err)

	require.NoError(t, store.Clear(ctx, "a/a"))
	remaining, err := store.Recent(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "b/b", remaining[0].Repo)

	require.NoError(t, store.Clear(ctx, ""))
	remaining, err = store.Recent(ctx, "", 10)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}
