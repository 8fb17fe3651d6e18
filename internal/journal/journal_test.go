package journal

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/muratoffalex/discordctl/internal/config"
	"github.com/muratoffalex/discordctl/internal/dispatch"
	"github.com/muratoffalex/discordctl/internal/logger"
	"github.com/muratoffalex/discordctl/internal/throttle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "journal.db")
	j, err := Open(config.JournalConfig{Enabled: true, DSN: dsn}, logger.NewTestLogger())
	require.NoError(t, err)
	return j
}

func TestSaveAndRecent(t *testing.T) {
	j := openTestJournal(t)
	t.Cleanup(func() { j.Close() })
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, j.Save(ctx, Entry{
		InvocationID: "a", Tag: "t1", Command: "SendMessage", Kind: "success",
		Message: "ok", StatusCode: 200, Duration: 15 * time.Millisecond, CreatedAt: now.Add(-time.Minute),
	}))
	require.NoError(t, j.Save(ctx, Entry{
		InvocationID: "b", Tag: "t1", Command: "SendMessage", Kind: "cooldown",
		SecondsRemaining: 4, CreatedAt: now,
	}))

	entries, err := j.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "b", entries[0].InvocationID)
	assert.Equal(t, int64(4), entries[0].SecondsRemaining)
	assert.Equal(t, "a", entries[1].InvocationID)
	assert.Equal(t, 200, entries[1].StatusCode)
	assert.Equal(t, 15*time.Millisecond, entries[1].Duration)
}

func TestSaveIgnoresDuplicateInvocation(t *testing.T) {
	j := openTestJournal(t)
	t.Cleanup(func() { j.Close() })
	ctx := context.Background()

	e := Entry{InvocationID: "same", Tag: "t", Command: "KickUser", Kind: "error", CreatedAt: time.Now().UTC()}
	require.NoError(t, j.Save(ctx, e))
	require.NoError(t, j.Save(ctx, e))

	entries, err := j.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestObserveWritesAsynchronously(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "journal.db")
	j, err := Open(config.JournalConfig{DSN: dsn}, logger.NewTestLogger())
	require.NoError(t, err)
	j.Start()

	j.Observe(dispatch.Outcome{
		ID:      "inv-1",
		Tag:     "t9",
		Command: "BanUser",
		Kind:    dispatch.Error,
		Message: "Error for guild: 1 with code: 403",
		Err:     errors.New("discord api status 403"),
		At:      time.Now(),
	})
	require.NoError(t, j.Close())

	reopened, err := Open(config.JournalConfig{DSN: dsn}, logger.NewTestLogger())
	require.NoError(t, err)
	t.Cleanup(func() { reopened.Close() })

	entries, err := reopened.Recent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "inv-1", entries[0].InvocationID)
	assert.Equal(t, "error", entries[0].Kind)
	assert.Equal(t, "discord api status 403", entries[0].Error)
}

func TestPurge(t *testing.T) {
	j := openTestJournal(t)
	t.Cleanup(func() { j.Close() })
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, j.Save(ctx, Entry{InvocationID: "old", Tag: "t", Command: "c", Kind: "success", CreatedAt: now.Add(-10 * 24 * time.Hour)}))
	require.NoError(t, j.Save(ctx, Entry{InvocationID: "new", Tag: "t", Command: "c", Kind: "success", CreatedAt: now}))

	n, err := j.Purge(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	entries, err := j.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "new", entries[0].InvocationID)

	n, err = j.Purge(ctx, 0)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCloseWithoutStart(t *testing.T) {
	j := openTestJournal(t)
	j.Observe(dispatch.Outcome{ID: "x", Kind: dispatch.Success})
	assert.NoError(t, j.Close())
}

func TestObserveAfterCloseIsDropped(t *testing.T) {
	j := openTestJournal(t)
	j.Start()

	d := dispatch.New(throttle.New(), nil, dispatch.Options{Workers: 1}, logger.NewTestLogger(), j)
	d.Close()
	require.NoError(t, j.Close())

	var p *dispatch.Pending
	require.NotPanics(t, func() {
		p = d.Submit(context.Background(), dispatch.Call{Command: "SendMessage", Tag: "late"})
	})
	o, ok := p.Outcome()
	require.True(t, ok)
	assert.ErrorIs(t, o.Err, dispatch.ErrClosed)

	assert.NotPanics(t, func() {
		d.Fail(dispatch.Call{Command: "KickUser", Tag: "late"}, errors.New("bad"), "")
	})
	assert.Equal(t, int64(2), j.Dropped())
}

func TestCloseWritesEverythingObserved(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "journal.db")
	j, err := Open(config.JournalConfig{DSN: dsn}, logger.NewTestLogger())
	require.NoError(t, err)
	j.Start()

	const n = 200
	for i := range n {
		j.Observe(dispatch.Outcome{
			ID:      fmt.Sprintf("inv-%d", i),
			Tag:     "drain",
			Command: "DeleteMessage",
			Kind:    dispatch.Success,
			At:      time.Now(),
		})
	}
	require.NoError(t, j.Close())
	assert.Zero(t, j.Dropped())

	reopened, err := Open(config.JournalConfig{DSN: dsn}, logger.NewTestLogger())
	require.NoError(t, err)
	t.Cleanup(func() { reopened.Close() })

	entries, err := reopened.Recent(context.Background(), n+10)
	require.NoError(t, err)
	assert.Len(t, entries, n)
}
