package rescache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scout/internal/research"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "answers.json")
	q := research.Question{Text: "what container platform do we use", ProjectRoot: "/srv/app"}
	want := testAnswer(q.Text)

	c := newTestCache(t, time.Minute)
	c.Put(q, want)
	require.NoError(t, c.SaveTo(path))

	c2 := newTestCache(t, time.Minute)
	require.NoError(t, c2.LoadFrom(path))

	got, ok := c2.Get(q)
	require.True(t, ok)
	assert.Empty(t, cmp.Diff(want, got))
}

func TestLoadMissingFile(t *testing.T) {
	c := newTestCache(t, time.Minute)
	require.NoError(t, c.LoadFrom(filepath.Join(t.TempDir(), "nope.json")))
	assert.Equal(t, 0, c.Stats().Entries)
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "answers.json")
	require.NoError(t, os.WriteFile(path, []byte("{this is not json"), 0o644))

	c := newTestCache(t, time.Minute)
	err := c.LoadFrom(path)
	require.ErrorIs(t, err, ErrCorrupt)

	// A corrupt snapshot must not poison the cache itself.
	q := research.Question{Text: "what runs here"}
	c.Put(q, testAnswer(q.Text))
	_, ok := c.Get(q)
	assert.True(t, ok)
}

func TestLoadRejectsUnknownVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "answers.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version": 99, "entries": []}`), 0o644))

	c := newTestCache(t, time.Minute)
	require.ErrorIs(t, c.LoadFrom(path), ErrCorrupt)
}

func TestLoadSkipsExpiredEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "answers.json")
	q := research.Question{Text: "what runs here"}

	c := newTestCache(t, 20*time.Millisecond)
	c.Put(q, testAnswer(q.Text))
	require.NoError(t, c.SaveTo(path))

	time.Sleep(50 * time.Millisecond)

	c2 := newTestCache(t, time.Minute)
	require.NoError(t, c2.LoadFrom(path))
	assert.Equal(t, 0, c2.Stats().Entries)
}

func TestSaveSkipsExpiredEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "answers.json")
	q := research.Question{Text: "what runs here"}

	c := newTestCache(t, 20*time.Millisecond)
	c.Put(q, testAnswer(q.Text))
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, c.SaveTo(path))

	c2 := newTestCache(t, time.Minute)
	require.NoError(t, c2.LoadFrom(path))
	assert.Equal(t, 0, c2.Stats().Entries)
}
