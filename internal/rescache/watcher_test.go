package rescache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scout/internal/research"
)

func TestWatchProjectInvalidatesOnChange(t *testing.T) {
	root := t.TempDir()
	c := newTestCache(t, time.Minute)
	q := research.Question{Text: "what runs here", ProjectRoot: root}
	c.Put(q, testAnswer(q.Text))

	require.NoError(t, c.WatchProject(root))

	require.NoError(t, os.WriteFile(filepath.Join(root, "docker-compose.yml"), []byte("services: {}\n"), 0o644))

	require.Eventually(t, func() bool {
		_, ok := c.Get(q)
		return !ok
	}, 3*time.Second, 25*time.Millisecond, "a changed project file should evict its answers")
}

func TestWatchProjectIgnoresScoutDir(t *testing.T) {
	root := t.TempDir()
	c := newTestCache(t, time.Minute)
	q := research.Question{Text: "what runs here", ProjectRoot: root}
	c.Put(q, testAnswer(q.Text))

	require.NoError(t, c.WatchProject(root))

	// Log and config churn under .scout must not evict answers.
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".scout"), 0o755))
	time.Sleep(200 * time.Millisecond)

	_, ok := c.Get(q)
	assert.True(t, ok)
}

func TestWatchProjectMissingRoot(t *testing.T) {
	c := newTestCache(t, time.Minute)
	err := c.WatchProject(filepath.Join(t.TempDir(), "does-not-exist"))
	assert.Error(t, err)
}
