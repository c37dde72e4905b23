package transport

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dropFile writes content under a temporary name and renames it into dir.
func dropFile(t *testing.T, dir, name, content string) {
	t.Helper()
	tmp := filepath.Join(dir, "."+name+".tmp")
	require.NoError(t, os.WriteFile(tmp, []byte(content), 0600))
	require.NoError(t, os.Rename(tmp, filepath.Join(dir, name)))
}

func runSpool(t *testing.T, dir string, settle time.Duration) (*collector, context.CancelFunc, <-chan error) {
	t.Helper()
	s := NewSpool(dir, testLogger())
	s.settle = settle
	c := &collector{}
	s.OnBackgroundMessage(c.handle)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	return c, cancel, done
}

func TestSpool_DrainsExistingFiles(t *testing.T) {
	dir := t.TempDir()
	dropFile(t, dir, "001.json", `{"notification":{"title":"first"}}`)
	dropFile(t, dir, "002.json", `{"notification":{"title":"second"}}`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0600))

	c, cancel, done := runSpool(t, dir, 50*time.Millisecond)
	defer cancel()

	assert.Eventually(t, func() bool { return c.count() == 2 }, 2*time.Second, 10*time.Millisecond)

	msgs := c.messages()
	assert.Equal(t, "first", *msgs[0].Notification.Title)
	assert.Equal(t, "second", *msgs[1].Notification.Title)

	_, err := os.Stat(filepath.Join(dir, "001.json"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "notes.txt"))
	assert.NoError(t, err)

	cancel()
	assert.NoError(t, <-done)
}

func TestSpool_WatchesNewFiles(t *testing.T) {
	dir := t.TempDir()
	c, cancel, done := runSpool(t, dir, 50*time.Millisecond)
	defer cancel()

	// Give the watcher a moment to register.
	time.Sleep(100 * time.Millisecond)
	dropFile(t, dir, "recall.json", `{"notification":{"title":"Recall Alert","body":"Product X recalled"}}`)

	assert.Eventually(t, func() bool { return c.count() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "Recall Alert", *c.messages()[0].Notification.Title)

	assert.Eventually(t, func() bool {
		entries, _ := os.ReadDir(dir)
		return len(entries) == 0
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
	assert.Equal(t, 1, c.count())
}

func TestSpool_RenamedIntoPlace(t *testing.T) {
	dir := t.TempDir()
	c, cancel, done := runSpool(t, dir, 50*time.Millisecond)
	defer cancel()

	tmp := filepath.Join(dir, ".recall.json.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte(`{"notification":{"title":"Recall Alert"}}`), 0600))

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 0, c.count())
	_, err := os.Stat(tmp)
	require.NoError(t, err)

	require.NoError(t, os.Rename(tmp, filepath.Join(dir, "recall.json")))

	assert.Eventually(t, func() bool { return c.count() == 1 }, 2*time.Second, 10*time.Millisecond)
	msgs := c.messages()
	require.NotNil(t, msgs[0])
	require.NotNil(t, msgs[0].Notification)
	assert.Equal(t, "Recall Alert", *msgs[0].Notification.Title)

	cancel()
	assert.NoError(t, <-done)
}

func TestSpool_WaitsForWriterToFinish(t *testing.T) {
	dir := t.TempDir()
	c, cancel, done := runSpool(t, dir, 300*time.Millisecond)
	defer cancel()

	time.Sleep(100 * time.Millisecond)
	f, err := os.Create(filepath.Join(dir, "a.json"))
	require.NoError(t, err)
	_, err = f.WriteString(`{"notification":{"title":"Rec`)
	require.NoError(t, err)
	require.NoError(t, f.Sync())

	time.Sleep(100 * time.Millisecond)
	_, err = f.WriteString(`all Alert"}}`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	assert.Eventually(t, func() bool { return c.count() == 1 }, 3*time.Second, 10*time.Millisecond)
	msgs := c.messages()
	require.NotNil(t, msgs[0], "partially written file was consumed")
	assert.Equal(t, "Recall Alert", *msgs[0].Notification.Title)

	cancel()
	assert.NoError(t, <-done)
	assert.Equal(t, 1, c.count())
}

func TestIsSpoolFile(t *testing.T) {
	assert.True(t, isSpoolFile("/spool/a.json"))
	assert.False(t, isSpoolFile("/spool/.a.json"))
	assert.False(t, isSpoolFile("/spool/a.json.tmp"))
	assert.False(t, isSpoolFile(strings.Repeat("x", 3)))
}
