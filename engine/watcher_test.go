package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// replaceFile swaps the content in with a rename so the watcher never sees a
// half written file.
func replaceFile(t *testing.T, path, content string) {
	t.Helper()
	tmp := path + ".tmp"
	require.NoError(t, os.WriteFile(tmp, []byte(content), 0o644))
	require.NoError(t, os.Rename(tmp, path))
}

func TestConfigWatcherPublishesReloads(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `log_level = "info"`)

	watcher, err := NewConfigWatcher(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- watcher.Run(ctx) }()

	replaceFile(t, path, "log_level = \"warn\"\n[renderer]\nclear_color = \"#ff0000\"\n")

	deadline := time.After(5 * time.Second)
	var got *ApplicationConfig
	for got == nil || got.Renderer.ClearColor != "#ff0000" {
		select {
		case got = <-watcher.Updates():
		case <-deadline:
			t.Fatal("no config update received")
		}
	}
	assert.Equal(t, "warn", got.LogLevel)

	cancel()
	require.NoError(t, <-done)
	_, open := <-watcher.Updates()
	assert.False(t, open)
}

func TestConfigWatcherSkipsInvalidFiles(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `log_level = "info"`)

	watcher, err := NewConfigWatcher(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watcher.Run(ctx)

	replaceFile(t, path, `log_level = "loud"`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.toml"), []byte("x"), 0o644))

	select {
	case cfg := <-watcher.Updates():
		t.Fatalf("unexpected update %+v", cfg)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestNewConfigWatcherRequiresPath(t *testing.T) {
	_, err := NewConfigWatcher("")
	assert.Error(t, err)
}
