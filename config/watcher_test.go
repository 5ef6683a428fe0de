package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestWatcher_UnchangedFileIsIgnored(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "comparer:\n  backend: apollo\n")

	w := NewWatcher(path, nil)
	changed, err := w.Check()
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "comparer:\n  backend: apollo\n")

	w := NewWatcher(path, nil, WithWatcherLogger(zap.NewNop()))
	var got *Config
	w.OnReload(func(cfg *Config) { got = cfg })

	writeConfig(t, path, "comparer:\n  backend: nacos\nfetch:\n  concurrency: 2\n")
	changed, err := w.Check()
	require.NoError(t, err)
	assert.True(t, changed)
	require.NotNil(t, got)
	assert.Equal(t, "nacos", got.Comparer.Backend)
	assert.Equal(t, 2, got.Fetch.Concurrency)

	// 第二次检查不再触发
	changed, err = w.Check()
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestWatcher_InvalidConfigKeepsPrevious(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "comparer:\n  backend: apollo\n")

	w := NewWatcher(path, nil)
	called := false
	w.OnReload(func(*Config) { called = true })

	writeConfig(t, path, "comparer:\n  backend: zookeeper\n")
	changed, err := w.Check()
	assert.Error(t, err)
	assert.False(t, changed)
	assert.False(t, called)
}

func TestWatcher_FileCreatedLater(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	w := NewWatcher(path, nil)
	changed, err := w.Check()
	require.NoError(t, err)
	assert.False(t, changed)

	writeConfig(t, path, "log:\n  level: debug\n")
	changed, err = w.Check()
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestWatcher_RunStopsWithContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "comparer:\n  backend: apollo\n")

	w := NewWatcher(path, nil, WithPollInterval(10*time.Millisecond))

	var (
		mu       sync.Mutex
		reloaded *Config
	)
	w.OnReload(func(cfg *Config) {
		mu.Lock()
		defer mu.Unlock()
		reloaded = cfg
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	writeConfig(t, path, "comparer:\n  backend: nacos\n")
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return reloaded != nil && reloaded.Comparer.Backend == "nacos"
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}
