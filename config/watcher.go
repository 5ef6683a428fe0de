// 配置文件变更监听器实现。
//
// 轮询文件修改时间与大小，变化后重新加载并回调。
package config

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// --- 监听器类型定义 ---

// Watcher 监听配置文件，内容变化且校验通过后回调新配置。
// 新配置加载失败时保留旧配置，只记录告警。
type Watcher struct {
	mu sync.Mutex

	path         string
	loader       *Loader
	pollInterval time.Duration

	lastMod  time.Time
	lastSize int64
	seen     bool

	callbacks []func(*Config)
	logger    *zap.Logger
}

// WatcherOption 监听器选项
type WatcherOption func(*Watcher)

// WithPollInterval 设置轮询间隔
func WithPollInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.pollInterval = d
		}
	}
}

// WithWatcherLogger 设置日志
func WithWatcherLogger(logger *zap.Logger) WatcherOption {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// NewWatcher 创建监听器，loader 为 nil 时使用带默认校验的加载器
func NewWatcher(path string, loader *Loader, opts ...WatcherOption) *Watcher {
	if loader == nil {
		loader = NewLoader().WithValidator((*Config).Validate)
	}
	w := &Watcher{
		path:         path,
		loader:       loader.WithConfigPath(path),
		pollInterval: 2 * time.Second,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With(zap.String("component", "config_watcher"), zap.String("path", path))

	if info, err := os.Stat(path); err == nil {
		w.lastMod, w.lastSize, w.seen = info.ModTime(), info.Size(), true
	}
	return w
}

// OnReload 注册配置重载回调
func (w *Watcher) OnReload(fn func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, fn)
}

// Run 阻塞轮询直到 ctx 结束
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("config watcher started", zap.Duration("poll_interval", w.pollInterval))
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("config watcher stopped")
			return
		case <-ticker.C:
			if _, err := w.Check(); err != nil {
				w.logger.Warn("config reload rejected, keeping previous config", zap.Error(err))
			}
		}
	}
}

// Check 检查一次文件状态，发生变化时重新加载。
// 返回值表示是否产生了新配置。
func (w *Watcher) Check() (bool, error) {
	w.mu.Lock()
	info, err := os.Stat(w.path)
	if err != nil {
		w.mu.Unlock()
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", w.path, err)
	}
	if w.seen && info.ModTime().Equal(w.lastMod) && info.Size() == w.lastSize {
		w.mu.Unlock()
		return false, nil
	}
	w.lastMod, w.lastSize, w.seen = info.ModTime(), info.Size(), true
	callbacks := make([]func(*Config), len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.Unlock()

	cfg, err := w.loader.Load()
	if err != nil {
		return false, err
	}

	w.logger.Info("config reloaded")
	for _, cb := range callbacks {
		cb(cfg)
	}
	return true, nil
}
