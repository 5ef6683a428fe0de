// Package skiplist provides persistence for the comparison skip list.
// This package is internal and should not be imported by external projects.
package skiplist

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/configcomparer/compare"
	"github.com/BaSui01/configcomparer/config"
)

// ErrStoreClosed 存储已关闭
var ErrStoreClosed = errors.New("skip list store is closed")

// Store 忽略列表存储，Load 满足 compare.SkipSource
type Store interface {
	Load(ctx context.Context) ([]compare.CompositeKey, error)
	Add(ctx context.Context, keys ...compare.CompositeKey) error
	Remove(ctx context.Context, keys ...compare.CompositeKey) error
	Close() error
}

// New 按配置选择存储实现
func New(cfg config.SkipConfig, logger *zap.Logger) (Store, error) {
	switch cfg.Driver {
	case "file", "":
		return NewFileStore(cfg.Path, logger), nil
	case "redis":
		store, err := NewRedisStore(RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Key:      cfg.RedisKey,
			TLS:      cfg.RedisTLS,
		}, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported skip list driver %q", cfg.Driver)
	}
}

// parseLine 接受长度前缀编码，以及恰好三段的旧版 a+b+c 格式
func parseLine(line string) (compare.CompositeKey, error) {
	if key, err := compare.ParseCompositeKey(line); err == nil {
		return key, nil
	}
	return compare.ParseLegacyKey(line)
}
