package skiplist

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BaSui01/configcomparer/compare"
	"github.com/BaSui01/configcomparer/internal/tlsutil"
)

// =============================================================================
// 🧰 Redis 存储
// =============================================================================

// RedisConfig Redis 集合存储配置
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Key      string
	TLS      bool
}

// RedisStore 用一个 Redis 集合保存组合键，多个实例可共享同一份忽略列表
type RedisStore struct {
	client *redis.Client
	key    string
	logger *zap.Logger
	mu     sync.RWMutex
	closed bool
}

// NewRedisStore 连接 Redis 并验证可用
func NewRedisStore(cfg RedisConfig, logger *zap.Logger) (*RedisStore, error) {
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.TLS {
		opts.TLSConfig = tlsutil.ClientConfig(cfg.Addr)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	s := &RedisStore{
		client: client,
		key:    cfg.Key,
		logger: logger.With(zap.String("component", "skiplist_redis"), zap.String("key", cfg.Key)),
	}
	s.logger.Info("redis skip list connected", zap.String("addr", cfg.Addr))
	return s, nil
}

// Load 读取集合成员，无法解析的成员记录告警后跳过
func (s *RedisStore) Load(ctx context.Context) ([]compare.CompositeKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	members, err := s.client.SMembers(ctx, s.key).Result()
	if err != nil {
		s.logger.Error("skip list load failed", zap.Error(err))
		return nil, fmt.Errorf("skip list load failed: %w", err)
	}

	set := make(map[compare.CompositeKey]struct{}, len(members))
	for _, m := range members {
		key, err := parseLine(m)
		if err != nil {
			s.logger.Warn("unparseable skip list member ignored", zap.String("member", m), zap.Error(err))
			continue
		}
		set[key] = struct{}{}
	}
	return sortedKeys(set), nil
}

// Add 加入组合键
func (s *RedisStore) Add(ctx context.Context, keys ...compare.CompositeKey) error {
	if len(keys) == 0 {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrStoreClosed
	}
	if err := s.client.SAdd(ctx, s.key, members(keys)...).Err(); err != nil {
		return fmt.Errorf("skip list add failed: %w", err)
	}
	return nil
}

// Remove 移除组合键
func (s *RedisStore) Remove(ctx context.Context, keys ...compare.CompositeKey) error {
	if len(keys) == 0 {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrStoreClosed
	}
	// 同时移除旧版格式写入的成员
	targets := members(keys)
	for _, k := range keys {
		if legacy, ok := k.LegacyString(); ok {
			targets = append(targets, legacy)
		}
	}
	if err := s.client.SRem(ctx, s.key, targets...).Err(); err != nil {
		return fmt.Errorf("skip list remove failed: %w", err)
	}
	return nil
}

// Close 关闭连接，可重复调用
func (s *RedisStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.client.Close()
}

func members(keys []compare.CompositeKey) []any {
	out := make([]any, len(keys))
	for i, k := range keys {
		out[i] = k.String()
	}
	return out
}
