package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// ErrSessionClosed 会话已关闭
var ErrSessionClosed = errors.New("database session is closed")

// =============================================================================
// 🗄️ 一次性数据库会话
// =============================================================================

// PoolConfig 会话连接池配置
type PoolConfig struct {
	MaxIdleConns    int           `yaml:"max_idle_conns" json:"max_idle_conns"`
	MaxOpenConns    int           `yaml:"max_open_conns" json:"max_open_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime"`
}

// DefaultPoolConfig 每次比对只执行一条查询，连接数保持在最小
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxIdleConns:    1,
		MaxOpenConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// Session 一次比对中单个环境的数据库会话，用完即关闭
type Session struct {
	db     *gorm.DB
	sqlDB  *sql.DB
	logger *zap.Logger
	mu     sync.RWMutex
	closed bool
}

// Open 通过方言打开会话
func Open(dialector gorm.Dialector, config PoolConfig, logger *zap.Logger) (*Session, error) {
	if dialector == nil {
		return nil, fmt.Errorf("dialector cannot be nil")
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 gormlogger.Discard,
		SkipDefaultTransaction: true,
		DisableAutomaticPing:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxIdleConns(config.MaxIdleConns)
	sqlDB.SetMaxOpenConns(config.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(config.ConnMaxLifetime)

	return &Session{
		db:     db,
		sqlDB:  sqlDB,
		logger: logger.With(zap.String("component", "db_session")),
	}, nil
}

// Ping 检查连接
func (s *Session) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrSessionClosed
	}
	return s.sqlDB.PingContext(ctx)
}

// Each 执行只读查询并逐行回调。回调内的错误由调用方自行处理，
// 返回的错误只来自查询本身或结果集迭代。
func (s *Session) Each(ctx context.Context, query string, fn func(rows *sql.Rows)) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrSessionClosed
	}
	db := s.db
	s.mu.RUnlock()

	rows, err := db.WithContext(ctx).Raw(query).Rows()
	if err != nil {
		return fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		fn(rows)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate rows: %w", err)
	}
	return nil
}

// Stats 返回连接池统计
func (s *Session) Stats() PoolStats {
	stats := s.sqlDB.Stats()
	return PoolStats{
		MaxOpenConnections: stats.MaxOpenConnections,
		OpenConnections:    stats.OpenConnections,
		InUse:              stats.InUse,
		Idle:               stats.Idle,
	}
}

// Close 关闭会话，可重复调用
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.logger.Debug("closing database session")
	return s.sqlDB.Close()
}

// PoolStats 连接池统计信息
type PoolStats struct {
	MaxOpenConnections int `json:"max_open_connections"`
	OpenConnections    int `json:"open_connections"`
	InUse              int `json:"in_use"`
	Idle               int `json:"idle"`
}
