package compare

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/BaSui01/configcomparer/config"
	"github.com/BaSui01/configcomparer/internal/ctxkeys"
	"github.com/BaSui01/configcomparer/internal/database"
	"github.com/BaSui01/configcomparer/internal/tunnel"
)

// =============================================================================
// 🔌 数据源查询
// =============================================================================

// Fetcher 对单个环境执行查询，返回映射后的强类型行
type Fetcher interface {
	Fetch(ctx context.Context, env string, cfg config.EnvironmentConfig, query string, scan ScanFunc) ([]Row, error)
}

// Tunnel 本地端口转发
type Tunnel interface {
	LocalAddr() string
	Close() error
}

// TunnelOpener 建立到 remoteAddr 的 SSH 隧道
type TunnelOpener func(ctx context.Context, cfg config.SSHConfig, remoteAddr string, timeout time.Duration) (Tunnel, error)

// DialectorFunc 根据 DSN 构造 GORM 方言
type DialectorFunc func(dsn string) gorm.Dialector

// SQLFetcher 经 GORM 查询 MySQL，可选经 SSH 隧道
type SQLFetcher struct {
	timeouts   config.FetchConfig
	pool       database.PoolConfig
	openTunnel TunnelOpener
	dialector  DialectorFunc
	logger     *zap.Logger
}

// FetcherOption SQLFetcher 选项
type FetcherOption func(*SQLFetcher)

// WithTunnelOpener 替换隧道实现
func WithTunnelOpener(open TunnelOpener) FetcherOption {
	return func(f *SQLFetcher) { f.openTunnel = open }
}

// WithDialector 替换 GORM 方言，测试中用于注入 sqlmock
func WithDialector(fn DialectorFunc) FetcherOption {
	return func(f *SQLFetcher) { f.dialector = fn }
}

// WithPoolConfig 设置会话连接池参数
func WithPoolConfig(pool database.PoolConfig) FetcherOption {
	return func(f *SQLFetcher) { f.pool = pool }
}

// NewSQLFetcher 创建查询器
func NewSQLFetcher(timeouts config.FetchConfig, logger *zap.Logger, opts ...FetcherOption) *SQLFetcher {
	f := &SQLFetcher{
		timeouts:  timeouts,
		pool:      database.DefaultPoolConfig(),
		dialector: mysql.Open,
		logger:    logger.With(zap.String("component", "fetcher")),
	}
	f.openTunnel = func(ctx context.Context, cfg config.SSHConfig, remoteAddr string, timeout time.Duration) (Tunnel, error) {
		return tunnel.Open(ctx, cfg, remoteAddr, timeout, f.logger)
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch 执行查询。连接配置不完整时不会发起任何网络连接；
// 单行扫描失败只记录告警并跳过该行。
func (f *SQLFetcher) Fetch(ctx context.Context, env string, cfg config.EnvironmentConfig, query string, scan ScanFunc) ([]Row, error) {
	logger := f.logger.With(connectionFields(env, cfg)...)
	if id, ok := ctxkeys.RunID(ctx); ok {
		logger = logger.With(zap.String("run_id", id))
	}

	if err := cfg.Validate(); err != nil {
		logger.Error("connection settings incomplete", zap.Error(err))
		return nil, err
	}

	addr := ""
	if cfg.SSH.Enabled {
		tun, err := f.openTunnel(ctx, cfg.SSH, cfg.Database.Addr(), f.timeouts.SSHTimeout)
		if err != nil {
			logger.Error("ssh tunnel failed", zap.Error(err))
			return nil, fmt.Errorf("open ssh tunnel for %s: %w", env, err)
		}
		defer func() {
			if err := tun.Close(); err != nil {
				logger.Debug("ssh tunnel close failed", zap.Error(err))
			}
		}()
		addr = tun.LocalAddr()
	}

	dsn := cfg.Database.DSN(addr, f.timeouts.ConnectTimeout, f.timeouts.QueryTimeout)
	session, err := database.Open(f.dialector(dsn), f.pool, f.logger)
	if err != nil {
		logger.Error("database open failed", zap.Error(err))
		return nil, fmt.Errorf("open database for %s: %w", env, err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Debug("database close failed", zap.Error(err))
		}
	}()

	queryCtx := ctx
	if f.timeouts.QueryTimeout > 0 {
		var cancel context.CancelFunc
		queryCtx, cancel = context.WithTimeout(ctx, f.timeouts.QueryTimeout)
		defer cancel()
	}

	if err := session.Ping(queryCtx); err != nil {
		logger.Error("database unreachable", zap.Error(err))
		return nil, fmt.Errorf("ping %s: %w", env, err)
	}

	var (
		rows    []Row
		skipped int
	)
	err = session.Each(queryCtx, query, func(rs *sql.Rows) {
		row, err := scan(rs)
		if err != nil {
			skipped++
			logger.Warn("row scan failed, row skipped", zap.Error(err))
			return
		}
		rows = append(rows, row)
	})
	if err != nil {
		logger.Error("query failed", zap.Error(err))
		return nil, fmt.Errorf("query %s: %w", env, err)
	}

	stats := session.Stats()
	logger.Debug("query finished",
		zap.Int("rows", len(rows)),
		zap.Int("skipped", skipped),
		zap.Int("open_connections", stats.OpenConnections),
		zap.Int("in_use", stats.InUse),
		zap.Int("idle", stats.Idle),
	)
	return rows, nil
}

// connectionFields 连接诊断字段，不含任何密码
func connectionFields(env string, cfg config.EnvironmentConfig) []zap.Field {
	fields := []zap.Field{
		zap.String("environment", env),
		zap.String("db_host", cfg.Database.Host),
		zap.Int("db_port", cfg.Database.Port),
		zap.String("db_user", cfg.Database.User),
		zap.String("db_name", cfg.Database.Name),
	}
	if cfg.SSH.Enabled {
		fields = append(fields,
			zap.String("ssh_host", cfg.SSH.Host),
			zap.Int("ssh_port", cfg.SSH.Port),
			zap.String("ssh_user", cfg.SSH.User),
		)
	}
	return fields
}
