package compare

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/configcomparer/config"
	"github.com/BaSui01/configcomparer/internal/tunnel"
)

// =============================================================================
// 🩺 连接测试
// =============================================================================

// ProbeState 单项连接测试结果
type ProbeState string

const (
	ProbeSkipped ProbeState = "not_tested"
	ProbeOK      ProbeState = "ok"
	ProbeFailed  ProbeState = "failed"
)

// ProbeResult 单个环境的连接测试结果
type ProbeResult struct {
	Environment   string     `json:"environment"`
	SSH           ProbeState `json:"ssh"`
	SSHError      string     `json:"ssh_error,omitempty"`
	Database      ProbeState `json:"database"`
	DatabaseError string     `json:"database_error,omitempty"`
	Version       string     `json:"version,omitempty"`
}

// SSHProbeFunc 验证 SSH 登录
type SSHProbeFunc func(ctx context.Context, cfg config.SSHConfig, timeout time.Duration) error

// Prober 测试各环境的 SSH 与数据库连通性。
// 启用 SSH 即测试 SSH 登录；启用环境即经正常查询路径执行 SELECT VERSION()。
type Prober struct {
	fetcher    Fetcher
	probeSSH   SSHProbeFunc
	sshTimeout time.Duration
	logger     *zap.Logger
}

// ProberOption Prober 选项
type ProberOption func(*Prober)

// WithSSHProbe 替换 SSH 登录测试实现
func WithSSHProbe(fn SSHProbeFunc) ProberOption {
	return func(p *Prober) { p.probeSSH = fn }
}

// NewProber 创建连接测试器
func NewProber(fetcher Fetcher, sshTimeout time.Duration, logger *zap.Logger, opts ...ProberOption) *Prober {
	p := &Prober{
		fetcher:    fetcher,
		sshTimeout: sshTimeout,
		logger:     logger.With(zap.String("component", "prober")),
	}
	p.probeSSH = func(ctx context.Context, cfg config.SSHConfig, timeout time.Duration) error {
		return tunnel.Probe(ctx, cfg, timeout, p.logger)
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// versionRow SELECT VERSION() 的结果
type versionRow struct {
	version string
}

func (r versionRow) identifier() string { return r.version }

func scanVersion(rs RowScanner) (Row, error) {
	var v versionRow
	if err := rs.Scan(&v.version); err != nil {
		return nil, fmt.Errorf("scan version: %w", err)
	}
	return v, nil
}

// Probe 并行测试所有环境，按环境名排序返回
func (p *Prober) Probe(ctx context.Context, envs map[string]config.EnvironmentConfig) []ProbeResult {
	names := make([]string, 0, len(envs))
	for name := range envs {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]ProbeResult, len(names))
	g := new(errgroup.Group)
	for i, name := range names {
		g.Go(func() error {
			results[i] = p.probeOne(ctx, name, envs[name])
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (p *Prober) probeOne(ctx context.Context, env string, cfg config.EnvironmentConfig) ProbeResult {
	res := ProbeResult{Environment: env, SSH: ProbeSkipped, Database: ProbeSkipped}

	if cfg.SSH.Enabled {
		if err := p.probeSSH(ctx, cfg.SSH, p.sshTimeout); err != nil {
			res.SSH, res.SSHError = ProbeFailed, err.Error()
			p.logger.Warn("ssh probe failed",
				zap.String("environment", env),
				zap.String("ssh_host", cfg.SSH.Host),
				zap.Int("ssh_port", cfg.SSH.Port),
				zap.String("ssh_user", cfg.SSH.User),
				zap.Error(err),
			)
		} else {
			res.SSH = ProbeOK
		}
	}

	if cfg.Enabled {
		rows, err := p.fetcher.Fetch(ctx, env, cfg, QueryVersion, scanVersion)
		switch {
		case err != nil:
			res.Database, res.DatabaseError = ProbeFailed, err.Error()
		case len(rows) == 0:
			res.Database, res.DatabaseError = ProbeFailed, "empty version result"
		default:
			res.Database = ProbeOK
			if v, ok := rows[0].(versionRow); ok {
				res.Version = v.version
			}
		}
	}

	p.logger.Debug("environment probe finished",
		zap.String("environment", env),
		zap.String("ssh", string(res.SSH)),
		zap.String("database", string(res.Database)),
	)
	return res
}
