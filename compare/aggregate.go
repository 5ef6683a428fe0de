package compare

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/configcomparer/config"
	"github.com/BaSui01/configcomparer/internal/ctxkeys"
	"github.com/BaSui01/configcomparer/internal/metrics"
	"github.com/BaSui01/configcomparer/internal/telemetry"
)

// =============================================================================
// 🧮 多环境结果聚合
// =============================================================================

// Request 一次聚合的输入，运行期间不可变
type Request struct {
	Backend      Backend
	Environments map[string]config.EnvironmentConfig
	Query        string
	Decoder      Decoder
	Rule         NameRule
	Skip         SkipSet
}

// Aggregator 并行查询所有启用的环境并合并为统一记录
type Aggregator struct {
	fetcher     Fetcher
	concurrency int
	metrics     *metrics.Collector
	logger      *zap.Logger
}

// AggregatorOption Aggregator 选项
type AggregatorOption func(*Aggregator)

// WithConcurrency 同时查询的环境数上限
func WithConcurrency(n int) AggregatorOption {
	return func(a *Aggregator) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

// WithMetrics 记录查询与解码指标
func WithMetrics(c *metrics.Collector) AggregatorOption {
	return func(a *Aggregator) { a.metrics = c }
}

// NewAggregator 创建聚合器
func NewAggregator(fetcher Fetcher, logger *zap.Logger, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		fetcher:     fetcher,
		concurrency: len(config.EnvironmentNames()),
		logger:      logger.With(zap.String("component", "aggregator")),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// envResult 单个环境的局部结果，只由对应的协程写入
type envResult struct {
	env       string
	fragments map[CompositeKey]Fragment
	err       error
}

// Aggregate 执行一次比对。单个环境或单行的失败只会让该环境不参与判定，
// 不会使整次运行失败；没有任何环境成功时返回空记录集。
func (a *Aggregator) Aggregate(ctx context.Context, req Request) *Run {
	run := &Run{
		ID:           uuid.NewString(),
		Backend:      req.Backend,
		StartedAt:    time.Now(),
		Records:      make(map[CompositeKey]*Record),
		Environments: make(map[string]bool, len(req.Environments)),
	}
	logger := a.logger.With(zap.String("run_id", run.ID), zap.String("backend", string(req.Backend)))

	ctx, span := telemetry.Tracer().Start(ctx, "compare.aggregate",
		trace.WithAttributes(
			attribute.String("run.id", run.ID),
			attribute.String("backend", string(req.Backend)),
		),
	)
	defer span.End()
	ctx = ctxkeys.WithRunID(ctx, run.ID)

	var enabled []string
	for env, cfg := range req.Environments {
		if cfg.Enabled {
			enabled = append(enabled, env)
		} else {
			run.Environments[env] = false
		}
	}
	sort.Strings(enabled)

	results := make([]envResult, len(enabled))
	g := new(errgroup.Group)
	g.SetLimit(a.concurrency)
	for i, env := range enabled {
		g.Go(func() error {
			results[i] = a.collect(ctx, env, req.Environments[env], req, logger)
			return nil
		})
	}
	_ = g.Wait()

	// 按环境名顺序串行合并，每个组合键只在这里创建
	for _, res := range results {
		if res.err != nil {
			run.Environments[res.env] = false
			continue
		}
		run.Environments[res.env] = true
		for key, fragment := range res.fragments {
			rec, ok := run.Records[key]
			if !ok {
				rec = newRecord(key)
				run.Records[key] = rec
			}
			rec.set(fragment)
		}
	}

	active := run.Active()
	backfill(run.Records, active)
	classifyAll(run.Records, active)
	Annotate(run.Records, req.Skip)
	run.FinishedAt = time.Now()

	span.SetAttributes(
		attribute.Int("environments.active", len(active)),
		attribute.Int("records", len(run.Records)),
	)

	if !run.Usable() {
		logger.Warn("no environment returned a usable result",
			zap.Int("enabled", len(enabled)),
		)
	} else {
		logger.Info("comparison finished",
			zap.Strings("active", active.Sorted()),
			zap.Int("records", len(run.Records)),
			zap.Duration("duration", run.FinishedAt.Sub(run.StartedAt)),
		)
	}
	return run
}

// collect 查询并解码单个环境
func (a *Aggregator) collect(ctx context.Context, env string, cfg config.EnvironmentConfig, req Request, logger *zap.Logger) envResult {
	ctx, span := telemetry.Tracer().Start(ctx, "compare.fetch",
		trace.WithAttributes(attribute.String("environment", env)),
	)
	ctx = ctxkeys.WithEnvironment(ctx, env)

	start := time.Now()
	rows, err := a.fetcher.Fetch(ctx, env, cfg, req.Query, req.Decoder.ScanRow)
	if a.metrics != nil {
		a.metrics.RecordFetch(env, err, time.Since(start))
	}
	telemetry.EndSpan(span, err)
	if err != nil {
		logger.Warn("environment excluded from comparison",
			zap.String("environment", env),
			zap.Error(err),
		)
		return envResult{env: env, err: err}
	}

	fragments := make(map[CompositeKey]Fragment)
	skipped := 0
	for _, row := range rows {
		decoded := req.Decoder.Decode(row, env, req.Rule)
		if len(decoded) == 0 {
			skipped++
		}
		for _, f := range decoded {
			fragments[f.Key] = f
		}
	}
	if a.metrics != nil {
		a.metrics.RecordDecode(env, len(rows)-skipped, skipped)
	}

	logger.Debug("environment decoded",
		zap.String("environment", env),
		zap.Int("rows", len(rows)),
		zap.Int("skipped_rows", skipped),
		zap.Int("fragments", len(fragments)),
	)
	return envResult{env: env, fragments: fragments}
}

// backfill 为缺少该配置项的成功环境补一个空值槽位
func backfill(records map[CompositeKey]*Record, active EnvSet) {
	for _, rec := range records {
		for env := range active {
			if _, ok := rec.Values[env]; !ok {
				rec.Values[env] = EnvValue{}
			}
		}
	}
}
