package compare

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/configcomparer/config"
	"github.com/BaSui01/configcomparer/internal/metrics"
)

// ErrNoUsableResult 没有任何环境查询成功
var ErrNoUsableResult = errors.New("no environment returned a usable result")

// SkipSource 提供当前的忽略列表
type SkipSource interface {
	Load(ctx context.Context) ([]CompositeKey, error)
}

// Service 比对入口：按配置选择查询与解码器，读取忽略列表后执行聚合
type Service struct {
	cfg        *config.Config
	aggregator *Aggregator
	skips      SkipSource
	metrics    *metrics.Collector
	logger     *zap.Logger
}

// NewService 创建比对服务，collector 可为 nil
func NewService(cfg *config.Config, aggregator *Aggregator, skips SkipSource, collector *metrics.Collector, logger *zap.Logger) *Service {
	return &Service{
		cfg:        cfg,
		aggregator: aggregator,
		skips:      skips,
		metrics:    collector,
		logger:     logger.With(zap.String("component", "comparison_service")),
	}
}

// Run 执行一次比对。只有后端配置错误会返回 error；
// 环境失败体现在 Run.Environments 中，全部失败时 Run.Usable 为 false。
func (s *Service) Run(ctx context.Context) (*Run, error) {
	backend, err := ParseBackend(s.cfg.Comparer.Backend)
	if err != nil {
		return nil, err
	}
	query, err := QueryFor(backend, IdentifierMode(s.cfg.Comparer.IdentifierMode))
	if err != nil {
		return nil, err
	}
	decoder, err := DecoderFor(backend, s.logger)
	if err != nil {
		return nil, err
	}

	var skip SkipSet
	if s.skips != nil {
		keys, err := s.skips.Load(ctx)
		if err != nil {
			// 忽略列表不可用时按空列表继续
			s.logger.Warn("skip list unavailable, continuing without it", zap.Error(err))
		}
		skip = NewSkipSet(keys...)
	}

	start := time.Now()
	run := s.aggregator.Aggregate(ctx, Request{
		Backend:      backend,
		Environments: s.cfg.Environments.Map(),
		Query:        query,
		Decoder:      decoder,
		Rule:         NameRuleFromConfig(s.cfg.Names),
		Skip:         skip,
	})

	if s.metrics != nil {
		s.metrics.RecordRun(string(backend), run.Usable(), time.Since(start))
		counts := make(map[string]int, len(Statuses()))
		for _, st := range Statuses() {
			counts[string(st)] = 0
		}
		for st, n := range run.Counts() {
			counts[string(st)] = n
		}
		s.metrics.RecordStatusCounts(string(backend), counts)
	}
	return run, nil
}
