package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/configcomparer/compare"
	"github.com/BaSui01/configcomparer/config"
	"github.com/BaSui01/configcomparer/internal/metrics"
)

// =============================================================================
// 🧩 组件装配
// =============================================================================

// comparer 执行一次比对
type comparer interface {
	Run(ctx context.Context) (*compare.Run, error)
}

// prober 测试各环境连通性
type prober interface {
	Probe(ctx context.Context, envs map[string]config.EnvironmentConfig) []compare.ProbeResult
}

// engine 一份配置对应的比对组件，配置重载时整体替换
type engine struct {
	cfg     *config.Config
	service comparer
	prober  prober
}

// newEngine 按配置装配查询、聚合与连接测试组件，collector 可为 nil
func newEngine(cfg *config.Config, skips compare.SkipSource, collector *metrics.Collector, logger *zap.Logger) *engine {
	fetcher := compare.NewSQLFetcher(cfg.Fetch, logger)
	aggregator := compare.NewAggregator(fetcher, logger,
		compare.WithConcurrency(cfg.Fetch.Concurrency),
		compare.WithMetrics(collector),
	)
	return &engine{
		cfg:     cfg,
		service: compare.NewService(cfg, aggregator, skips, collector, logger),
		prober:  compare.NewProber(fetcher, cfg.Fetch.SSHTimeout, logger),
	}
}

// loadConfig 加载并校验配置，path 为空时只使用默认值与环境变量
func loadConfig(path string) (*config.Config, error) {
	loader := config.NewLoader().WithValidator((*config.Config).Validate)
	if path != "" {
		loader = loader.WithConfigPath(path)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// =============================================================================
// 🔧 日志初始化
// =============================================================================

func initLogger(cfg config.LogConfig) *zap.Logger {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	encoding := "json"
	if cfg.Format == "console" {
		encoding = "console"
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		// 标准输出留给比对结果
		outputs = []string{"stderr"}
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      encoding == "console",
		Encoding:         encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      outputs,
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := zapConfig.Build(
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}
