package main

import (
	"context"
	"fmt"
	"net/http"
	"reflect"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/BaSui01/configcomparer/config"
	"github.com/BaSui01/configcomparer/internal/metrics"
	"github.com/BaSui01/configcomparer/internal/server"
	"github.com/BaSui01/configcomparer/internal/skiplist"
)

// =============================================================================
// 🖥️ Server
// =============================================================================

// Server 比对服务：API 端口、指标端口与配置热重载
type Server struct {
	cfg        *config.Config
	configPath string
	logger     *zap.Logger

	collector *metrics.Collector
	skips     skiplist.Store
	engine    atomic.Pointer[engine]
	// loaded 最近一次加载的配置，只在监听协程中读写
	loaded *config.Config

	httpManager    *server.Manager
	metricsManager *server.Manager

	cancel context.CancelFunc
}

// NewServer 创建服务器，skips 由调用方创建并在服务结束后关闭
func NewServer(cfg *config.Config, configPath string, skips skiplist.Store, collector *metrics.Collector, logger *zap.Logger) *Server {
	s := &Server{
		cfg:        cfg,
		configPath: configPath,
		logger:     logger,
		collector:  collector,
		skips:      skips,
		loaded:     cfg,
	}
	s.engine.Store(newEngine(cfg, skips, collector, logger))
	return s
}

// publicPaths 不需要认证的路径
var publicPaths = []string{"/health", "/version"}

// Handler 返回带完整中间件链的 API handler
func (s *Server) Handler(ctx context.Context) http.Handler {
	a := &api{
		current: s.engine.Load,
		skips:   s.skips,
		logger:  s.logger.With(zap.String("component", "api")),
	}

	middlewares := []Middleware{
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		OTelTracing(),
		RequestLogger(s.logger),
	}
	if s.collector != nil {
		middlewares = append(middlewares, MetricsMiddleware(s.collector))
	}
	middlewares = append(middlewares,
		RateLimiter(ctx, float64(s.cfg.Server.RateLimitRPS), s.cfg.Server.RateLimitBurst),
		APIKeyAuth(s.cfg.Server.APIKeys, publicPaths),
		JWTAuth(s.cfg.Server.JWT, publicPaths, s.logger),
	)
	return Chain(a.routes(), middlewares...)
}

// =============================================================================
// 🚀 启动流程
// =============================================================================

// Start 启动 API 端口、指标端口与配置监听（非阻塞）
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.httpManager = server.NewManager(s.Handler(ctx), server.FromServerConfig(s.cfg.Server, s.cfg.Server.HTTPPort), s.logger)
	if err := s.httpManager.Start(); err != nil {
		cancel()
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	if s.cfg.Server.MetricsPort > 0 {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		s.metricsManager = server.NewManager(mux, server.FromServerConfig(s.cfg.Server, s.cfg.Server.MetricsPort), s.logger)
		if err := s.metricsManager.Start(); err != nil {
			cancel()
			_ = s.httpManager.Shutdown(context.Background())
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
	}

	if s.configPath != "" {
		watcher := config.NewWatcher(s.configPath, nil, config.WithWatcherLogger(s.logger))
		watcher.OnReload(s.reload)
		go watcher.Run(ctx)
	}

	s.logger.Info("All servers started",
		zap.String("http_addr", s.httpManager.Addr()),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
		zap.Bool("hot_reload_enabled", s.configPath != ""),
	)
	return nil
}

// reload 替换比对组件。端口、鉴权与忽略列表存储需要重启才会生效，
// 只在这些设置相对上一次加载发生变化时告警一次。
func (s *Server) reload(cfg *config.Config) {
	if !reflect.DeepEqual(cfg.Server, s.loaded.Server) || !reflect.DeepEqual(cfg.Skip, s.loaded.Skip) {
		s.logger.Warn("server or skip list settings changed, restart required to apply them")
	}
	s.loaded = cfg
	s.engine.Store(newEngine(cfg, s.skips, s.collector, s.logger))
	s.logger.Info("comparison settings reloaded",
		zap.String("backend", cfg.Comparer.Backend),
	)
}

// =============================================================================
// 🛑 关闭流程
// =============================================================================

// Run 启动后阻塞到收到信号或 ctx 结束，然后优雅关闭
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	waitErr := s.httpManager.Wait(ctx)
	s.Shutdown()
	return waitErr
}

// Shutdown 优雅关闭所有服务
func (s *Server) Shutdown() {
	s.logger.Info("Starting graceful shutdown...")

	if s.cancel != nil {
		s.cancel()
	}

	ctx := context.Background()
	if s.httpManager != nil {
		if err := s.httpManager.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP server shutdown error", zap.Error(err))
		}
	}
	if s.metricsManager != nil {
		if err := s.metricsManager.Shutdown(ctx); err != nil {
			s.logger.Error("Metrics server shutdown error", zap.Error(err))
		}
	}

	s.logger.Info("Graceful shutdown completed")
}
