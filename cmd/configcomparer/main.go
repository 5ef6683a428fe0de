// =============================================================================
// 配置比对工具 主入口
// =============================================================================
// 比对 PRO/PRE/TEST/DEV 四套环境中 Apollo 或 Nacos 的配置项
//
// 使用方法:
//
//	configcomparer compare --config config.yaml           # 比对并输出表格
//	configcomparer compare --hide fully+skip --format json
//	configcomparer test                                   # 测试各环境连接
//	configcomparer skip --identifier app --namespace application --key timeout
//	configcomparer unskip --identifier app --namespace application --key timeout
//	configcomparer serve                                  # 启动 HTTP 服务
//	configcomparer version                                # 显示版本信息
// =============================================================================

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/configcomparer/compare"
	"github.com/BaSui01/configcomparer/config"
	"github.com/BaSui01/configcomparer/internal/metrics"
	"github.com/BaSui01/configcomparer/internal/skiplist"
	"github.com/BaSui01/configcomparer/internal/telemetry"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, os.Args[1], os.Args[2:], os.Stdout)
	stop()

	switch {
	case err == nil:
	case errors.Is(err, flag.ErrHelp):
		os.Exit(0)
	case errors.Is(err, errUsage):
		printUsage(os.Stderr)
		os.Exit(2)
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var errUsage = errors.New("usage error")

// run 分发子命令，所有输出写入 out
func run(ctx context.Context, command string, args []string, out io.Writer) error {
	switch command {
	case "compare":
		return runCompare(ctx, args, out)
	case "test":
		return runTest(ctx, args, out)
	case "skip":
		return runSkip(ctx, args, out, true)
	case "unskip":
		return runSkip(ctx, args, out, false)
	case "serve":
		return runServe(ctx, args)
	case "version":
		printVersion(out)
		return nil
	case "help", "-h", "--help":
		printUsage(out)
		return nil
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, command)
	}
}

// commandFlags 各子命令共享的参数
type commandFlags struct {
	fs         *flag.FlagSet
	configPath *string
}

func newCommandFlags(name string, out io.Writer) commandFlags {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return commandFlags{
		fs:         fs,
		configPath: fs.String("config", "", "Path to config file (YAML)"),
	}
}

// setup 加载配置、初始化日志与遥测，返回的 cleanup 必须调用
func (c commandFlags) setup(ctx context.Context) (*config.Config, *zap.Logger, func(), error) {
	cfg, err := loadConfig(*c.configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	logger := initLogger(cfg.Log)

	providers, err := telemetry.Init(ctx, cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}

	cleanup := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
		_ = logger.Sync()
	}
	return cfg, logger, cleanup, nil
}

// =============================================================================
// 🔍 compare 命令
// =============================================================================

func runCompare(ctx context.Context, args []string, out io.Writer) error {
	cf := newCommandFlags("compare", out)
	hide := cf.fs.String("hide", "", "Categories to hide, e.g. fully+skip (fully, partially, inconsistent, unknown, skip)")
	invert := cf.fs.Bool("invert", false, "Show only the records matched by --hide")
	identifier := cf.fs.String("identifier", "", "Show only this application identifier")
	search := cf.fs.String("search", "", "Case-insensitive substring search")
	format := cf.fs.String("format", "table", "Output format: table, json")
	shared := cf.fs.Bool("shared", false, "Report key/value pairs repeated across identifiers per environment")
	if err := cf.fs.Parse(args); err != nil {
		return err
	}

	categories, err := compare.ParseCategories(*hide)
	if err != nil {
		return err
	}
	if *format != "table" && *format != "json" {
		return fmt.Errorf("unknown format %q", *format)
	}

	cfg, logger, cleanup, err := cf.setup(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	var source compare.SkipSource
	if skips, err := skiplist.New(cfg.Skip, logger); err != nil {
		logger.Warn("skip list unavailable, continuing without it", zap.Error(err))
	} else {
		defer skips.Close()
		source = skips
	}

	result, err := newEngine(cfg, source, nil, logger).service.Run(ctx)
	if err != nil {
		return err
	}
	if !result.Usable() {
		return fmt.Errorf("%w: %s", compare.ErrNoUsableResult, environmentSummary(result.Environments))
	}

	filter := compare.Filter{
		Hide:       categories,
		Invert:     *invert,
		Identifier: *identifier,
		Search:     *search,
	}
	if *shared {
		sv := newSharedView(result, filter)
		if *format == "json" {
			return writeJSON(out, sv)
		}
		return writeSharedTable(out, sv)
	}

	view := newRunView(result, filter)
	if *format == "json" {
		return writeJSON(out, view)
	}
	return writeRunTable(out, view)
}

// =============================================================================
// 🩺 test 命令
// =============================================================================

func runTest(ctx context.Context, args []string, out io.Writer) error {
	cf := newCommandFlags("test", out)
	format := cf.fs.String("format", "table", "Output format: table, json")
	if err := cf.fs.Parse(args); err != nil {
		return err
	}

	cfg, logger, cleanup, err := cf.setup(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	results := newEngine(cfg, nil, nil, logger).prober.Probe(ctx, cfg.Environments.Map())
	if *format == "json" {
		return writeJSON(out, results)
	}
	return writeProbeTable(out, results)
}

// =============================================================================
// 🙈 skip / unskip 命令
// =============================================================================

func runSkip(ctx context.Context, args []string, out io.Writer, add bool) error {
	name := "unskip"
	if add {
		name = "skip"
	}
	cf := newCommandFlags(name, out)
	identifier := cf.fs.String("identifier", "", "Application identifier")
	namespace := cf.fs.String("namespace", "", "Namespace (Apollo) or group (Nacos)")
	key := cf.fs.String("key", "", "Configuration key")
	if err := cf.fs.Parse(args); err != nil {
		return err
	}

	k, err := skipRequest{Identifier: *identifier, Namespace: *namespace, Key: *key}.key()
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	cfg, logger, cleanup, err := cf.setup(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	store, err := skiplist.New(cfg.Skip, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	if add {
		err = store.Add(ctx, k)
	} else {
		err = store.Remove(ctx, k)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "%s %s/%s/%s\n", name, k.Identifier, k.Namespace, k.Key)
	return err
}

// =============================================================================
// 🖥️ serve 命令
// =============================================================================

func runServe(ctx context.Context, args []string) error {
	cf := newCommandFlags("serve", os.Stderr)
	if err := cf.fs.Parse(args); err != nil {
		return err
	}

	cfg, logger, cleanup, err := cf.setup(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	logger.Info("Starting configcomparer",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
	)

	skips, err := skiplist.New(cfg.Skip, logger)
	if err != nil {
		return fmt.Errorf("open skip list: %w", err)
	}
	defer skips.Close()

	srv := NewServer(cfg, *cf.configPath, skips, metrics.NewCollector("configcomparer", logger), logger)
	if err := srv.Run(ctx); err != nil {
		return err
	}
	logger.Info("configcomparer stopped")
	return nil
}

// =============================================================================
// 📋 版本和帮助
// =============================================================================

func printVersion(out io.Writer) {
	fmt.Fprintf(out, "configcomparer %s\n", Version)
	fmt.Fprintf(out, "  Build Time: %s\n", BuildTime)
	fmt.Fprintf(out, "  Git Commit: %s\n", GitCommit)
}

func printUsage(out io.Writer) {
	fmt.Fprintln(out, `configcomparer - multi-environment Apollo/Nacos configuration comparer

Usage:
  configcomparer <command> [options]

Commands:
  compare   Compare configuration across PRO, PRE, TEST and DEV
  test      Test SSH and database connectivity of every environment
  skip      Add a configuration item to the skip list
  unskip    Remove a configuration item from the skip list
  serve     Start the HTTP API server
  version   Show version information
  help      Show this help message

Common options:
  --config <path>   Path to configuration file (YAML)

Options for 'compare':
  --hide <list>       Categories to hide: fully, partially, inconsistent, unknown, skip
  --invert            Show only the records matched by --hide
  --identifier <id>   Show only one application
  --search <text>     Case-insensitive substring search
  --format <fmt>      table (default) or json
  --shared            List key/value pairs repeated by several identifiers per environment

Examples:
  configcomparer compare --config /etc/configcomparer/config.yaml
  configcomparer compare --hide fully+skip
  configcomparer compare --shared --format json
  configcomparer test --format json
  configcomparer skip --identifier order --namespace application --key timeout
  configcomparer serve --config config.yaml`)
}
