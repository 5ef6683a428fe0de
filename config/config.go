// =============================================================================
// 📦 配置比对工具 配置模型
// =============================================================================
package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
)

// 环境名称，顺序即展示顺序
const (
	EnvPro  = "PRO"
	EnvPre  = "PRE"
	EnvTest = "TEST"
	EnvDev  = "DEV"
)

// EnvironmentNames 返回全部环境名称（固定顺序）
func EnvironmentNames() []string {
	return []string{EnvPro, EnvPre, EnvTest, EnvDev}
}

// ErrIncompleteConnection 连接参数缺失
var ErrIncompleteConnection = errors.New("incomplete connection settings")

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是配置比对工具的完整配置结构
type Config struct {
	// Comparer 比对模式
	Comparer ComparerConfig `yaml:"comparer" env:"COMPARER"`

	// Environments 四套环境的连接配置
	Environments EnvironmentsConfig `yaml:"environments" env:"ENVIRONMENTS"`

	// Names 应用名称修正规则
	Names NamesConfig `yaml:"names" env:"NAMES"`

	// Skip 忽略列表存储
	Skip SkipConfig `yaml:"skip" env:"SKIP"`

	// Fetch 查询超时与并发
	Fetch FetchConfig `yaml:"fetch" env:"FETCH"`

	// Server HTTP 服务配置
	Server ServerConfig `yaml:"server" env:"SERVER"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// Telemetry 遥测配置
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
}

// ComparerConfig 比对模式配置
type ComparerConfig struct {
	// 配置中心类型: apollo, nacos
	Backend string `yaml:"backend" env:"BACKEND"`
	// Apollo 应用标识列: app_id, name
	IdentifierMode string `yaml:"identifier_mode" env:"IDENTIFIER_MODE"`
}

// EnvironmentsConfig 按环境名组织的连接配置
type EnvironmentsConfig struct {
	PRO  EnvironmentConfig `yaml:"PRO" env:"PRO"`
	PRE  EnvironmentConfig `yaml:"PRE" env:"PRE"`
	TEST EnvironmentConfig `yaml:"TEST" env:"TEST"`
	DEV  EnvironmentConfig `yaml:"DEV" env:"DEV"`
}

// Map 以环境名为键返回全部环境配置
func (e EnvironmentsConfig) Map() map[string]EnvironmentConfig {
	return map[string]EnvironmentConfig{
		EnvPro:  e.PRO,
		EnvPre:  e.PRE,
		EnvTest: e.TEST,
		EnvDev:  e.DEV,
	}
}

// EnvironmentConfig 单个环境的连接配置，一次比对过程中只读
type EnvironmentConfig struct {
	// 是否查询该环境
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// 配置中心数据库
	Database DatabaseConfig `yaml:"database" env:"DATABASE"`
	// SSH 隧道（可选）
	SSH SSHConfig `yaml:"ssh" env:"SSH"`
}

// DatabaseConfig MySQL 连接配置
type DatabaseConfig struct {
	Host     string `yaml:"host" env:"HOST"`
	Port     int    `yaml:"port" env:"PORT"`
	User     string `yaml:"user" env:"USER"`
	Password string `yaml:"password" env:"PASSWORD"`
	Name     string `yaml:"name" env:"NAME"`
}

// SSHConfig SSH 隧道配置，仅支持密码认证
type SSHConfig struct {
	Enabled  bool   `yaml:"enabled" env:"ENABLED"`
	Host     string `yaml:"host" env:"HOST"`
	Port     int    `yaml:"port" env:"PORT"`
	User     string `yaml:"user" env:"USER"`
	Password string `yaml:"password" env:"PASSWORD"`
	// known_hosts 文件，为空时不校验主机密钥
	KnownHostsFile string `yaml:"known_hosts_file" env:"KNOWN_HOSTS_FILE"`
}

// NamesConfig 应用名称修正规则
type NamesConfig struct {
	// 需要去除的前缀，按顺序匹配第一个
	Prefixes []string `yaml:"prefixes" env:"PREFIXES"`
	// 需要去除的后缀，按顺序匹配第一个
	Suffixes []string `yaml:"suffixes" env:"SUFFIXES"`
	// 精确替换表（只能通过 YAML 配置）
	Replacements map[string]string `yaml:"replacements" env:"-"`
}

// SkipConfig 忽略列表存储配置
type SkipConfig struct {
	// 存储类型: file, redis
	Driver string `yaml:"driver" env:"DRIVER"`
	// 文件路径（driver=file）
	Path string `yaml:"path" env:"PATH"`
	// Redis 地址（driver=redis）
	RedisAddr     string `yaml:"redis_addr" env:"REDIS_ADDR"`
	RedisPassword string `yaml:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db" env:"REDIS_DB"`
	RedisTLS      bool   `yaml:"redis_tls" env:"REDIS_TLS"`
	// Redis 集合键名
	RedisKey string `yaml:"redis_key" env:"REDIS_KEY"`
}

// FetchConfig 单环境查询的超时与并发限制
type FetchConfig struct {
	// 数据库建连超时
	ConnectTimeout time.Duration `yaml:"connect_timeout" env:"CONNECT_TIMEOUT"`
	// 查询超时
	QueryTimeout time.Duration `yaml:"query_timeout" env:"QUERY_TIMEOUT"`
	// SSH 握手超时
	SSHTimeout time.Duration `yaml:"ssh_timeout" env:"SSH_TIMEOUT"`
	// 同时查询的环境数
	Concurrency int `yaml:"concurrency" env:"CONCURRENCY"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	HTTPPort        int           `yaml:"http_port" env:"HTTP_PORT"`
	MetricsPort     int           `yaml:"metrics_port" env:"METRICS_PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	// 为空时不校验 X-API-Key
	APIKeys []string `yaml:"api_keys" env:"API_KEYS"`
	// 每个客户端 IP 的限流
	RateLimitRPS   int `yaml:"rate_limit_rps" env:"RATE_LIMIT_RPS"`
	RateLimitBurst int `yaml:"rate_limit_burst" env:"RATE_LIMIT_BURST"`
	// Bearer token 校验，Secret 与 PublicKey 都为空时关闭
	JWT JWTConfig `yaml:"jwt" env:"JWT"`
}

// JWTConfig JWT 校验配置，支持 HS256（Secret）与 RS256（PEM 公钥）
type JWTConfig struct {
	Secret    string `yaml:"secret" env:"SECRET"`
	PublicKey string `yaml:"public_key" env:"PUBLIC_KEY"`
	Issuer    string `yaml:"issuer" env:"ISSUER"`
	Audience  string `yaml:"audience" env:"AUDIENCE"`
}

// Enabled 配置了任一校验密钥时为 true
func (c JWTConfig) Enabled() bool {
	return c.Secret != "" || c.PublicKey != ""
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled" env:"ENABLED"`
	OTLPEndpoint string  `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	ServiceName  string  `yaml:"service_name" env:"SERVICE_NAME"`
	SampleRate   float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// =============================================================================
// 🔍 校验
// =============================================================================

// Validate 校验全局配置
func (c *Config) Validate() error {
	var errs []string

	switch c.Comparer.Backend {
	case "apollo":
		if c.Comparer.IdentifierMode != "app_id" && c.Comparer.IdentifierMode != "name" {
			errs = append(errs, fmt.Sprintf("invalid identifier_mode %q", c.Comparer.IdentifierMode))
		}
	case "nacos":
	default:
		errs = append(errs, fmt.Sprintf("invalid backend %q", c.Comparer.Backend))
	}

	switch c.Skip.Driver {
	case "file":
		if c.Skip.Path == "" {
			errs = append(errs, "skip.path is required for file driver")
		}
	case "redis":
		if c.Skip.RedisAddr == "" {
			errs = append(errs, "skip.redis_addr is required for redis driver")
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid skip driver %q", c.Skip.Driver))
	}

	if c.Fetch.Concurrency <= 0 {
		errs = append(errs, "fetch.concurrency must be positive")
	}
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		errs = append(errs, "invalid HTTP port")
	}
	if c.Server.MetricsPort < 0 || c.Server.MetricsPort > 65535 {
		errs = append(errs, "invalid metrics port")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Validate 检查连接必填字段，SSH 字段仅在启用隧道时检查
func (e EnvironmentConfig) Validate() error {
	var missing []string
	if e.Database.Host == "" {
		missing = append(missing, "database.host")
	}
	if e.Database.Port <= 0 {
		missing = append(missing, "database.port")
	}
	if e.Database.User == "" {
		missing = append(missing, "database.user")
	}
	if e.Database.Name == "" {
		missing = append(missing, "database.name")
	}
	if e.SSH.Enabled {
		if e.SSH.Host == "" {
			missing = append(missing, "ssh.host")
		}
		if e.SSH.Port <= 0 {
			missing = append(missing, "ssh.port")
		}
		if e.SSH.User == "" {
			missing = append(missing, "ssh.user")
		}
		if e.SSH.Password == "" {
			missing = append(missing, "ssh.password")
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrIncompleteConnection, strings.Join(missing, ", "))
	}
	return nil
}

// Addr 返回数据库 host:port
func (d DatabaseConfig) Addr() string {
	return net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
}

// DSN 返回 MySQL 连接字符串，addr 为空时使用配置中的地址（隧道场景传入本地端口）
func (d DatabaseConfig) DSN(addr string, connectTimeout, readTimeout time.Duration) string {
	if addr == "" {
		addr = d.Addr()
	}
	cfg := mysqldriver.NewConfig()
	cfg.User = d.User
	cfg.Passwd = d.Password
	cfg.Net = "tcp"
	cfg.Addr = addr
	cfg.DBName = d.Name
	cfg.ParseTime = true
	cfg.Timeout = connectTimeout
	cfg.ReadTimeout = readTimeout
	return cfg.FormatDSN()
}

// Addr 返回 SSH host:port
func (s SSHConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}
