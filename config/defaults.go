// =============================================================================
// 📦 默认配置
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置，所有环境默认关闭
func DefaultConfig() *Config {
	return &Config{
		Comparer:     DefaultComparerConfig(),
		Environments: DefaultEnvironmentsConfig(),
		Names:        NamesConfig{Replacements: map[string]string{}},
		Skip:         DefaultSkipConfig(),
		Fetch:        DefaultFetchConfig(),
		Server:       DefaultServerConfig(),
		Log:          DefaultLogConfig(),
		Telemetry:    DefaultTelemetryConfig(),
	}
}

// DefaultComparerConfig 返回默认比对模式
func DefaultComparerConfig() ComparerConfig {
	return ComparerConfig{
		Backend:        "apollo",
		IdentifierMode: "app_id",
	}
}

// DefaultEnvironmentsConfig 返回默认环境配置
func DefaultEnvironmentsConfig() EnvironmentsConfig {
	env := EnvironmentConfig{
		Database: DatabaseConfig{Port: 3306},
		SSH:      SSHConfig{Port: 22},
	}
	return EnvironmentsConfig{PRO: env, PRE: env, TEST: env, DEV: env}
}

// DefaultSkipConfig 返回默认忽略列表配置
func DefaultSkipConfig() SkipConfig {
	return SkipConfig{
		Driver:    "file",
		Path:      "config/config_skip.txt",
		RedisAddr: "localhost:6379",
		RedisKey:  "configcomparer:skip",
	}
}

// DefaultFetchConfig 返回默认查询配置
func DefaultFetchConfig() FetchConfig {
	return FetchConfig{
		ConnectTimeout: 10 * time.Second,
		QueryTimeout:   30 * time.Second,
		SSHTimeout:     10 * time.Second,
		Concurrency:    4,
	}
}

// DefaultServerConfig 返回默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:        8080,
		MetricsPort:     9091,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    2 * time.Minute,
		ShutdownTimeout: 15 * time.Second,
		RateLimitRPS:    5,
		RateLimitBurst:  10,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:       "info",
		Format:      "console",
		OutputPaths: []string{"stderr"},
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "configcomparer",
		SampleRate:   1,
	}
}
