// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供配置比对工具的命令行与 HTTP 服务入口。

# 概述

cmd/configcomparer 加载配置后装配查询、聚合与连接测试组件，
以表格或 JSON 输出四套环境的配置一致性，也可以作为 HTTP 服务
常驻运行并在配置文件变更后热重载比对组件。

# 核心类型

  - Server      ：API 端口与 Metrics 端口的生命周期及配置热重载
  - Middleware  ：HTTP 中间件函数签名 func(http.Handler) http.Handler
  - engine      ：一份配置对应的比对服务与连接测试器

# 主要能力

  - 子命令：compare、test、skip、unskip、serve、version、help
  - HTTP API：POST /api/compare、POST /api/compare/shared、GET /api/connections、
    GET/POST/DELETE /api/skip、/health、/version
  - 中间件链：Recovery、RequestID、SecurityHeaders、OTelTracing、
    RequestLogger、MetricsMiddleware、RateLimiter、APIKeyAuth
  - Metrics 服务器：独立端口暴露 /metrics（Prometheus）
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
