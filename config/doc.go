// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package config 提供配置比对工具的配置模型与加载能力。

# 概述

配置来源按优先级叠加：默认值 → YAML 文件 → 环境变量。环境变量
统一使用 CONFIGCOMPARER 前缀，层级之间以下划线连接，例如
CONFIGCOMPARER_ENVIRONMENTS_PRO_DATABASE_PASSWORD。

# 核心类型

  - Config：完整配置，包含比对模式、四套环境连接、名称修正规则、
    忽略列表存储、查询超时、HTTP 服务、日志与遥测配置。
  - EnvironmentConfig：单个环境的数据库连接与可选 SSH 隧道描述。
  - Loader：Builder 风格的配置加载器，支持自定义校验器。
  - Watcher：轮询配置文件修改时间与大小，变更后重新加载并回调。

# 主要能力

  - 连接参数校验：缺失必填字段时在任何网络调用之前拒绝。
  - DSN 构造：基于 go-sql-driver/mysql 的 Config 生成带超时的连接串，
    密码中的特殊字符无需手工转义。
  - 热重载：新配置校验失败时保留上一份配置。
*/
package config
