// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的比对指标采集能力，覆盖
HTTP、比对运行与环境查询三个维度。

# 概述

本包通过 Collector 统一注册和记录 Prometheus 指标，使用 promauto
自动注册机制。所有指标按 namespace 隔离，便于同一进程内多个
实例共存。

# 核心类型

  - Collector：指标收集器，持有 Counter、Histogram、Gauge 等
    Prometheus 向量指标。

# 主要能力

  - HTTP 指标：请求总数与耗时，按 method/path/status 分组，
    状态码归类为 2xx/3xx/4xx/5xx。
  - 比对指标：运行次数（成功/失败）、运行耗时、最近一次各一致性
    状态的记录数，按 backend 分组。
  - 环境查询指标：查询次数与耗时、解码行数与被跳过的行数，
    按 environment 分组。
*/
package metrics
