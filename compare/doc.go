// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package compare 实现 Apollo / Nacos 配置中心的多环境一致性比对。

# 概述

一次比对对每个启用的环境（PRO、PRE、TEST、DEV）执行同一条只读查询，
把查询结果解码为以 (应用标识, 命名空间, 配置键) 为组合键的局部结果，
合并为统一记录，再按查询成功的环境集合判定一致性并标注忽略状态。
单个环境或单行的失败只会缩小参与判定的环境集合，不会中断整次比对。

# 核心类型

  - CompositeKey：组合键，直接作为 map 键，文本形式为长度前缀编码。
  - NameRule：应用名称修正规则（前缀、后缀、精确替换）。
  - Decoder：FlatDecoder 解码 Apollo 的逐行配置，DocumentDecoder 解析
    Nacos 的 YAML 文档并按点号路径展开。
  - Fetcher：SQLFetcher 经 GORM 查询 MySQL，可选经 SSH 隧道。
  - Aggregator：并行查询、串行合并、补齐空值槽位、判定与标注。
  - Record / Run：统一记录与一次比对的完整输出。
  - Filter：展示层过滤条件。
  - Prober：SSH 与数据库连通性测试。
  - Service：读取配置与忽略列表的比对入口。

# 主要能力

  - 一致性判定：完全一致、部分一致（仅 PRO 与 PRE 相同）、不一致、未知。
  - 部分失败：失败环境在 Run.Environments 中为 false，不参与判定。
  - 可观测性：每次比对与每个环境查询各有一个 span，并记录 Prometheus 指标。
*/
package compare
