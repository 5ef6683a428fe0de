// Copyright 2025-2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
Package skiplist 保存被手工标记为忽略的配置项。

# 概述

忽略列表以组合键为单位，比对开始时整体读取，skip/unskip 命令或
HTTP 接口修改后立即持久化，下一次比对即生效。

# 核心类型

  - Store：Load/Add/Remove/Close 接口，Load 满足 compare.SkipSource。
  - FileStore：文本文件，每行一个组合键，原子替换写入。
  - RedisStore：Redis 集合，多个实例共享。

# 主要能力

  - 格式兼容：读取时接受长度前缀编码，以及恰好三段的旧版 a+b+c 行，
    写入统一使用长度前缀编码。
  - 容错：无法解析的行或成员记录告警后跳过，不影响其余条目。
*/
package skiplist
