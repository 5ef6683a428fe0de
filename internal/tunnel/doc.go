// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by a MIT license that can be
// found in the LICENSE file.

/*
Package tunnel 提供经 SSH 跳板机访问数据库的本地端口转发。

# 概述

Open 使用密码登录 SSH（同时支持 keyboard-interactive），在
127.0.0.1 的随机端口监听，把每个入站连接通过 direct-tcpip 通道
转发到数据库地址。调用方把数据库连接指向 LocalAddr 即可。

# 核心类型

  - Tunnel：一条转发隧道，LocalAddr 返回本地监听地址，
    Close 停止监听、断开 SSH 并等待转发协程退出。

# 主要能力

  - 主机密钥校验：配置 known_hosts 文件时使用 knownhosts 校验，
    否则接受任意主机密钥。
  - 超时控制：ctx 截止时间与超时参数同时约束 TCP 连接和 SSH 握手。
  - 连通性探测：Probe 只验证登录，不建立转发。
*/
package tunnel
