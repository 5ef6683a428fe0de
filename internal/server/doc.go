// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 server 提供比对服务 HTTP 端口与指标端口的生命周期管理。

# 概述

本包通过 Manager 封装 net/http.Server，统一管理监听、服务、
关闭与错误传播流程，内置 SIGINT/SIGTERM 信号处理。

# 核心类型

  - Manager：HTTP 服务器管理器，持有 http.Server、net.Listener
    与异步错误通道。
  - Config：监听地址、读写超时、空闲超时、最大请求头大小与
    优雅关闭超时，可由 FromServerConfig 从应用配置生成。

# 主要能力

  - 非阻塞启动：Start 在后台 goroutine 中运行服务，端口为 0 时
    可通过 Addr 取得实际监听地址。
  - 优雅关闭：Shutdown 在配置的超时内完成请求排空。
  - 等待退出：Wait 监听信号、上下文取消与服务异常。
*/
package server
