// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 database 提供基于 GORM 的一次性数据库会话，供各环境的配置查询使用。

# 概述

每个环境在一次比对中只执行一条只读查询。Session 封装 GORM 与
database/sql 的连接池参数，打开后执行查询并在结束时关闭，
不在多次比对之间复用连接。

# 核心类型

  - Session：持有 GORM DB 实例与底层 sql.DB，提供 DB()、Ping()、
    Each()、Stats()、Close() 等方法。
  - PoolConfig：会话连接池配置，默认只保留极少的连接。
  - PoolStats：连接池统计信息。

# 主要能力

  - 方言无关：调用方传入 gorm.Dialector，生产使用 MySQL 方言，
    测试使用 go-sqlmock 连接。
  - 逐行回调：Each 把结果集逐行交给调用方，单行扫描失败不影响其他行。
  - 幂等关闭：Close 可重复调用。
*/
package database
