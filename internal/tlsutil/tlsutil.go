// Package tlsutil 提供忽略列表 Redis 连接使用的 TLS 客户端配置
// （TLS 1.2+，仅 AEAD 密码套件）。
package tlsutil

import (
	"crypto/tls"
	"net"
)

// ClientConfig 返回加固的 TLS 客户端配置。
// addr 可以是 host 或 host:port，ServerName 取其中的主机名。
func ClientConfig(addr string) *tls.Config {
	host := addr
	if h, _, err := net.SplitHostPort(addr); err == nil {
		host = h
	}
	return &tls.Config{
		ServerName: host,
		MinVersion: tls.VersionTLS12,
		CipherSuites: []uint16{
			tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
			tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
		},
	}
}
