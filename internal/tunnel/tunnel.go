package tunnel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/BaSui01/configcomparer/config"
	"github.com/BaSui01/configcomparer/internal/ctxkeys"
)

// ErrClosed 隧道已关闭
var ErrClosed = errors.New("tunnel is closed")

// =============================================================================
// 🚇 SSH 本地端口转发
// =============================================================================

// Tunnel 在 127.0.0.1 的随机端口监听，把每个连接经 SSH 转发到远端地址
type Tunnel struct {
	client   *ssh.Client
	listener net.Listener
	remote   string
	logger   *zap.Logger

	wg        sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
}

// Open 登录 SSH 并开始转发到 remoteAddr
func Open(ctx context.Context, cfg config.SSHConfig, remoteAddr string, timeout time.Duration, logger *zap.Logger) (*Tunnel, error) {
	client, err := Dial(ctx, cfg, timeout, logger)
	if err != nil {
		return nil, err
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("listen on loopback: %w", err)
	}

	t := &Tunnel{
		client:   client,
		listener: listener,
		remote:   remoteAddr,
		logger: logger.With(
			zap.String("component", "ssh_tunnel"),
			zap.String("ssh_host", cfg.Host),
			zap.Int("ssh_port", cfg.Port),
			zap.String("remote", remoteAddr),
		).With(ctxkeys.LogFields(ctx)...),
	}

	t.wg.Add(1)
	go t.acceptLoop()

	t.logger.Debug("ssh tunnel opened", zap.String("local", t.LocalAddr()))
	return t, nil
}

// Dial 建立 SSH 客户端连接。ctx 的截止时间同时约束 TCP 连接与握手。
func Dial(ctx context.Context, cfg config.SSHConfig, timeout time.Duration, logger *zap.Logger) (*ssh.Client, error) {
	clientCfg, err := clientConfig(cfg, timeout, logger)
	if err != nil {
		return nil, err
	}

	addr := cfg.Addr()
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial ssh %s: %w", addr, err)
	}

	deadline, ok := ctx.Deadline()
	if !ok && timeout > 0 {
		deadline, ok = time.Now().Add(timeout), true
	}
	if ok {
		_ = conn.SetDeadline(deadline)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, clientCfg)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ssh handshake with %s: %w", addr, err)
	}
	_ = conn.SetDeadline(time.Time{})

	return ssh.NewClient(sshConn, chans, reqs), nil
}

// Probe 只验证 SSH 登录，成功后立即断开
func Probe(ctx context.Context, cfg config.SSHConfig, timeout time.Duration, logger *zap.Logger) error {
	client, err := Dial(ctx, cfg, timeout, logger)
	if err != nil {
		return err
	}
	return client.Close()
}

func clientConfig(cfg config.SSHConfig, timeout time.Duration, logger *zap.Logger) (*ssh.ClientConfig, error) {
	var hostKeyCallback ssh.HostKeyCallback
	if cfg.KnownHostsFile != "" {
		cb, err := knownhosts.New(cfg.KnownHostsFile)
		if err != nil {
			return nil, fmt.Errorf("load known_hosts %s: %w", cfg.KnownHostsFile, err)
		}
		hostKeyCallback = cb
	} else {
		logger.Warn("ssh host key not verified, set known_hosts_file to enable verification",
			zap.String("ssh_host", cfg.Host),
			zap.Int("ssh_port", cfg.Port),
		)
		hostKeyCallback = ssh.InsecureIgnoreHostKey()
	}

	password := cfg.Password
	return &ssh.ClientConfig{
		User: cfg.User,
		Auth: []ssh.AuthMethod{
			ssh.Password(password),
			ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = password
				}
				return answers, nil
			}),
		},
		HostKeyCallback: hostKeyCallback,
		Timeout:         timeout,
	}, nil
}

// LocalAddr 本地监听地址，形如 127.0.0.1:40123
func (t *Tunnel) LocalAddr() string {
	return t.listener.Addr().String()
}

func (t *Tunnel) acceptLoop() {
	defer t.wg.Done()
	for {
		local, err := t.listener.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				t.logger.Warn("tunnel accept failed", zap.Error(err))
			}
			return
		}
		t.wg.Add(1)
		go t.forward(local)
	}
}

func (t *Tunnel) forward(local net.Conn) {
	defer t.wg.Done()

	remote, err := t.client.Dial("tcp", t.remote)
	if err != nil {
		t.logger.Warn("tunnel forward dial failed", zap.Error(err))
		_ = local.Close()
		return
	}

	var once sync.Once
	closeBoth := func() {
		_ = local.Close()
		_ = remote.Close()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = io.Copy(remote, local)
		once.Do(closeBoth)
	}()
	_, _ = io.Copy(local, remote)
	once.Do(closeBoth)
	<-done
}

// Close 停止监听并断开 SSH，等待所有转发结束，可重复调用
func (t *Tunnel) Close() error {
	t.closeOnce.Do(func() {
		listenErr := t.listener.Close()
		clientErr := t.client.Close()
		t.wg.Wait()
		t.closeErr = errors.Join(listenErr, clientErr)
		t.logger.Debug("ssh tunnel closed")
	})
	return t.closeErr
}
