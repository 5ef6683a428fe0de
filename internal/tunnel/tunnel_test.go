package tunnel

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/BaSui01/configcomparer/config"
)

// =============================================================================
// 🧪 进程内 SSH 服务端
// =============================================================================

type testServer struct {
	addr   string
	signer ssh.Signer
}

func newTestSigner(t *testing.T) ssh.Signer {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	signer, err := ssh.NewSignerFromKey(priv)
	require.NoError(t, err)
	return signer
}

// startSSHServer 启动只支持密码登录与 direct-tcpip 的 SSH 服务
func startSSHServer(t *testing.T, user, password string) *testServer {
	t.Helper()

	signer := newTestSigner(t)
	cfg := &ssh.ServerConfig{
		PasswordCallback: func(meta ssh.ConnMetadata, pass []byte) (*ssh.Permissions, error) {
			if meta.User() == user && string(pass) == password {
				return nil, nil
			}
			return nil, assert.AnError
		},
	}
	cfg.AddHostKey(signer)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go serveSSHConn(conn, cfg)
		}
	}()

	return &testServer{addr: ln.Addr().String(), signer: signer}
}

func serveSSHConn(conn net.Conn, cfg *ssh.ServerConfig) {
	_, chans, reqs, err := ssh.NewServerConn(conn, cfg)
	if err != nil {
		_ = conn.Close()
		return
	}
	go ssh.DiscardRequests(reqs)

	for newCh := range chans {
		if newCh.ChannelType() != "direct-tcpip" {
			_ = newCh.Reject(ssh.UnknownChannelType, "unsupported")
			continue
		}
		var payload struct {
			Host     string
			Port     uint32
			OrigHost string
			OrigPort uint32
		}
		if err := ssh.Unmarshal(newCh.ExtraData(), &payload); err != nil {
			_ = newCh.Reject(ssh.ConnectionFailed, "bad payload")
			continue
		}
		target, err := net.Dial("tcp", net.JoinHostPort(payload.Host, strconv.Itoa(int(payload.Port))))
		if err != nil {
			_ = newCh.Reject(ssh.ConnectionFailed, err.Error())
			continue
		}
		ch, chReqs, err := newCh.Accept()
		if err != nil {
			_ = target.Close()
			continue
		}
		go ssh.DiscardRequests(chReqs)
		go func() {
			defer ch.Close()
			defer target.Close()
			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = io.Copy(target, ch)
			}()
			_, _ = io.Copy(ch, target)
			_ = ch.CloseWrite()
			wg.Wait()
		}()
	}
}

// startEchoServer 代替数据库的回显服务
func startEchoServer(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				_, _ = io.Copy(conn, conn)
			}()
		}
	}()
	return ln.Addr().String()
}

func sshConfigFor(t *testing.T, addr, user, password string) config.SSHConfig {
	host, port, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	p, err := strconv.Atoi(port)
	require.NoError(t, err)
	return config.SSHConfig{Enabled: true, Host: host, Port: p, User: user, Password: password}
}

// =============================================================================
// 🧪 Tunnel 测试
// =============================================================================

func TestOpen_ForwardsTraffic(t *testing.T) {
	server := startSSHServer(t, "ops", "secret")
	echo := startEchoServer(t)

	tun, err := Open(context.Background(), sshConfigFor(t, server.addr, "ops", "secret"), echo, 5*time.Second, zap.NewNop())
	require.NoError(t, err)
	defer tun.Close()

	assert.Contains(t, tun.LocalAddr(), "127.0.0.1:")

	conn, err := net.DialTimeout("tcp", tun.LocalAddr(), 5*time.Second)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))

	_, err = conn.Write([]byte("ping"))
	require.NoError(t, err)

	buf := make([]byte, 4)
	_, err = io.ReadFull(conn, buf)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(buf))
}

func TestOpen_WrongPassword(t *testing.T) {
	server := startSSHServer(t, "ops", "secret")

	_, err := Open(context.Background(), sshConfigFor(t, server.addr, "ops", "wrong"), "127.0.0.1:3306", 5*time.Second, zap.NewNop())
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "wrong")
}

func TestOpen_Unreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	_, err = Open(context.Background(), sshConfigFor(t, addr, "ops", "secret"), "127.0.0.1:3306", time.Second, zap.NewNop())
	assert.Error(t, err)
}

func TestTunnel_CloseIsIdempotent(t *testing.T) {
	server := startSSHServer(t, "ops", "secret")
	echo := startEchoServer(t)

	tun, err := Open(context.Background(), sshConfigFor(t, server.addr, "ops", "secret"), echo, 5*time.Second, zap.NewNop())
	require.NoError(t, err)

	addr := tun.LocalAddr()
	_ = tun.Close()
	_ = tun.Close()

	_, err = net.DialTimeout("tcp", addr, time.Second)
	assert.Error(t, err)
}

func TestProbe(t *testing.T) {
	server := startSSHServer(t, "ops", "secret")

	assert.NoError(t, Probe(context.Background(), sshConfigFor(t, server.addr, "ops", "secret"), 5*time.Second, zap.NewNop()))
	assert.Error(t, Probe(context.Background(), sshConfigFor(t, server.addr, "nobody", "secret"), 5*time.Second, zap.NewNop()))
}

func TestProbe_KnownHosts(t *testing.T) {
	server := startSSHServer(t, "ops", "secret")
	dir := t.TempDir()

	trusted := filepath.Join(dir, "known_hosts")
	line := knownhosts.Line([]string{server.addr}, server.signer.PublicKey())
	require.NoError(t, os.WriteFile(trusted, []byte(line+"\n"), 0o600))

	cfg := sshConfigFor(t, server.addr, "ops", "secret")
	cfg.KnownHostsFile = trusted
	assert.NoError(t, Probe(context.Background(), cfg, 5*time.Second, zap.NewNop()))

	mismatched := filepath.Join(dir, "known_hosts_other")
	other := knownhosts.Line([]string{server.addr}, newTestSigner(t).PublicKey())
	require.NoError(t, os.WriteFile(mismatched, []byte(other+"\n"), 0o600))

	cfg.KnownHostsFile = mismatched
	assert.Error(t, Probe(context.Background(), cfg, 5*time.Second, zap.NewNop()))

	cfg.KnownHostsFile = filepath.Join(dir, "missing")
	assert.Error(t, Probe(context.Background(), cfg, 5*time.Second, zap.NewNop()))
}

func TestProbe_WarnsWithoutKnownHosts(t *testing.T) {
	server := startSSHServer(t, "ops", "secret")
	dir := t.TempDir()

	core, logs := observer.New(zapcore.WarnLevel)
	cfg := sshConfigFor(t, server.addr, "ops", "secret")
	require.NoError(t, Probe(context.Background(), cfg, 5*time.Second, zap.New(core)))

	warnings := logs.FilterMessage("ssh host key not verified, set known_hosts_file to enable verification").All()
	require.Len(t, warnings, 1)
	assert.Equal(t, cfg.Host, warnings[0].ContextMap()["ssh_host"])

	trusted := filepath.Join(dir, "known_hosts")
	line := knownhosts.Line([]string{server.addr}, server.signer.PublicKey())
	require.NoError(t, os.WriteFile(trusted, []byte(line+"\n"), 0o600))
	cfg.KnownHostsFile = trusted

	require.NoError(t, Probe(context.Background(), cfg, 5*time.Second, zap.New(core)))
	assert.Equal(t, 1, logs.Len())
}
