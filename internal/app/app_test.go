package app

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-meshnode/config"
	"github.com/dep2p/go-meshnode/internal/node"
	"github.com/dep2p/go-meshnode/internal/util/logger"
)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

// localConfig 单条目录项、仅本机地址、关闭 mDNS 的配置
func localConfig(role string, port int) *config.Config {
	cfg := config.NewConfig()
	cfg.Role = role
	cfg.Discovery.EnableMDNS = false
	cfg.Liveness.Interval = 0
	cfg.Peer.ListenAddrs = []string{"/ip4/127.0.0.1/tcp/0"}
	cfg.Bootstrap.ListenHost = "/ip4/127.0.0.1"
	cfg.Directory.Entries = []config.DirectoryEntry{{Seed: 1, Port: port, Host: "/ip4/127.0.0.1"}}
	return cfg
}

// TestOptions_Validate 两种角色的依赖图都完整
func TestOptions_Validate(t *testing.T) {
	for _, role := range []string{config.RolePeer, config.RoleBootstrap} {
		cfg := config.NewConfig()
		cfg.Role = role
		cfg.Metrics.Enabled = true
		assert.NoError(t, fx.ValidateApp(New(cfg).Options()), role)
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Role = "observer"
	err := New(cfg, WithStreams(Streams{})).Run(context.Background())
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

// TestRun_SeedNotInDirectory 单实例引导节点的 seed 必须在目录表中
func TestRun_SeedNotInDirectory(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Role = config.RoleBootstrap
	seed := uint8(99)
	cfg.Seed = &seed

	err := New(cfg, WithStreams(Streams{})).Run(context.Background())
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

// TestRun_ListenFailure 端口被占用时以构建错误退出
func TestRun_ListenFailure(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	port := l.Addr().(*net.TCPAddr).Port

	err = New(localConfig(config.RoleBootstrap, port), WithStreams(Streams{})).Run(context.Background())
	var be *node.BuildError
	require.True(t, errors.As(err, &be), "got %v", err)
	assert.Equal(t, node.StageListen, be.Stage)
}

// TestRun_PeerAgainstBootstrap 普通节点连上本机引导节点，输入结束后正常退出
func TestRun_PeerAgainstBootstrap(t *testing.T) {
	if testing.Short() {
		t.Skip("network test")
	}
	port := freePort(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	bootCtx, stopBoot := context.WithCancel(ctx)
	bootDone := make(chan error, 1)
	go func() {
		bootDone <- New(localConfig(config.RoleBootstrap, port), WithStreams(Streams{})).Run(bootCtx)
	}()

	// 等待引导节点开始监听
	require.Eventually(t, func() bool {
		c, err := net.Dial("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
		if err != nil {
			return false
		}
		_ = c.Close()
		return true
	}, 10*time.Second, 50*time.Millisecond)

	var out bytes.Buffer
	peerCfg := localConfig(config.RolePeer, port)
	peerCfg.Log.Level = "debug"
	// 卡在连接阶段时以 ErrConnectTimeout 退出，而不是等到 ctx 到期
	peerCfg.Peer.ConnectTimeout = config.Duration(10 * time.Second)
	err := New(peerCfg, WithStreams(Streams{
		Input:  strings.NewReader("hello mesh\n"),
		Output: &out,
	})).Run(ctx)
	require.NoError(t, err)
	require.NoError(t, ctx.Err(), "peer only stopped at the test deadline")
	assert.Contains(t, out.String(), "connecting-to-bootstrap")
	assert.Contains(t, out.String(), "active")

	stopBoot()
	assert.NoError(t, <-bootDone)
}

func TestMetricsServer(t *testing.T) {
	cfg := config.NewConfig()
	assert.Nil(t, provideMetrics(cfg))
	assert.Nil(t, newMetricsServer(cfg, nil, logger.Discard(), fxtest.NewLifecycle(t)))

	cfg.Metrics.Enabled = true
	cfg.Metrics.ListenAddr = "127.0.0.1:0"
	c := provideMetrics(cfg)
	require.NotNil(t, c)

	lc := fxtest.NewLifecycle(t)
	s := newMetricsServer(cfg, c, logger.Discard(), lc)
	lc.RequireStart()
	defer lc.RequireStop()

	resp, err := http.Get("http://" + s.Addr() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

// TestProvideLogger_File 日志同时写入输出与文件
func TestProvideLogger_File(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Log.File = filepath.Join(t.TempDir(), "meshnode.log")

	var out bytes.Buffer
	lc := fxtest.NewLifecycle(t)
	log, err := provideLogger(cfg, Streams{Output: &out}, lc)
	require.NoError(t, err)
	lc.RequireStart()

	log.Info("hello")
	lc.RequireStop()

	data, err := os.ReadFile(cfg.Log.File)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
	assert.Contains(t, out.String(), "hello")
}
