package node

import (
	"errors"
	"fmt"

	"github.com/dep2p/go-meshnode/pkg/types"
)

// ════════════════════════════════════════════════════════════════════════════
// 错误定义
// ════════════════════════════════════════════════════════════════════════════

var (
	// ErrInvalidPort bootstrap 端口不在 1..65535
	ErrInvalidPort = errors.New("node: invalid listen port")

	// ErrEventsClosed 事件流在运行中关闭
	ErrEventsClosed = errors.New("node: event stream closed")

	// ErrConnectTimeout 在连接超时内未完成与 bootstrap 的握手
	ErrConnectTimeout = errors.New("node: bootstrap handshake timed out")

	// ErrAlreadyRunning Run 被重复调用
	ErrAlreadyRunning = errors.New("node: already running")
)

// Stage 构建阶段
type Stage string

const (
	StageIdentity  Stage = "identity"
	StageAddress   Stage = "address"
	StageListen    Stage = "listen"
	StageTransport Stage = "transport"
)

// BuildError 构建失败
//
// 携带角色与失败阶段，Unwrap 返回底层原因。
type BuildError struct {
	Role  types.Role
	Stage Stage
	Err   error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("node: build %s failed at %s: %v", e.Role, e.Stage, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }
