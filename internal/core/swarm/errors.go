package swarm

import "errors"

var (
	// ErrTransport 传输层（密钥、加密、多路复用）初始化失败
	ErrTransport = errors.New("swarm: transport setup failed")

	// ErrBehaviour 能力组合失败
	ErrBehaviour = errors.New("swarm: behaviour setup failed")

	// ErrListen 监听器绑定失败
	ErrListen = errors.New("swarm: listen failed")

	// ErrNoPeerID 拨号地址缺少 /p2p/ 部分
	ErrNoPeerID = errors.New("swarm: dial address has no peer id")
)
