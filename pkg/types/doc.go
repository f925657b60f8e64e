// Package types 定义 meshnode 的公共数据结构
//
// 这是最底层的包，只依赖 libp2p core 中的基础标识类型。
//
// # 文件组织
//
//   - enums.go  - Role, Phase, Direction, RelayAction
//   - events.go - 复合事件 Event 及其全部变体
package types
