// Package meshnode 是一个基于 libp2p 的 P2P 覆盖网络节点
//
// 节点有两种角色：
//
//   - peer：监听后拨号 well-known bootstrap，握手双向完成后预约中继电路，
//     把标准输入的每一行作为一条 gossip 广播发布
//   - bootstrap：以确定性身份监听固定端口，写入目录种子后周期性引导路由表，
//     同时提供中继服务；同一进程可以错峰启动多个实例组成初始网格
//
// # 包结构
//
//	config                 配置（JSON + 环境变量 + 命令行）
//	internal/core/identity 种子/随机身份
//	internal/core/behaviour 按角色组合的能力（kad、gossipsub、relay、ping、mDNS）
//	internal/core/swarm    libp2p host 与统一事件流
//	internal/directory     bootstrap 目录表
//	internal/node          构建器与按角色的事件循环
//	internal/app           fx 进程装配
//	cmd/meshnode           命令行入口
//
// # 快速开始
//
//	meshnode -mode bootstrap -instances 4
//	meshnode -mode peer
package meshnode
