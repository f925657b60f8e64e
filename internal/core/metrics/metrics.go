// Package metrics 收集节点运行指标
//
// 基于 prometheus client_golang，每个进程一个 Collector（独立 Registry），
// 每个节点通过 ForNode 得到带 node 标签的 NodeMetrics。
// NodeMetrics 的方法对 nil 接收者安全，未启用指标时直接传 nil。
//
//	c := metrics.New()
//	m := c.ForNode("bootstrap-0")
//	m.Event(types.KindHandshakeReceived)
//	http.Handle("/metrics", c.Handler())
package metrics

import (
	"net/http"

	lpmetrics "github.com/libp2p/go-libp2p/core/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dep2p/go-meshnode/pkg/types"
)

const namespace = "meshnode"

// 结果标签
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Collector 进程级指标集合
type Collector struct {
	reg *prometheus.Registry

	events    *prometheus.CounterVec
	rounds    *prometheus.CounterVec
	publishes *prometheus.CounterVec
	phase     *prometheus.GaugeVec

	bandwidth *lpmetrics.BandwidthCounter
}

// New 创建 Collector 并注册全部指标
func New() *Collector {
	c := &Collector{
		reg: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Events processed by the node event loop.",
		}, []string{"node", "kind"}),
		rounds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bootstrap_rounds_total",
			Help:      "Routing bootstrap rounds triggered.",
		}, []string{"node", "result"}),
		publishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_total",
			Help:      "Broadcast publish attempts.",
		}, []string{"node", "result"}),
		phase: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "phase",
			Help:      "Current event loop phase (numeric).",
		}, []string{"node"}),
		bandwidth: lpmetrics.NewBandwidthCounter(),
	}

	bw := c.bandwidth
	c.reg.MustRegister(
		c.events, c.rounds, c.publishes, c.phase,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "transport_bytes",
			Help:        "Total transport bytes.",
			ConstLabels: prometheus.Labels{"direction": "in"},
		}, func() float64 { return float64(bw.GetBandwidthTotals().TotalIn) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "transport_bytes",
			Help:        "Total transport bytes.",
			ConstLabels: prometheus.Labels{"direction": "out"},
		}, func() float64 { return float64(bw.GetBandwidthTotals().TotalOut) }),
	)
	return c
}

// Registry 返回底层 Registry
func (c *Collector) Registry() *prometheus.Registry { return c.reg }

// Handler 返回 /metrics HTTP 处理器
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}

// Bandwidth 返回传输层带宽计数器，供 host 构建时挂载
func (c *Collector) Bandwidth() *lpmetrics.BandwidthCounter {
	if c == nil {
		return nil
	}
	return c.bandwidth
}

// ForNode 返回节点级视图；c 为 nil 时返回 nil
func (c *Collector) ForNode(node string) *NodeMetrics {
	if c == nil {
		return nil
	}
	return &NodeMetrics{c: c, node: node}
}

// NodeMetrics 单个节点的指标视图
type NodeMetrics struct {
	c    *Collector
	node string
}

// Event 记录一个已处理事件
func (m *NodeMetrics) Event(kind types.EventKind) {
	if m == nil {
		return
	}
	m.c.events.WithLabelValues(m.node, kind.String()).Inc()
}

// BootstrapRound 记录一次路由引导
func (m *NodeMetrics) BootstrapRound(err error) {
	if m == nil {
		return
	}
	m.c.rounds.WithLabelValues(m.node, result(err)).Inc()
}

// Publish 记录一次广播发布
func (m *NodeMetrics) Publish(err error) {
	if m == nil {
		return
	}
	m.c.publishes.WithLabelValues(m.node, result(err)).Inc()
}

// Phase 记录阶段切换
func (m *NodeMetrics) Phase(p types.Phase) {
	if m == nil {
		return
	}
	m.c.phase.WithLabelValues(m.node).Set(float64(p))
}

func result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}
