package behaviour

import (
	"github.com/libp2p/go-libp2p/p2p/protocol/holepunch"

	"github.com/dep2p/go-meshnode/pkg/types"
)

// holePunchTracer 把打洞过程转成事件
//
// 上报开始、每次尝试、直连结果、协议错误与最终结果。
type holePunchTracer struct {
	emit Emitter
}

var _ holepunch.EventTracer = (*holePunchTracer)(nil)

func (t *holePunchTracer) Trace(evt *holepunch.Event) {
	if evt == nil {
		return
	}
	out := types.EvtHolePunch{Remote: evt.Remote, Stage: evt.Type}

	switch e := evt.Evt.(type) {
	case *holepunch.StartHolePunchEvt:
	case *holepunch.HolePunchAttemptEvt:
	case *holepunch.DirectDialEvt:
		out.Success = e.Success
		out.Elapsed = e.EllapsedTime
		out.Err = e.Error
	case *holepunch.ProtocolErrorEvt:
		out.Err = e.Error
	case *holepunch.EndHolePunchEvt:
		out.Success = e.Success
		out.Elapsed = e.EllapsedTime
		out.Err = e.Error
	default:
		return
	}
	t.emit(out)
}
