package soundweb

import "github.com/taoyao-code/soundweb-gateway/internal/protocol/adapter"

// Sink 解码事件接收方
type Sink interface {
	// OnFrame 校验通过的负载（调用方负责回复 ACK）
	OnFrame(payload []byte)
	// OnChecksumInvalid 校验失败的帧（调用方负责回复 NAK）
	OnChecksumInvalid(ev Event)
	OnAck()
	OnNak()
}

var _ adapter.Adapter = (*Adapter)(nil)

// Adapter Soundweb 协议适配器：流式解码 + 事件分发
type Adapter struct {
	decoder *Decoder
	sink    Sink
}

// NewAdapter 创建适配器，每个连接一个
func NewAdapter(sink Sink) *Adapter {
	return &Adapter{decoder: NewDecoder(), sink: sink}
}

// Reset 连接重建时复位解码器
func (a *Adapter) Reset() { a.decoder.Reset() }

// ProcessBytes 处理上行字节流，解码过程不会失败
func (a *Adapter) ProcessBytes(p []byte) error {
	for _, ev := range a.decoder.Push(p) {
		switch ev.Kind {
		case EventMessage:
			a.sink.OnFrame(ev.Payload)
		case EventChecksumInvalid:
			a.sink.OnChecksumInvalid(ev)
		case EventAck:
			a.sink.OnAck()
		case EventNak:
			a.sink.OnNak()
		}
	}
	return nil
}

// Sniff 粗略判断是否为 Soundweb 数据（首字节为 STX/ACK/NAK）
func (a *Adapter) Sniff(prefix []byte) bool {
	if len(prefix) == 0 {
		return false
	}
	switch prefix[0] {
	case STX, ACK, NAK:
		return true
	}
	return false
}
