package soundweb

// EventKind 解码事件类型
type EventKind int

const (
	EventMessage         EventKind = iota + 1 // 校验通过的完整负载
	EventChecksumInvalid                      // 校验失败，应回复 NAK
	EventAck                                  // 收到 ACK
	EventNak                                  // 收到 NAK（协议未实现重发）
)

func (k EventKind) String() string {
	switch k {
	case EventMessage:
		return "message"
	case EventChecksumInvalid:
		return "checksum_invalid"
	case EventAck:
		return "ack"
	case EventNak:
		return "nak"
	default:
		return "unknown"
	}
}

// Event 解码器输出
//   - EventMessage: Payload 为去转义、去重后的负载（不含校验字节）
//   - EventChecksumInvalid: Payload 为帧体，Received 为收到的校验字节，Residual 为异或残差
type Event struct {
	Kind     EventKind
	Payload  []byte
	Received byte
	Residual byte
}

const defaultBodyCap = 64

// Decoder 流式帧解码器
// 每个连接一个实例，按字节折叠；状态完整保存跨调用的半帧进度，
// 因此任意切分输入与一次性输入结果一致。非并发安全，由单一读协程持有。
type Decoder struct {
	body       []byte // 复用缓冲，STX 时清空而非重新分配
	checksum   byte
	escPending bool
	dupPending bool
	primed     bool // 首帧已丢弃
}

// NewDecoder 创建解码器
func NewDecoder() *Decoder {
	return &Decoder{body: make([]byte, 0, defaultBodyCap)}
}

// Reset 恢复到新建状态，包括重新启用首帧丢弃（连接重建后复用解码器时调用）
func (d *Decoder) Reset() {
	d.resetFrame()
	d.primed = false
}

func (d *Decoder) resetFrame() {
	d.body = d.body[:0]
	d.checksum = 0
	d.escPending = false
	d.dupPending = false
}

// Push 处理一段上行字节并返回产生的事件，无事件时返回 nil
func (d *Decoder) Push(p []byte) []Event {
	var events []Event
	for _, b := range p {
		if ev, ok := d.step(b); ok {
			events = append(events, ev)
		}
	}
	return events
}

func (d *Decoder) step(b byte) (Event, bool) {
	switch b {
	case STX:
		d.resetFrame()
	case ETX:
		return d.finish()
	case ESC:
		d.escPending = true
	case ACK:
		return Event{Kind: EventAck}, true
	case NAK:
		return Event{Kind: EventNak}, true
	default:
		d.bodyByte(b)
	}
	return Event{}, false
}

// bodyByte 顺序不可调整：去重判断基于转义前的原始字节
func (d *Decoder) bodyByte(b byte) {
	if d.dupPending {
		d.dupPending = false
		return
	}
	if b == dupByte {
		d.dupPending = true
	}
	if d.escPending {
		b -= escOffset
		d.escPending = false
	}
	d.body = append(d.body, b)
	d.checksum ^= b
}

// finish 处理 ETX。ETX 不清空状态，只有 STX 会。
func (d *Decoder) finish() (Event, bool) {
	var received byte
	if n := len(d.body); n > 0 {
		received = d.body[n-1]
		d.body = d.body[:n-1]
	}
	// 链路建立后的第一帧通常是残帧
	if !d.primed {
		d.primed = true
		return Event{}, false
	}
	payload := make([]byte, len(d.body))
	copy(payload, d.body)
	if d.checksum == 0 {
		return Event{Kind: EventMessage, Payload: payload}, true
	}
	return Event{Kind: EventChecksumInvalid, Payload: payload, Received: received, Residual: d.checksum}, true
}
