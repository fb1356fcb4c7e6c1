package adapter

// Adapter 上行字节流适配器，客户端读循环只依赖该接口
type Adapter interface {
	// Sniff 根据连接首批字节判断对端是否说本协议
	Sniff(prefix []byte) bool
	// ProcessBytes 喂入任意切分的字节，帧边界由实现自行维护
	ProcessBytes(p []byte) error
}
