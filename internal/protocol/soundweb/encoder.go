package soundweb

// Checksum 计算负载的异或校验
func Checksum(p []byte) byte {
	var c byte
	for _, b := range p {
		c ^= b
	}
	return c
}

// Encode 将负载编码为完整的线路帧：
// STX | 转义负载 | 转义校验 | ETX
func Encode(payload []byte) []byte {
	// 最坏情况每字节扩展为两字节
	return AppendFrame(make([]byte, 0, 2*len(payload)+4), payload)
}

// AppendFrame 将编码后的帧追加到 dst
func AppendFrame(dst, payload []byte) []byte {
	dst = append(dst, STX)
	for _, b := range payload {
		switch {
		case IsSpecial(b):
			dst = append(dst, ESC, b+escOffset)
		case b == dupByte:
			// 设备侧 0xFF 会被重复，发送端须同样成对发送
			dst = append(dst, b, b)
		default:
			dst = append(dst, b)
		}
	}
	// 校验字节只转义，不做 0xFF 重复
	if c := Checksum(payload); IsSpecial(c) {
		dst = append(dst, ESC, c+escOffset)
	} else {
		dst = append(dst, c)
	}
	return append(dst, ETX)
}
