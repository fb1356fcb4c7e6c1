package soundweb

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	// ErrInvalidGroup 编码时分组名称未知
	ErrInvalidGroup = errors.New("invalid group")
	// ErrUnrecognizedCommand 负载首字节不是可解码的命令
	ErrUnrecognizedCommand = errors.New("unrecognized command")
	// ErrMalformedSetValue SET_VALUE 长度错误或分组未知
	ErrMalformedSetValue = errors.New("malformed set value")
)

const (
	setValueLen = 5
	rawMsgLen   = 11
)

// Command 解码后的命令
type Command interface {
	Code() CommandCode
}

// SetValue 设置控件数值
type SetValue struct {
	Group Group
	ID    byte
	Value uint16
}

func (SetValue) Code() CommandCode { return SetValueCmd }

// RawMsg 原始消息，命令字之后的内容不做解释
type RawMsg struct {
	Data []byte
}

func (RawMsg) Code() CommandCode { return RawMsgCmd }

// EncodeSetValue 构造 SET_VALUE 负载：
// 0x80 | group | id | valueBE[2]
func EncodeSetValue(group string, id byte, value uint16) ([]byte, error) {
	g, ok := ParseGroup(group)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidGroup, group)
	}
	return encodeSetValue(g, id, value), nil
}

func encodeSetValue(g Group, id byte, value uint16) []byte {
	buf := make([]byte, setValueLen)
	buf[0] = byte(SetValueCmd)
	buf[1] = byte(g)
	buf[2] = id
	binary.BigEndian.PutUint16(buf[3:], value)
	return buf
}

// Payload 返回该命令的负载
func (v SetValue) Payload() []byte { return encodeSetValue(v.Group, v.ID, v.Value) }

// EncodeRawMsg 构造 RAW_MSG 负载：
// 0x84 | handleBE[4] | methodBE[4] | valueBE[2]（有符号）
func EncodeRawMsg(handle, method uint32, value int16) []byte {
	buf := make([]byte, rawMsgLen)
	buf[0] = byte(RawMsgCmd)
	binary.BigEndian.PutUint32(buf[1:5], handle)
	binary.BigEndian.PutUint32(buf[5:9], method)
	binary.BigEndian.PutUint16(buf[9:11], uint16(value))
	return buf
}

// DecodeCommand 按首字节分发解码负载。
// SET_STRING / REQUEST_VALUE / REQUEST_STRING 虽为已知命令字，但没有解码规则，按未识别处理。
func DecodeCommand(payload []byte) (Command, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrUnrecognizedCommand)
	}
	switch code := CommandCode(payload[0]); code {
	case SetValueCmd:
		return decodeSetValue(payload)
	case RawMsgCmd:
		data := make([]byte, len(payload)-1)
		copy(data, payload[1:])
		return RawMsg{Data: data}, nil
	default:
		if !code.Known() {
			return nil, fmt.Errorf("%w: unknown code %s", ErrUnrecognizedCommand, code)
		}
		return nil, fmt.Errorf("%w: %s", ErrUnrecognizedCommand, code)
	}
}

func decodeSetValue(payload []byte) (Command, error) {
	if len(payload) != setValueLen {
		return nil, fmt.Errorf("%w: length %d", ErrMalformedSetValue, len(payload))
	}
	g := Group(payload[1])
	if !g.Valid() {
		return nil, fmt.Errorf("%w: group %d", ErrMalformedSetValue, payload[1])
	}
	return SetValue{
		Group: g,
		ID:    payload[2],
		Value: binary.BigEndian.Uint16(payload[3:5]),
	}, nil
}

// Fields 按 EncodeRawMsg 的布局拆分数据，长度不符时 ok=false
func (m RawMsg) Fields() (handle, method uint32, value int16, ok bool) {
	if len(m.Data) != rawMsgLen-1 {
		return 0, 0, 0, false
	}
	handle = binary.BigEndian.Uint32(m.Data[0:4])
	method = binary.BigEndian.Uint32(m.Data[4:8])
	value = int16(binary.BigEndian.Uint16(m.Data[8:10]))
	return handle, method, value, true
}
