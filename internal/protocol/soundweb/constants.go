package soundweb

import "fmt"

// SpecialByte 线路控制字节
type SpecialByte = byte

// 控制字节（帧内出现时需要转义）
const (
	STX SpecialByte = 0x02 // 帧开始
	ETX SpecialByte = 0x03 // 帧结束
	ACK SpecialByte = 0x06 // 确认
	NAK SpecialByte = 0x15 // 否认（请求重发）
	ESC SpecialByte = 0x1B // 转义前缀
)

// escOffset 转义偏移：ESC 之后的字节 = 原值 + 0x80
const escOffset = 0x80

// dupByte 设备会在线路上重复发送的字节
const dupByte = 0xFF

var specialNames = map[byte]string{
	STX: "STX",
	ETX: "ETX",
	ACK: "ACK",
	NAK: "NAK",
	ESC: "ESC",
}

// IsSpecial 判断字节是否为控制字节
func IsSpecial(b byte) bool {
	_, ok := specialNames[b]
	return ok
}

// SpecialName 返回控制字节名称，非控制字节返回空串
func SpecialName(b byte) string { return specialNames[b] }

// CommandCode 命令字（负载首字节）
type CommandCode byte

const (
	SetValueCmd      CommandCode = 0x80
	SetStringCmd     CommandCode = 0x81
	RequestValueCmd  CommandCode = 0x82
	RequestStringCmd CommandCode = 0x83
	RawMsgCmd        CommandCode = 0x84
)

var commandNames = map[CommandCode]string{
	SetValueCmd:      "SET_VALUE",
	SetStringCmd:     "SET_STRING",
	RequestValueCmd:  "REQUEST_VALUE",
	RequestStringCmd: "REQUEST_STRING",
	RawMsgCmd:        "RAW_MSG",
}

var commandByName = invert(commandNames)

func (c CommandCode) String() string {
	if s, ok := commandNames[c]; ok {
		return s
	}
	return fmt.Sprintf("0x%02X", byte(c))
}

// Known 是否为协议定义的命令字
func (c CommandCode) Known() bool {
	_, ok := commandNames[c]
	return ok
}

// ParseCommand 按名称查找命令字
func ParseCommand(name string) (CommandCode, bool) {
	c, ok := commandByName[name]
	return c, ok
}

// Group 数值分组（控件类别）
type Group byte

const (
	GroupButton Group = iota
	GroupToggle
	GroupLED
	GroupPreset
	GroupSpin
	GroupLevel
	GroupSource
	GroupText
)

var groupNames = map[Group]string{
	GroupButton: "SW_AMX_BUTTON",
	GroupToggle: "SW_AMX_TOGGLE",
	GroupLED:    "SW_AMX_LED",
	GroupPreset: "SW_AMX_PRESET",
	GroupSpin:   "SW_AMX_SPIN",
	GroupLevel:  "SW_AMX_LEVEL",
	GroupSource: "SW_AMX_SOURCE",
	GroupText:   "SW_AMX_TEXT",
}

var groupByName = invert(groupNames)

func (g Group) String() string {
	if s, ok := groupNames[g]; ok {
		return s
	}
	return fmt.Sprintf("GROUP(%d)", byte(g))
}

// Valid 是否为已知分组
func (g Group) Valid() bool {
	_, ok := groupNames[g]
	return ok
}

// ParseGroup 按名称查找分组
func ParseGroup(name string) (Group, bool) {
	g, ok := groupByName[name]
	return g, ok
}

// Groups 按 id 顺序返回全部分组
func Groups() []Group {
	return []Group{GroupButton, GroupToggle, GroupLED, GroupPreset, GroupSpin, GroupLevel, GroupSource, GroupText}
}

func invert[K comparable](m map[K]string) map[string]K {
	out := make(map[string]K, len(m))
	for k, v := range m {
		out[v] = k
	}
	return out
}
