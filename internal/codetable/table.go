// Package codetable 解析设备配置软件导出的通道码文件，提供 通道码 <-> 控件描述 的只读查询。
// 协议核心不依赖本包，仅供需要可读名称的调用方（控制接口）使用。
package codetable

import (
	"errors"
	"fmt"
	"sort"

	"github.com/taoyao-code/soundweb-gateway/internal/protocol/soundweb"
)

var (
	// ErrGroupNotImplemented 该分组没有通道码表（SW_AMX_TEXT）
	ErrGroupNotImplemented = errors.New("group not implemented")
	// ErrCodeNotFound 通道码不存在
	ErrCodeNotFound = errors.New("code not found")
	// ErrDescriptorNotFound 没有匹配描述的通道码
	ErrDescriptorNotFound = errors.New("descriptor not found")
)

// Descriptor 控件描述，不同表使用的字段不同：
//   - button/level: Device, Control, Type
//   - spinner: 另有 Direction
//   - preset: 仅 Name
//   - source: Device, Control, Type, Options
type Descriptor struct {
	Device    string   `yaml:"device,omitempty" json:"device,omitempty"`
	Control   string   `yaml:"control,omitempty" json:"control,omitempty"`
	Type      string   `yaml:"type,omitempty" json:"type,omitempty"`
	Direction string   `yaml:"direction,omitempty" json:"direction,omitempty"`
	Name      string   `yaml:"name,omitempty" json:"name,omitempty"`
	Options   []string `yaml:"options,omitempty" json:"options,omitempty"`
}

// matches 表内记录的每个非空字段都必须与查询一致
func (d Descriptor) matches(want Descriptor) bool {
	return field(d.Device, want.Device) &&
		field(d.Control, want.Control) &&
		field(d.Type, want.Type) &&
		field(d.Direction, want.Direction) &&
		field(d.Name, want.Name)
}

func field(have, want string) bool { return have == "" || have == want }

// Table 通道码表
type Table struct {
	Button  map[int]Descriptor `yaml:"button"`
	Preset  map[int]Descriptor `yaml:"preset"`
	Spinner map[int]Descriptor `yaml:"spinner"`
	Level   map[int]Descriptor `yaml:"level"`
	Source  map[int]Descriptor `yaml:"source"`
}

// New 创建空表
func New() *Table {
	return &Table{
		Button:  make(map[int]Descriptor),
		Preset:  make(map[int]Descriptor),
		Spinner: make(map[int]Descriptor),
		Level:   make(map[int]Descriptor),
		Source:  make(map[int]Descriptor),
	}
}

// codes 分组到码表；BUTTON/TOGGLE/LED 共用按钮表
func (t *Table) codes(g soundweb.Group) (map[int]Descriptor, error) {
	switch g {
	case soundweb.GroupButton, soundweb.GroupToggle, soundweb.GroupLED:
		return t.Button, nil
	case soundweb.GroupPreset:
		return t.Preset, nil
	case soundweb.GroupSpin:
		return t.Spinner, nil
	case soundweb.GroupLevel:
		return t.Level, nil
	case soundweb.GroupSource:
		return t.Source, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrGroupNotImplemented, g)
	}
}

// Resolve 通道码 -> 描述
func (t *Table) Resolve(g soundweb.Group, code int) (Descriptor, error) {
	m, err := t.codes(g)
	if err != nil {
		return Descriptor{}, err
	}
	d, ok := m[code]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %s/%d", ErrCodeNotFound, g, code)
	}
	return d, nil
}

// Find 描述 -> 通道码；多条匹配时返回最小的码
func (t *Table) Find(g soundweb.Group, want Descriptor) (int, error) {
	m, err := t.codes(g)
	if err != nil {
		return 0, err
	}
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	for _, k := range keys {
		if m[k].matches(want) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrDescriptorNotFound, g)
}

// Len 记录总数
func (t *Table) Len() int {
	return len(t.Button) + len(t.Preset) + len(t.Spinner) + len(t.Level) + len(t.Source)
}
