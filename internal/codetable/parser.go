package codetable

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// 导出文件每行一条注释形式的记录，例如：
//
//	(* 'Mixer/Gain/N-Gain' has channel code : 12 *)
var (
	reButton  = regexp.MustCompile(`\(\* '(.*)/(.*)/(.*)' has channel code : (\d+) \*\)`)
	rePreset  = regexp.MustCompile(`\(\* Preset '(.*)' has channel code : (\d+) \*\)`)
	reSpinner = regexp.MustCompile(`\(\* '(.*)/(.*)/(.*)'\((.*)\) has channel code : (\d+) \*\)`)
	reLevel   = regexp.MustCompile(`\(\* '(.*)/(.*)/(.*)' has level code : (\d+) \*\)`)
	reSource  = regexp.MustCompile(`\(\* Combo '((.*)/(.*)/(.*))' option '(.+)' has channel code : (\d+) \*\)`)
)

// Parse 解析导出文本。无法识别的行不会中断解析，以告警形式返回。
func Parse(r io.Reader) (*Table, []string, error) {
	t := New()
	var warnings []string
	// 组合框：同一控件的首行持有通道码，后续行只追加选项
	combos := make(map[string]int)

	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if !t.parseLine(line, combos) {
			warnings = append(warnings, fmt.Sprintf("line %d: unknown format: %s", lineNo, line))
		}
	}
	if err := sc.Err(); err != nil {
		return nil, warnings, fmt.Errorf("scan code file: %w", err)
	}
	return t, warnings, nil
}

func (t *Table) parseLine(line string, combos map[string]int) bool {
	if m := reButton.FindStringSubmatch(line); m != nil {
		t.Button[atoi(m[4])] = Descriptor{Device: m[1], Control: m[2], Type: m[3]}
		return true
	}
	if m := rePreset.FindStringSubmatch(line); m != nil {
		t.Preset[atoi(m[2])] = Descriptor{Name: m[1]}
		return true
	}
	if m := reSpinner.FindStringSubmatch(line); m != nil {
		t.Spinner[atoi(m[5])] = Descriptor{Device: m[1], Control: m[2], Type: m[3], Direction: m[4]}
		return true
	}
	if m := reLevel.FindStringSubmatch(line); m != nil {
		t.Level[atoi(m[4])] = Descriptor{Device: m[1], Control: m[2], Type: m[3]}
		return true
	}
	if m := reSource.FindStringSubmatch(line); m != nil {
		if code, ok := combos[m[1]]; ok {
			d := t.Source[code]
			d.Options = append(d.Options, m[5])
			t.Source[code] = d
			return true
		}
		code := atoi(m[6])
		combos[m[1]] = code
		t.Source[code] = Descriptor{Device: m[2], Control: m[3], Type: m[4], Options: []string{m[5]}}
		return true
	}
	return false
}

// 正则已保证为数字，仅在超出 int 范围时失败
func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return n
}

// Load 加载码表：.yaml/.yml 按快照读取，其余按厂商导出文本解析
func Load(path string) (*Table, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		t, err := ReadYAML(f)
		return t, nil, err
	default:
		return Parse(f)
	}
}

// WriteYAML 输出 YAML 快照
func (t *Table) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(t); err != nil {
		return fmt.Errorf("encode code table: %w", err)
	}
	return enc.Close()
}

// ReadYAML 读取 YAML 快照
func ReadYAML(r io.Reader) (*Table, error) {
	t := New()
	if err := yaml.NewDecoder(r).Decode(t); err != nil {
		return nil, fmt.Errorf("decode code table: %w", err)
	}
	// 快照中缺失的分组保持为空表
	if t.Button == nil {
		t.Button = make(map[int]Descriptor)
	}
	if t.Preset == nil {
		t.Preset = make(map[int]Descriptor)
	}
	if t.Spinner == nil {
		t.Spinner = make(map[int]Descriptor)
	}
	if t.Level == nil {
		t.Level = make(map[int]Descriptor)
	}
	if t.Source == nil {
		t.Source = make(map[int]Descriptor)
	}
	return t, nil
}
