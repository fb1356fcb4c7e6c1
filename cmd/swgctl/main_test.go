package main

import (
	"bytes"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taoyao-code/soundweb-gateway/internal/protocol/soundweb"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := rootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestEncode(t *testing.T) {
	out, err := execute(t, "encode", "set-value", "SW_AMX_LEVEL", "5", "1000")
	require.NoError(t, err)
	assert.Equal(t, "02 80 05 05 1B 83 E8 6B 03\n", out)

	_, err = execute(t, "encode", "set-value", "SW_AMX_FADER", "5", "1000")
	assert.ErrorIs(t, err, soundweb.ErrInvalidGroup)

	_, err = execute(t, "encode", "set-value", "SW_AMX_LEVEL", "300", "1")
	assert.Error(t, err)

	out, err = execute(t, "encode", "raw", "0x01020304", "7", "-1")
	require.NoError(t, err)
	assert.Equal(t, hexBytes(soundweb.Encode(soundweb.EncodeRawMsg(0x01020304, 7, -1)))+"\n", out)
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"首帧被丢弃", []string{"decode", "02 80 05 05 1B 83 E8 6B 03"}, "no events\n"},
		{"保留首帧", []string{"decode", "--keep-first", "028005051B83E86B03"}, "message 80 05 05 03 E8 SET_VALUE SW_AMX_LEVEL id=5 value=1000\n"},
		{"校验失败", []string{"decode", "--keep-first", "02 80 05 05 1B 83 E8 6A 03"}, "checksum_invalid received=0x6A residual=0x01\n"},
		{"控制字节", []string{"decode", "06", "15"}, "ack\nnak\n"},
		{"未知命令", []string{"decode", "--keep-first", "02 81 41 C0 03"}, "message 81 41 (unrecognized command: SET_STRING)\n"},
		{"非协议命令", []string{"decode", "--keep-first", "02 85 41 C4 03"}, "message 85 41 (unrecognized command: unknown code 0x85)\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}

	_, err := execute(t, "decode", "zz")
	assert.Error(t, err)
}

func TestCodes(t *testing.T) {
	dir := t.TempDir()
	export := filepath.Join(dir, "export.txt")
	require.NoError(t, os.WriteFile(export, []byte(
		"(* 'Lobby/Gain/N-Gain' has level code : 5 *)\n(* Preset 'Evening' has channel code : 10 *)\nnoise\n"), 0o600))
	snapshot := filepath.Join(dir, "codes.yaml")

	out, err := execute(t, "codes", "groups")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "0\tSW_AMX_BUTTON\n1\tSW_AMX_TOGGLE\n"))
	assert.Contains(t, out, "7\tSW_AMX_TEXT\n")

	out, err = execute(t, "codes", "convert", export, snapshot)
	require.NoError(t, err)
	assert.Contains(t, out, "warning: line 3")
	assert.Contains(t, out, "2 entries written")

	out, err = execute(t, "codes", "resolve", snapshot, "SW_AMX_LEVEL", "5")
	require.NoError(t, err)
	assert.Contains(t, out, `"control": "Gain"`)

	out, err = execute(t, "codes", "find", snapshot, "SW_AMX_PRESET", "--name", "Evening")
	require.NoError(t, err)
	assert.Equal(t, "10\n", out)

	_, err = execute(t, "codes", "resolve", snapshot, "SW_AMX_TEXT", "1")
	assert.Error(t, err)
}

func TestSend(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	got := make(chan []byte, 1)
	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		buf := make([]byte, 9)
		_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
		if _, err := io.ReadFull(c, buf); err == nil {
			got <- buf
		}
		// 等待客户端关闭
		_, _ = io.Copy(io.Discard, c)
	}()

	port := strconv.Itoa(ln.Addr().(*net.TCPAddr).Port)
	out, err := execute(t, "send", "--host", "127.0.0.1", "--port", port, "--linger", "50ms", "set-value", "SW_AMX_LEVEL", "5", "1000")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "-> 02 80 05 05 1B 83 E8 6B 03"))

	select {
	case b := <-got:
		assert.Equal(t, []byte{0x02, 0x80, 0x05, 0x05, 0x1B, 0x83, 0xE8, 0x6B, 0x03}, b)
	case <-time.After(2 * time.Second):
		t.Fatal("device received nothing")
	}
}
