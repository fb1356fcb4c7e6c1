package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/taoyao-code/soundweb-gateway/internal/api/middleware"
	"github.com/taoyao-code/soundweb-gateway/internal/client"
	"github.com/taoyao-code/soundweb-gateway/internal/codetable"
	"github.com/taoyao-code/soundweb-gateway/internal/protocol/soundweb"
	"github.com/taoyao-code/soundweb-gateway/internal/state"
	pgstorage "github.com/taoyao-code/soundweb-gateway/internal/storage/pg"
)

type fakeDevice struct {
	connected bool
	err       error
	setValues []soundweb.SetValue
	raws      [][3]int64
}

func (d *fakeDevice) SetValue(_ context.Context, group string, id byte, value uint16) error {
	if d.err != nil {
		return d.err
	}
	if !d.connected {
		return client.ErrNotConnected
	}
	g, ok := soundweb.ParseGroup(group)
	if !ok {
		return fmt.Errorf("%w: %q", soundweb.ErrInvalidGroup, group)
	}
	d.setValues = append(d.setValues, soundweb.SetValue{Group: g, ID: id, Value: value})
	return nil
}

func (d *fakeDevice) RawMsg(_ context.Context, handle, method uint32, value int16) error {
	if !d.connected {
		return client.ErrNotConnected
	}
	d.raws = append(d.raws, [3]int64{int64(handle), int64(method), int64(value)})
	return nil
}

func (d *fakeDevice) Connect(context.Context) error {
	if d.err != nil {
		return d.err
	}
	if d.connected {
		return client.ErrAlreadyConnected
	}
	d.connected = true
	return nil
}

func (d *fakeDevice) Close() error {
	d.connected = false
	return nil
}

func (d *fakeDevice) Connected() bool { return d.connected }

func (d *fakeDevice) ConnID() string {
	if d.connected {
		return "conn-1"
	}
	return ""
}

type fakeEvents struct {
	limit int
}

func (f *fakeEvents) RecentEvents(_ context.Context, limit int) ([]pgstorage.EventRecord, error) {
	f.limit = limit
	return []pgstorage.EventRecord{{ID: 1, Direction: pgstorage.DirectionIn, Kind: "SET_VALUE"}}, nil
}

func newTestEngine(t *testing.T, dev Device, store state.Store, codes *codetable.Table, events EventLog) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, NewHandler(dev, store, codes, events, zap.NewNop()), middleware.AuthConfig{}, zap.NewNop())
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var rd *bytes.Reader
	if body != "" {
		rd = bytes.NewReader([]byte(body))
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestSetValue(t *testing.T) {
	tests := []struct {
		name      string
		connected bool
		body      string
		want      int
	}{
		{"成功", true, `{"group":"SW_AMX_LEVEL","id":5,"value":1000}`, http.StatusAccepted},
		{"零值合法", true, `{"group":"SW_AMX_BUTTON","id":0,"value":0}`, http.StatusAccepted},
		{"无效分组", true, `{"group":"SW_AMX_FADER","id":1,"value":1}`, http.StatusBadRequest},
		{"缺少字段", true, `{"group":"SW_AMX_LEVEL","id":1}`, http.StatusBadRequest},
		{"ID越界", true, `{"group":"SW_AMX_LEVEL","id":256,"value":1}`, http.StatusBadRequest},
		{"值越界", true, `{"group":"SW_AMX_LEVEL","id":1,"value":70000}`, http.StatusBadRequest},
		{"未连接", false, `{"group":"SW_AMX_LEVEL","id":5,"value":1000}`, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := &fakeDevice{connected: tt.connected}
			r := newTestEngine(t, dev, state.NewMemoryStore(), nil, nil)
			rr := do(r, http.MethodPost, "/api/values", tt.body)
			assert.Equal(t, tt.want, rr.Code, rr.Body.String())
			assert.NotEmpty(t, rr.Header().Get(middleware.RequestIDHeader))
			if tt.want == http.StatusAccepted {
				assert.Len(t, dev.setValues, 1)
			} else {
				assert.Empty(t, dev.setValues)
			}
		})
	}
}

func TestSetValue_QueueTimeout(t *testing.T) {
	dev := &fakeDevice{connected: true, err: client.ErrWriteQueueTimeout}
	r := newTestEngine(t, dev, state.NewMemoryStore(), nil, nil)
	rr := do(r, http.MethodPost, "/api/values", `{"group":"SW_AMX_LEVEL","id":5,"value":1}`)
	assert.Equal(t, http.StatusGatewayTimeout, rr.Code)

	dev.err = errors.New("boom")
	rr = do(r, http.MethodPost, "/api/values", `{"group":"SW_AMX_LEVEL","id":5,"value":1}`)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestRawMsg(t *testing.T) {
	dev := &fakeDevice{connected: true}
	r := newTestEngine(t, dev, state.NewMemoryStore(), nil, nil)

	rr := do(r, http.MethodPost, "/api/raw", `{"handle":16909060,"method":7,"value":-1}`)
	require.Equal(t, http.StatusAccepted, rr.Code)
	assert.Equal(t, [][3]int64{{16909060, 7, -1}}, dev.raws)

	rr = do(r, http.MethodPost, "/api/raw", `{"handle":1,"method":1,"value":40000}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	dev.connected = false
	rr = do(r, http.MethodPost, "/api/raw", `{"handle":1}`)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestStatus(t *testing.T) {
	r := newTestEngine(t, &fakeDevice{connected: true}, state.NewMemoryStore(), nil, nil)
	rr := do(r, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"connected":true,"conn_id":"conn-1"}`, rr.Body.String())
}

func TestConnectDisconnect(t *testing.T) {
	dev := &fakeDevice{}
	r := newTestEngine(t, dev, state.NewMemoryStore(), nil, nil)

	rr := do(r, http.MethodPost, "/api/connect", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"connected":true`)

	assert.Equal(t, http.StatusConflict, do(r, http.MethodPost, "/api/connect", "").Code)

	rr = do(r, http.MethodPost, "/api/disconnect", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"connected":false`)

	dev.err = fmt.Errorf("%w: dial refused", client.ErrTransport)
	assert.Equal(t, http.StatusBadGateway, do(r, http.MethodPost, "/api/connect", "").Code)

	dev.err = client.ErrDialSuspended
	assert.Equal(t, http.StatusServiceUnavailable, do(r, http.MethodPost, "/api/connect", "").Code)
}

func TestValues(t *testing.T) {
	store := state.NewMemoryStore()
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Put(context.Background(),
		state.NewValue(soundweb.SetValue{Group: soundweb.GroupLevel, ID: 5, Value: 1000}, state.SourceDevice, at)))
	r := newTestEngine(t, &fakeDevice{}, store, nil, nil)

	rr := do(r, http.MethodGet, "/api/values", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var list struct {
		Values []state.Value `json:"values"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.Len(t, list.Values, 1)
	assert.Equal(t, "SW_AMX_LEVEL", list.Values[0].GroupName)

	tests := []struct {
		name string
		path string
		want int
	}{
		{"存在", "/api/values/SW_AMX_LEVEL/5", http.StatusOK},
		{"不存在", "/api/values/SW_AMX_LEVEL/6", http.StatusNotFound},
		{"无效分组", "/api/values/LEVEL/5", http.StatusBadRequest},
		{"无效ID", "/api/values/SW_AMX_LEVEL/300", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, do(r, http.MethodGet, tt.path, "").Code)
		})
	}
}

func TestCodes(t *testing.T) {
	codes, _, err := codetable.Parse(strings.NewReader(
		"(* 'Lobby/Gain/N-Gain' has level code : 5 *)\n(* Preset 'Evening' has channel code : 10 *)\n"))
	require.NoError(t, err)
	r := newTestEngine(t, &fakeDevice{}, state.NewMemoryStore(), codes, nil)

	tests := []struct {
		name     string
		path     string
		want     int
		contains string
	}{
		{"解析电平码", "/api/codes/SW_AMX_LEVEL/5", http.StatusOK, `"control":"Gain"`},
		{"码不存在", "/api/codes/SW_AMX_LEVEL/6", http.StatusNotFound, "code not found"},
		{"文本分组", "/api/codes/SW_AMX_TEXT/1", http.StatusNotImplemented, "not implemented"},
		{"无效码", "/api/codes/SW_AMX_LEVEL/x", http.StatusBadRequest, "invalid code"},
		{"查找预设", "/api/codes/SW_AMX_PRESET?name=Evening", http.StatusOK, `"code":10`},
		{"查找电平", "/api/codes/SW_AMX_LEVEL?device=Lobby&control=Gain&type=N-Gain", http.StatusOK, `"code":5`},
		{"查找无匹配", "/api/codes/SW_AMX_LEVEL?device=Bar", http.StatusNotFound, "descriptor not found"},
		{"无效分组", "/api/codes/FADER/1", http.StatusBadRequest, `"groups":["SW_AMX_BUTTON","SW_AMX_TOGGLE"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(r, http.MethodGet, tt.path, "")
			assert.Equal(t, tt.want, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.contains)
		})
	}
}

func TestCodes_NotLoaded(t *testing.T) {
	r := newTestEngine(t, &fakeDevice{}, state.NewMemoryStore(), nil, nil)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/api/codes/SW_AMX_LEVEL/5", "").Code)
}

func TestEvents(t *testing.T) {
	r := newTestEngine(t, &fakeDevice{}, state.NewMemoryStore(), nil, nil)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/api/events", "").Code)

	events := &fakeEvents{}
	r = newTestEngine(t, &fakeDevice{}, state.NewMemoryStore(), nil, events)
	rr := do(r, http.MethodGet, "/api/events?limit=5", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 5, events.limit)
	assert.Contains(t, rr.Body.String(), "SET_VALUE")
}
