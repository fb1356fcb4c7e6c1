// Package api 设备控制 HTTP 接口
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/soundweb-gateway/internal/api/middleware"
	"github.com/taoyao-code/soundweb-gateway/internal/client"
	"github.com/taoyao-code/soundweb-gateway/internal/codetable"
	"github.com/taoyao-code/soundweb-gateway/internal/protocol/soundweb"
	"github.com/taoyao-code/soundweb-gateway/internal/state"
	pgstorage "github.com/taoyao-code/soundweb-gateway/internal/storage/pg"
)

// Device 设备连接；断开后不会自动重连，由调用方经 /api/connect 重新建立
type Device interface {
	Connect(ctx context.Context) error
	Close() error
	SetValue(ctx context.Context, group string, id byte, value uint16) error
	RawMsg(ctx context.Context, handle, method uint32, value int16) error
	Connected() bool
	ConnID() string
}

// EventLog 事件审计日志
type EventLog interface {
	RecentEvents(ctx context.Context, limit int) ([]pgstorage.EventRecord, error)
}

// Handler 控制接口处理器；codes、events 可为 nil
type Handler struct {
	dev    Device
	store  state.Store
	codes  *codetable.Table
	events EventLog
	logger *zap.Logger
}

// NewHandler 创建处理器
func NewHandler(dev Device, store state.Store, codes *codetable.Table, events EventLog, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{dev: dev, store: store, codes: codes, events: events, logger: logger}
}

type setValueRequest struct {
	Group string `json:"group" binding:"required"`
	ID    *int   `json:"id" binding:"required,min=0,max=255"`
	Value *int   `json:"value" binding:"required,min=0,max=65535"`
}

type rawMsgRequest struct {
	Handle uint32 `json:"handle"`
	Method uint32 `json:"method"`
	Value  int16  `json:"value"`
}

// Status 设备连接状态
func (h *Handler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"connected": h.dev.Connected(),
		"conn_id":   h.dev.ConnID(),
	})
}

// Connect 建立设备连接
func (h *Handler) Connect(c *gin.Context) {
	err := h.dev.Connect(c.Request.Context())
	switch {
	case err == nil:
		h.logger.Info("device connect requested", zap.String("request_id", middleware.RequestIDFrom(c)))
		h.Status(c)
	case errors.Is(err, client.ErrAlreadyConnected):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, client.ErrDialSuspended):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	}
}

// Disconnect 主动断开设备连接
func (h *Handler) Disconnect(c *gin.Context) {
	if err := h.dev.Close(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	h.logger.Info("device disconnect requested", zap.String("request_id", middleware.RequestIDFrom(c)))
	h.Status(c)
}

// SetValue 下发 SET_VALUE
func (h *Handler) SetValue(c *gin.Context) {
	var req setValueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err := h.dev.SetValue(c.Request.Context(), req.Group, byte(*req.ID), uint16(*req.Value))
	if err != nil {
		h.sendError(c, "set value", err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"group": req.Group, "id": *req.ID, "value": *req.Value})
}

// RawMsg 下发 RAW_MSG
func (h *Handler) RawMsg(c *gin.Context) {
	var req rawMsgRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.dev.RawMsg(c.Request.Context(), req.Handle, req.Method, req.Value); err != nil {
		h.sendError(c, "raw msg", err)
		return
	}
	c.JSON(http.StatusAccepted, req)
}

func (h *Handler) sendError(c *gin.Context, op string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, soundweb.ErrInvalidGroup):
		status = http.StatusBadRequest
	case errors.Is(err, client.ErrNotConnected):
		status = http.StatusServiceUnavailable
	case errors.Is(err, client.ErrWriteQueueTimeout), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	if status >= http.StatusInternalServerError {
		h.logger.Warn(op+" failed",
			zap.String("request_id", middleware.RequestIDFrom(c)),
			zap.Error(err),
		)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// ListValues 所有控件的最后已知值
func (h *Handler) ListValues(c *gin.Context) {
	values, err := h.store.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"values": values})
}

// GetValue 单个控件的最后已知值
func (h *Handler) GetValue(c *gin.Context) {
	g, ok := soundweb.ParseGroup(c.Param("group"))
	if !ok {
		invalidGroup(c)
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 8)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	v, err := h.store.Get(c.Request.Context(), g, byte(id))
	if errors.Is(err, state.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, v)
}

// ResolveCode 通道码 -> 控件描述
func (h *Handler) ResolveCode(c *gin.Context) {
	g, ok := h.codeGroup(c)
	if !ok {
		return
	}
	code, err := strconv.Atoi(c.Param("code"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid code"})
		return
	}
	d, err := h.codes.Resolve(g, code)
	if err != nil {
		codeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"group": g.String(), "code": code, "descriptor": d})
}

// FindCode 控件描述 -> 通道码
func (h *Handler) FindCode(c *gin.Context) {
	g, ok := h.codeGroup(c)
	if !ok {
		return
	}
	want := codetable.Descriptor{
		Device:    c.Query("device"),
		Control:   c.Query("control"),
		Type:      c.Query("type"),
		Direction: c.Query("direction"),
		Name:      c.Query("name"),
	}
	code, err := h.codes.Find(g, want)
	if err != nil {
		codeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"group": g.String(), "code": code})
}

func (h *Handler) codeGroup(c *gin.Context) (soundweb.Group, bool) {
	if h.codes == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "code table not loaded"})
		return 0, false
	}
	g, ok := soundweb.ParseGroup(c.Param("group"))
	if !ok {
		invalidGroup(c)
		return 0, false
	}
	return g, true
}

// invalidGroup 400 并附带可用分组名
func invalidGroup(c *gin.Context) {
	groups := soundweb.Groups()
	names := make([]string, 0, len(groups))
	for _, g := range groups {
		names = append(names, g.String())
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid group", "groups": names})
}

func codeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, codetable.ErrGroupNotImplemented):
		c.JSON(http.StatusNotImplemented, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	}
}

// RecentEvents 最近的协议事件
func (h *Handler) RecentEvents(c *gin.Context) {
	if h.events == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "event log disabled"})
		return
	}
	limit := 100
	if v := c.Query("limit"); v != "" {
		if vv, e := strconv.Atoi(v); e == nil {
			limit = vv
		}
	}
	events, err := h.events.RecentEvents(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}
