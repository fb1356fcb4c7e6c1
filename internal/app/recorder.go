package app

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/soundweb-gateway/internal/client"
	"github.com/taoyao-code/soundweb-gateway/internal/metrics"
	"github.com/taoyao-code/soundweb-gateway/internal/protocol/soundweb"
	"github.com/taoyao-code/soundweb-gateway/internal/state"
	pgstorage "github.com/taoyao-code/soundweb-gateway/internal/storage/pg"
)

// EventWriter 审计日志写入
type EventWriter interface {
	InsertEvent(ctx context.Context, ev pgstorage.EventRecord) error
}

// Recorder 将客户端事件写入数值存储与审计日志。
// 回调运行在连接读协程中，审计写入经有界队列交给后台协程。
type Recorder struct {
	store  state.Store
	audit  EventWriter
	m      *metrics.AppMetrics
	logger *zap.Logger

	queue  chan pgstorage.EventRecord
	connID atomic.Pointer[func() string]
	now    func() time.Time
}

// NewRecorder audit 为 nil 时不记录审计日志
func NewRecorder(store state.Store, audit EventWriter, m *metrics.AppMetrics, logger *zap.Logger, queueSize int) *Recorder {
	if queueSize <= 0 {
		queueSize = 1024
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{
		store:  store,
		audit:  audit,
		m:      m,
		logger: logger.With(zap.String("component", "recorder")),
		queue:  make(chan pgstorage.EventRecord, queueSize),
		now:    time.Now,
	}
}

// Attach 绑定连接标识来源
func (r *Recorder) Attach(src interface{ ConnID() string }) {
	fn := src.ConnID
	r.connID.Store(&fn)
}

// Hooks 生成客户端回调
func (r *Recorder) Hooks() client.Hooks {
	return client.Hooks{
		OnConnected:      func() { r.enqueue(pgstorage.DirectionIn, "connected", nil) },
		OnDisconnected:   func() { r.enqueue(pgstorage.DirectionIn, "disconnected", nil) },
		OnTransportError: func(err error) { r.enqueue(pgstorage.DirectionIn, "transport_error", []byte(err.Error())) },
		OnMessage: func(p []byte) {
			r.enqueue(pgstorage.DirectionIn, payloadKind(p), p)
		},
		OnSetValue: func(v soundweb.SetValue) {
			r.put(v, state.SourceDevice)
		},
		OnSent: func(p []byte) {
			r.enqueue(pgstorage.DirectionOut, payloadKind(p), p)
			if cmd, err := soundweb.DecodeCommand(p); err == nil {
				if v, ok := cmd.(soundweb.SetValue); ok {
					r.put(v, state.SourceAPI)
				}
			}
		},
	}
}

func payloadKind(p []byte) string {
	if len(p) == 0 {
		return "empty"
	}
	return soundweb.CommandCode(p[0]).String()
}

func (r *Recorder) put(v soundweb.SetValue, src state.Source) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := r.store.Put(ctx, state.NewValue(v, src, r.now())); err != nil {
		r.logger.Warn("store value failed",
			zap.String("group", v.Group.String()),
			zap.Uint8("id", v.ID),
			zap.Error(err),
		)
	}
}

func (r *Recorder) enqueue(direction, kind string, payload []byte) {
	if r.audit == nil {
		return
	}
	ev := pgstorage.EventRecord{
		Direction: direction,
		Kind:      kind,
		Payload:   append([]byte(nil), payload...),
		CreatedAt: r.now(),
	}
	if fn := r.connID.Load(); fn != nil {
		ev.ConnID = (*fn)()
	}
	select {
	case r.queue <- ev:
	default:
		r.count("dropped")
		r.logger.Warn("audit queue full, event dropped", zap.String("kind", kind))
	}
}

func (r *Recorder) count(result string) {
	if r.m != nil {
		r.m.AuditRecords.WithLabelValues(result).Inc()
	}
}

// Run 写入审计日志直至 ctx 结束，结束前尽量写完队列中的剩余记录
func (r *Recorder) Run(ctx context.Context) {
	if r.audit == nil {
		return
	}
	for {
		select {
		case ev := <-r.queue:
			r.write(ctx, ev)
		case <-ctx.Done():
			r.drain()
			return
		}
	}
}

func (r *Recorder) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	for {
		select {
		case ev := <-r.queue:
			r.write(ctx, ev)
		default:
			return
		}
	}
}

func (r *Recorder) write(ctx context.Context, ev pgstorage.EventRecord) {
	if err := r.audit.InsertEvent(ctx, ev); err != nil {
		r.count("error")
		r.logger.Warn("write audit event failed", zap.String("kind", ev.Kind), zap.Error(err))
		return
	}
	r.count("ok")
}
