package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	cfgpkg "github.com/taoyao-code/soundweb-gateway/internal/config"
	"github.com/taoyao-code/soundweb-gateway/internal/metrics"
	"github.com/taoyao-code/soundweb-gateway/internal/protocol/adapter"
	"github.com/taoyao-code/soundweb-gateway/internal/protocol/soundweb"
)

var (
	// ErrTransport 套接字层失败，连接视为断开，不自动重连
	ErrTransport = errors.New("transport failure")
	// ErrNotConnected 当前没有设备连接
	ErrNotConnected = errors.New("device not connected")
	// ErrAlreadyConnected 重复连接
	ErrAlreadyConnected = errors.New("device already connected")
	// ErrWriteQueueTimeout 写队列已满且超时
	ErrWriteQueueTimeout = errors.New("write queue timeout")
)

// Hooks 对外事件回调，均在连接读协程中同步调用，不可阻塞
type Hooks struct {
	OnConnected      func()
	OnDisconnected   func()
	OnTransportError func(err error)
	// OnMessage 每个校验通过的帧，先于命令解析触发
	OnMessage    func(payload []byte)
	OnSetValue   func(v soundweb.SetValue)
	OnRawMessage func(data []byte)
	// OnSent 负载已进入写队列，在调用 Send 的协程中触发
	OnSent func(payload []byte)
}

// Client Soundweb 设备 TCP 客户端：
// 读协程独占解码器，写协程串行发送，收到合法帧回复 ACK，校验失败回复 NAK
type Client struct {
	cfg     cfgpkg.DeviceConfig
	logger  *zap.Logger
	hooks   Hooks
	m       *metrics.AppMetrics
	limiter *rate.Limiter
	breaker *dialBreaker

	mu  sync.Mutex // 串行化 Connect/Close
	cur atomic.Pointer[conn]
}

// New 创建客户端，m 可为 nil
func New(cfg cfgpkg.DeviceConfig, logger *zap.Logger, hooks Hooks, m *metrics.AppMetrics) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{cfg: cfg, logger: logger, hooks: hooks, m: m,
		breaker: newDialBreaker(cfg.DialFailThreshold, cfg.DialCooldown)}
	if cfg.SendRatePerSec > 0 {
		burst := cfg.SendBurst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.SendRatePerSec), burst)
	}
	return c
}

// Connect 建立连接并启动读写循环（非阻塞）
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur.Load() != nil {
		return ErrAlreadyConnected
	}

	addr := c.cfg.Addr()
	if wait, err := c.breaker.allow(); err != nil {
		return fmt.Errorf("%w: retry in %s", err, wait.Round(time.Second))
	}
	d := net.Dialer{Timeout: c.cfg.DialTimeout}
	nc, err := d.DialContext(ctx, "tcp", addr)
	c.breaker.done(err)
	if err != nil {
		err = fmt.Errorf("%w: dial %s: %v", ErrTransport, addr, err)
		c.transportError(err)
		return err
	}

	cc := newConn(c, nc)
	c.cur.Store(cc)
	if c.m != nil {
		c.m.Connected.Set(1)
	}
	c.logger.Info("device connected",
		zap.String("conn_id", cc.id),
		zap.String("addr", addr),
	)
	if c.hooks.OnConnected != nil {
		c.hooks.OnConnected()
	}
	go cc.run()
	return nil
}

// Connected 是否已连接
func (c *Client) Connected() bool { return c.cur.Load() != nil }

// ConnID 当前连接标识，未连接时为空
func (c *Client) ConnID() string {
	if cc := c.cur.Load(); cc != nil {
		return cc.id
	}
	return ""
}

// Done 当前连接的关闭通知；未连接时返回已关闭的通道
func (c *Client) Done() <-chan struct{} {
	if cc := c.cur.Load(); cc != nil {
		return cc.doneC
	}
	ch := make(chan struct{})
	close(ch)
	return ch
}

// Close 主动断开并等待读写循环退出，未连接时直接返回
func (c *Client) Close() error {
	c.mu.Lock()
	cc := c.cur.Load()
	c.mu.Unlock()
	if cc == nil {
		return nil
	}
	cc.stop(true)
	<-cc.doneC
	return nil
}

// SetValue 发送 SET_VALUE
func (c *Client) SetValue(ctx context.Context, group string, id byte, value uint16) error {
	payload, err := soundweb.EncodeSetValue(group, id, value)
	if err != nil {
		return err
	}
	return c.Send(ctx, payload)
}

// RawMsg 发送 RAW_MSG
func (c *Client) RawMsg(ctx context.Context, handle, method uint32, value int16) error {
	return c.Send(ctx, soundweb.EncodeRawMsg(handle, method, value))
}

// Send 编码负载并投递到写队列（受发送速率限制），不等待设备应答
func (c *Client) Send(ctx context.Context, payload []byte) error {
	cc := c.cur.Load()
	if cc == nil {
		return ErrNotConnected
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	if err := cc.write(ctx, soundweb.Encode(payload)); err != nil {
		return err
	}
	if c.m != nil && len(payload) > 0 {
		c.m.CommandsTotal.WithLabelValues("out", soundweb.CommandCode(payload[0]).String()).Inc()
	}
	if c.hooks.OnSent != nil {
		c.hooks.OnSent(payload)
	}
	return nil
}

func (c *Client) transportError(err error) {
	c.logger.Error("device transport error", zap.Error(err))
	if c.m != nil {
		c.m.TransportError.Inc()
	}
	if c.hooks.OnTransportError != nil {
		c.hooks.OnTransportError(err)
	}
}

// conn 单个 TCP 连接的生命周期；断开即丢弃，其中的半帧随之丢失
type conn struct {
	c       *Client
	id      string
	nc      net.Conn
	adapter adapter.Adapter
	writeC  chan []byte
	stopC   chan struct{}
	doneC   chan struct{}

	stopOnce   sync.Once
	deliberate atomic.Bool
	failed     atomic.Bool
}

func newConn(c *Client, nc net.Conn) *conn {
	size := c.cfg.WriteQueueSize
	if size <= 0 {
		size = 128
	}
	cc := &conn{
		c:      c,
		id:     uuid.NewString(),
		nc:     nc,
		writeC: make(chan []byte, size),
		stopC:  make(chan struct{}),
		doneC:  make(chan struct{}),
	}
	cc.adapter = soundweb.NewAdapter(&frameSink{cc: cc})
	return cc
}

func (cc *conn) stop(deliberate bool) {
	cc.stopOnce.Do(func() {
		cc.deliberate.Store(deliberate)
		close(cc.stopC)
		_ = cc.nc.Close()
	})
}

// fail 上报一次传输错误并关闭连接
func (cc *conn) fail(err error) {
	if cc.deliberate.Load() || !cc.failed.CompareAndSwap(false, true) {
		return
	}
	cc.c.transportError(fmt.Errorf("%w: %v", ErrTransport, err))
	cc.stop(false)
}

// write 复制后投递写队列，受写超时影响
func (cc *conn) write(ctx context.Context, b []byte) error {
	dup := make([]byte, len(b))
	copy(dup, b)
	to := cc.c.cfg.WriteTimeout
	if to <= 0 {
		to = 5 * time.Second
	}
	timer := time.NewTimer(to)
	defer timer.Stop()
	select {
	case cc.writeC <- dup:
		return nil
	case <-cc.stopC:
		return ErrNotConnected
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrWriteQueueTimeout
	}
}

// reply 读协程内回复 ACK/NAK
func (cc *conn) reply(b byte) {
	if err := cc.write(context.Background(), []byte{b}); err != nil {
		cc.c.logger.Warn("reply failed",
			zap.String("conn_id", cc.id),
			zap.String("reply", soundweb.SpecialName(b)),
			zap.Error(err),
		)
	}
}

func (cc *conn) writeLoop(done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-cc.stopC:
			return
		case msg := <-cc.writeC:
			if cc.c.cfg.WriteTimeout > 0 {
				_ = cc.nc.SetWriteDeadline(time.Now().Add(cc.c.cfg.WriteTimeout))
			}
			n, err := cc.nc.Write(msg)
			if cc.c.m != nil && n > 0 {
				cc.c.m.BytesSent.Add(float64(n))
			}
			if err != nil {
				cc.fail(err)
				return
			}
		}
	}
}

// sniff 首包初判；首字节不是 STX/ACK/NAK 时仅告警，解码器自行丢弃噪声
func (cc *conn) sniff(prefix []byte) {
	if cc.adapter.Sniff(prefix) {
		return
	}
	if cc.c.m != nil {
		cc.c.m.CodecErrors.WithLabelValues("unexpected_prefix").Inc()
	}
	cc.c.logger.Warn("unexpected first byte from device",
		zap.String("conn_id", cc.id),
		zap.String("prefix", fmt.Sprintf("% X", prefix[:min(len(prefix), 8)])),
	)
}

// run 启动读/写循环，阻塞直至连接结束
func (cc *conn) run() {
	doneW := make(chan struct{})
	go cc.writeLoop(doneW)

	buf := make([]byte, 4096)
	sniffed := false
	for {
		n, err := cc.nc.Read(buf)
		if n > 0 {
			if cc.c.m != nil {
				cc.c.m.BytesReceived.Add(float64(n))
			}
			if !sniffed {
				sniffed = true
				cc.sniff(buf[:n])
			}
			_ = cc.adapter.ProcessBytes(buf[:n])
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				cc.fail(err)
			}
			break
		}
	}
	cc.stop(false)
	<-doneW

	c := cc.c
	c.cur.CompareAndSwap(cc, nil)
	if c.m != nil {
		c.m.Connected.Set(0)
	}
	c.logger.Info("device disconnected",
		zap.String("conn_id", cc.id),
		zap.Bool("deliberate", cc.deliberate.Load()),
	)
	if c.hooks.OnDisconnected != nil {
		c.hooks.OnDisconnected()
	}
	close(cc.doneC)
}
