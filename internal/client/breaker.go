package client

import (
	"errors"
	"sync"
	"time"
)

// ErrDialSuspended 连续拨号失败，冷却期内不再拨号
var ErrDialSuspended = errors.New("dial suspended after repeated failures")

type breakerState int

const (
	breakerClosed   breakerState = iota // 正常拨号
	breakerOpen                         // 冷却中，直接拒绝
	breakerHalfOpen                     // 冷却结束，放行一次试探
)

func (s breakerState) String() string {
	switch s {
	case breakerClosed:
		return "closed"
	case breakerOpen:
		return "open"
	case breakerHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// dialBreaker 拨号熔断：threshold 次连续失败后打开，cooldown 后放行一次试探，
// 试探成功则关闭，失败则重新打开
type dialBreaker struct {
	mu        sync.Mutex
	state     breakerState
	failures  int
	openedAt  time.Time
	threshold int
	cooldown  time.Duration
	now       func() time.Time
}

// newDialBreaker threshold<=0 时返回 nil（不启用）
func newDialBreaker(threshold int, cooldown time.Duration) *dialBreaker {
	if threshold <= 0 {
		return nil
	}
	if cooldown <= 0 {
		cooldown = 10 * time.Second
	}
	return &dialBreaker{threshold: threshold, cooldown: cooldown, now: time.Now}
}

// allow 拨号前调用；返回剩余冷却时间
func (b *dialBreaker) allow() (time.Duration, error) {
	if b == nil {
		return 0, nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case breakerOpen:
		if elapsed := b.now().Sub(b.openedAt); elapsed < b.cooldown {
			return b.cooldown - elapsed, ErrDialSuspended
		}
		b.state = breakerHalfOpen
		return 0, nil
	case breakerHalfOpen:
		// 试探进行中
		return b.cooldown, ErrDialSuspended
	default:
		return 0, nil
	}
}

// done 记录拨号结果
func (b *dialBreaker) done(err error) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		b.state = breakerClosed
		b.failures = 0
		return
	}
	b.failures++
	if b.state == breakerHalfOpen || b.failures >= b.threshold {
		b.state = breakerOpen
		b.openedAt = b.now()
	}
}

func (b *dialBreaker) current() breakerState {
	if b == nil {
		return breakerClosed
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
