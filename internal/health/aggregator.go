package health

import (
	"context"
	"sync"
	"time"
)

// Aggregator 并发执行所有检查器
type Aggregator struct {
	mu       sync.RWMutex
	checkers []Checker
	timeout  time.Duration
}

// NewAggregator 创建聚合器，单次检查超时默认 3s
func NewAggregator(checkers ...Checker) *Aggregator {
	return &Aggregator{checkers: checkers, timeout: 3 * time.Second}
}

// AddChecker 添加检查器
func (a *Aggregator) AddChecker(checker Checker) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.checkers = append(a.checkers, checker)
}

// Report 健康报告
type Report struct {
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks"`
}

// Check 执行全部检查并汇总：任一 Unhealthy 则整体 Unhealthy，任一 Degraded 则整体 Degraded
func (a *Aggregator) Check(ctx context.Context) Report {
	a.mu.RLock()
	checkers := append([]Checker(nil), a.checkers...)
	a.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	rep := Report{Status: StatusHealthy, Timestamp: time.Now(), Checks: make(map[string]CheckResult, len(checkers))}
	for _, c := range checkers {
		wg.Add(1)
		go func(c Checker) {
			defer wg.Done()
			res := c.Check(ctx)
			mu.Lock()
			rep.Checks[c.Name()] = res
			rep.Status = worst(rep.Status, res.Status)
			mu.Unlock()
		}(c)
	}
	wg.Wait()
	return rep
}

// Ready 降级仍视为就绪
func (a *Aggregator) Ready(ctx context.Context) bool {
	return a.Check(ctx).Status != StatusUnhealthy
}
