package health

import (
	"context"
	"time"
)

// DeviceConn 设备连接状态来源
type DeviceConn interface {
	Connected() bool
	ConnID() string
}

// DeviceChecker 设备 TCP 连接检查；断开即不健康
type DeviceChecker struct {
	dev  DeviceConn
	addr string
}

// NewDeviceChecker 创建设备检查器
func NewDeviceChecker(dev DeviceConn, addr string) *DeviceChecker {
	return &DeviceChecker{dev: dev, addr: addr}
}

func (c *DeviceChecker) Name() string { return "device" }

func (c *DeviceChecker) Check(_ context.Context) CheckResult {
	start := time.Now()
	if !c.dev.Connected() {
		return CheckResult{
			Status:  StatusUnhealthy,
			Message: "device not connected",
			Details: map[string]any{"addr": c.addr},
			Latency: time.Since(start),
		}
	}
	return CheckResult{
		Status:  StatusHealthy,
		Message: "ok",
		Details: map[string]any{"addr": c.addr, "conn_id": c.dev.ConnID()},
		Latency: time.Since(start),
	}
}
