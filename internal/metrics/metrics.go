package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry 创建自定义 Prometheus Registry，并注册常用采集器
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler 返回 Prometheus 指标 HTTP 处理器
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// AppMetrics 自定义业务指标
type AppMetrics struct {
	BytesReceived  prometheus.Counter
	BytesSent      prometheus.Counter
	FramesTotal    *prometheus.CounterVec // labels: result=ok|checksum_invalid
	ControlTotal   *prometheus.CounterVec // labels: kind=ack|nak
	CommandsTotal  *prometheus.CounterVec // labels: direction=in|out, cmd
	CodecErrors    *prometheus.CounterVec // labels: reason
	Connected      prometheus.Gauge       // 设备连接状态 0/1
	TransportError prometheus.Counter
	AuditRecords   *prometheus.CounterVec // labels: result=ok|error|dropped
}

// NewAppMetrics 注册并返回业务指标
func NewAppMetrics(reg prometheus.Registerer) *AppMetrics {
	m := &AppMetrics{
		BytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "soundweb_bytes_received_total",
			Help: "Total bytes received from the device.",
		}),
		BytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "soundweb_bytes_sent_total",
			Help: "Total bytes written to the device.",
		}),
		FramesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "soundweb_frames_total",
			Help: "Completed inbound frames by result.",
		}, []string{"result"}),
		ControlTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "soundweb_control_bytes_total",
			Help: "Standalone ACK/NAK bytes received.",
		}, []string{"kind"}),
		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "soundweb_commands_total",
			Help: "Commands by direction and name.",
		}, []string{"direction", "cmd"}),
		CodecErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "soundweb_codec_errors_total",
			Help: "Inbound codec problems by reason.",
		}, []string{"reason"}),
		Connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "soundweb_connected",
			Help: "1 when the device connection is up.",
		}),
		TransportError: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "soundweb_transport_errors_total",
			Help: "Socket level failures.",
		}),
		AuditRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "soundweb_audit_records_total",
			Help: "Event audit log writes by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(m.BytesReceived, m.BytesSent, m.FramesTotal, m.ControlTotal,
		m.CommandsTotal, m.CodecErrors, m.Connected, m.TransportError, m.AuditRecords)
	return m
}
