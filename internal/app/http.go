package app

import (
	"context"
	"net/http"

	cfgpkg "github.com/taoyao-code/soundweb-gateway/internal/config"
	"github.com/taoyao-code/soundweb-gateway/internal/httpserver"
)

// NewHTTPServer 根据配置创建 HTTP 服务器，指标未启用时不挂载
func NewHTTPServer(cfg cfgpkg.HTTPConfig, metricsCfg cfgpkg.MetricsConfig, metricsHandler http.Handler, readyFn func(context.Context) bool) *httpserver.Server {
	if !metricsCfg.Enable {
		metricsHandler = nil
	}
	return httpserver.New(cfg, metricsCfg.Path, metricsHandler, readyFn)
}
