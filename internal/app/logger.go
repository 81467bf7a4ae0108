package app

import (
	"io"
	"log/slog"

	"github.com/felixgeelhaar/subscriptions/pkg/config"
	"github.com/felixgeelhaar/subscriptions/pkg/observability"
)

// NewLogger builds the process logger from configuration. Production
// defaults to JSON; LOG_LEVEL and LOG_FORMAT override either default.
func NewLogger(cfg *config.Config, out io.Writer, service, version string) *slog.Logger {
	logCfg := observability.DefaultLogConfig()
	if cfg.IsProduction() {
		logCfg = observability.ProductionLogConfig()
	}
	logCfg.Output = out
	if service != "" {
		logCfg.ServiceName = service
	}
	if version != "" {
		logCfg.ServiceVersion = version
	}
	if cfg.LogLevel != "" {
		logCfg.Level = observability.LogLevel(cfg.LogLevel)
	}
	if cfg.LogFormat != "" {
		logCfg.Format = observability.LogFormat(cfg.LogFormat)
	}
	return observability.NewLogger(logCfg)
}
