package log

import (
	"io"
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	dslog "github.com/grafana/dskit/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Logger is a shared go-kit logger, used where no logger can be passed in,
// such as the release of leaked blocks.
var Logger = log.NewNopLogger()

// InitLogger initialises the global logger according to the level and
// format ("logfmt" or "json"). Log lines are counted per level in reg.
func InitLogger(lvl dslog.Level, format string, reg prometheus.Registerer) log.Logger {
	Logger = NewLogger(lvl, format, os.Stderr, reg)
	return Logger
}

// NewLogger builds a leveled logger writing to w.
func NewLogger(lvl dslog.Level, format string, w io.Writer, reg prometheus.Registerer) log.Logger {
	var logger log.Logger
	if format == "json" {
		logger = log.NewJSONLogger(log.NewSyncWriter(w))
	} else {
		logger = log.NewLogfmtLogger(log.NewSyncWriter(w))
	}

	logger = level.NewFilter(newPrometheusLogger(logger, reg), lvl.Option)
	return log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)
}

// prometheusLogger exposes Prometheus counters for each of go-kit's log levels.
type prometheusLogger struct {
	baseLogger  log.Logger
	logMessages *prometheus.CounterVec
}

func newPrometheusLogger(l log.Logger, reg prometheus.Registerer) *prometheusLogger {
	logMessages := promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
		Name: "log_messages_total",
		Help: "Total number of log messages.",
	}, []string{"level"})

	// Initialise counters for all supported levels.
	for _, lvl := range []level.Value{
		level.DebugValue(),
		level.InfoValue(),
		level.WarnValue(),
		level.ErrorValue(),
	} {
		logMessages.WithLabelValues(lvl.String())
	}

	return &prometheusLogger{
		baseLogger:  l,
		logMessages: logMessages,
	}
}

// Log increments the appropriate Prometheus counter depending on the log level.
func (pl *prometheusLogger) Log(kv ...interface{}) error {
	if err := pl.baseLogger.Log(kv...); err != nil {
		return err
	}
	l := "unknown"
	for i := 1; i < len(kv); i += 2 {
		if v, ok := kv[i].(level.Value); ok {
			l = v.String()
			break
		}
	}
	pl.logMessages.WithLabelValues(l).Inc()
	return nil
}
