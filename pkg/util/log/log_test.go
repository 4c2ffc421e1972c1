package log

import (
	"bytes"
	"io"
	"testing"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	dslog "github.com/grafana/dskit/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	testCases := []struct {
		testName      string
		level         string
		format        string
		expectDebug   bool
		expectContain string
	}{
		{"InfoLogfmt", "info", "logfmt", false, `msg="block closed"`},
		{"DebugLogfmt", "debug", "logfmt", true, `msg="block closed"`},
		{"InfoJSON", "info", "json", false, `"msg":"block closed"`},
	}

	for _, testCase := range testCases {
		t.Run(testCase.testName, func(t *testing.T) {
			var lvl dslog.Level
			require.NoError(t, lvl.Set(testCase.level))

			var buf bytes.Buffer
			logger := NewLogger(lvl, testCase.format, &buf, prometheus.NewRegistry())

			level.Debug(logger).Log("msg", "debug line")
			level.Info(logger).Log("msg", "block closed", "kind", "mapped")

			assert.Contains(t, buf.String(), testCase.expectContain)
			assert.Equal(t, testCase.expectDebug, bytes.Contains(buf.Bytes(), []byte("debug line")))
		})
	}
}

func TestPrometheusLogger(t *testing.T) {
	pl := newPrometheusLogger(log.NewLogfmtLogger(io.Discard), prometheus.NewRegistry())

	level.Warn(pl).Log("msg", "block leaked")
	level.Warn(pl).Log("msg", "block leaked")
	level.Error(pl).Log("msg", "unmap failed")
	pl.Log("msg", "no level")

	assert.Equal(t, 2.0, testutil.ToFloat64(pl.logMessages.WithLabelValues("warn")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pl.logMessages.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pl.logMessages.WithLabelValues("unknown")))
	assert.Equal(t, 0.0, testutil.ToFloat64(pl.logMessages.WithLabelValues("debug")))
}
