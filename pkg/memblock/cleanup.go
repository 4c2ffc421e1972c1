package memblock

import (
	"runtime"

	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	util_log "github.com/grafana/memblock/pkg/util/log"
)

var leakedBlocks = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "memblock",
	Name:      "leaked_blocks_total",
	Help:      "Blocks that became unreachable without being closed and were released by the garbage collector.",
}, []string{"kind"})

type leak struct {
	kind    Kind
	size    int
	release func() error
}

// trackLeaks arranges for the storage of b to be released if b becomes
// unreachable while still open. Close cancels it.
func trackLeaks[T any](b *T, l *lifecycle, kind Kind) {
	l.cleanup = runtime.AddCleanup(b, releaseLeaked, leak{
		kind:    kind,
		size:    len(l.data),
		release: l.release,
	})
	l.tracked = true
}

func releaseLeaked(l leak) {
	leakedBlocks.WithLabelValues(l.kind.String()).Inc()

	err := l.release()
	level.Warn(util_log.Logger).Log("msg", "memory block was garbage collected without being closed", "kind", l.kind, "size", l.size, "err", err)
}
