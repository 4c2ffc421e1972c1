package provider

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "memblock"

type Metrics struct {
	blocksOpened *prometheus.CounterVec
	blocksClosed *prometheus.CounterVec
	openBytes    *prometheus.GaugeVec
	openFailures *prometheus.CounterVec
	decompressed *prometheus.CounterVec
}

func NewMetrics(r prometheus.Registerer) *Metrics {
	return &Metrics{
		blocksOpened: promauto.With(r).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blocks_opened_total",
			Help:      "Number of blocks created, partitioned by kind.",
		}, []string{"kind"}),
		blocksClosed: promauto.With(r).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blocks_closed_total",
			Help:      "Number of blocks closed, partitioned by kind.",
		}, []string{"kind"}),
		openBytes: promauto.With(r).NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "block_bytes",
			Help:      "Bytes held by open blocks, partitioned by kind.",
		}, []string{"kind"}),
		openFailures: promauto.With(r).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "open_failures_total",
			Help:      "Number of failed block creations, partitioned by the kind that was attempted.",
		}, []string{"kind"}),
		decompressed: promauto.With(r).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decompressed_bytes_total",
			Help:      "Bytes materialised into blocks by decompression, partitioned by encoding.",
		}, []string{"encoding"}),
	}
}
