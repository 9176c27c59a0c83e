// Package metrics exposes node-internal gauges and counters over
// Prometheus's client_golang, served from the admin interface
// (admin.address/admin.port, §6) alongside the teacher's HTTP-mux-based
// admin/RPC surface.
package metrics

import (
	"net/http"

	klog "github.com/bosagora-go/agora-node/internal/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds every gauge/counter the node reports. All fields are
// safe for concurrent use (prometheus metrics are).
type Collector struct {
	registry *prometheus.Registry

	LedgerHeight     prometheus.Gauge
	QuorumSliceSize  prometheus.Gauge
	FlashChannels    prometheus.Gauge
	MempoolSize      prometheus.Gauge
	PeerCount        prometheus.Gauge
	ValidatorCount   prometheus.Gauge
	BannedPeerCount  prometheus.Gauge

	BlocksAccepted    prometheus.Counter
	BlocksRejected    prometheus.Counter
	TxsAccepted       prometheus.Counter
	TxsRejected       prometheus.Counter
	PreimagesRevealed prometheus.Counter
}

// New creates a Collector and registers every metric on a fresh registry.
func New() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		registry: reg,
		LedgerHeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "agora", Subsystem: "ledger", Name: "height",
			Help: "Current block height of the local ledger.",
		}),
		QuorumSliceSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "agora", Subsystem: "quorum", Name: "nominating_set_size",
			Help: "Size of the most recently prepared nominating set.",
		}),
		FlashChannels: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "agora", Subsystem: "flash", Name: "open_channels",
			Help: "Number of Flash payment channels currently open.",
		}),
		MempoolSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "agora", Subsystem: "mempool", Name: "size",
			Help: "Number of transactions currently held in the mempool.",
		}),
		PeerCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "agora", Subsystem: "peer", Name: "connected",
			Help: "Number of currently connected transport peers.",
		}),
		ValidatorCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "agora", Subsystem: "enrollment", Name: "validators",
			Help: "Number of currently enrolled validators.",
		}),
		BannedPeerCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "agora", Subsystem: "peer", Name: "banned",
			Help: "Number of peers currently under an active ban.",
		}),
		BlocksAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agora", Subsystem: "ledger", Name: "blocks_accepted_total",
			Help: "Total blocks accepted onto the local ledger.",
		}),
		BlocksRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agora", Subsystem: "ledger", Name: "blocks_rejected_total",
			Help: "Total blocks rejected by block validation.",
		}),
		TxsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agora", Subsystem: "mempool", Name: "txs_accepted_total",
			Help: "Total transactions accepted into the mempool.",
		}),
		TxsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agora", Subsystem: "mempool", Name: "txs_rejected_total",
			Help: "Total transactions rejected by transaction validation.",
		}),
		PreimagesRevealed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agora", Subsystem: "enrollment", Name: "preimages_revealed_total",
			Help: "Total pre-images revealed by enrolled validators.",
		}),
	}

	reg.MustRegister(
		c.LedgerHeight, c.QuorumSliceSize, c.FlashChannels, c.MempoolSize,
		c.PeerCount, c.ValidatorCount, c.BannedPeerCount,
		c.BlocksAccepted, c.BlocksRejected, c.TxsAccepted, c.TxsRejected, c.PreimagesRevealed,
	)

	return c
}

// Handler returns the HTTP handler to mount on the admin mux (typically
// at "/metrics"), matching the stdlib-http-mux style the teacher's RPC
// server already uses.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RegisterOn mounts the metrics handler on an existing mux at path.
func (c *Collector) RegisterOn(mux *http.ServeMux, path string) {
	mux.Handle(path, c.Handler())
	klog.Metrics.Info().Str("path", path).Msg("Metrics endpoint registered")
}
