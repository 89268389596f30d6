package app

import (
	"strconv"

	"github.com/calehh/ballot-app/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "ballot"

type appMetrics struct {
	height        prometheus.Gauge
	txTotal       *prometheus.CounterVec
	proposalVotes *prometheus.GaugeVec
}

func (m *appMetrics) init(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	m.height = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "height",
		Help:      "height of the last committed ledger state",
	})
	m.txTotal = promautoFactory.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "tx_total",
		Help:      "finalized ballot transactions by type and result code",
	}, []string{"type", "code"})
	m.proposalVotes = promautoFactory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "proposal_votes",
		Help:      "committed vote count of each proposal",
	}, []string{"index", "name"})
}

func (m *appMetrics) observeTx(typ string, code uint32) {
	m.txTotal.WithLabelValues(typ, strconv.FormatUint(uint64(code), 10)).Inc()
}

func (m *appMetrics) observeCommit(height uint64, proposals []types.Proposal) {
	m.height.Set(float64(height))
	for _, p := range proposals {
		m.proposalVotes.WithLabelValues(strconv.FormatUint(p.Index, 10), p.Name).Set(float64(p.VoteCount))
	}
}
