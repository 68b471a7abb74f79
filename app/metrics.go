package app

import (
	"strconv"

	abcitypes "github.com/cometbft/cometbft/abci/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ahmadzakiakmal/internnft-chain/types"
)

const metricsNamespace = "internnft"

// Metrics counts what the contracts did in committed transactions.
type Metrics struct {
	TokensMinted      prometheus.Counter
	Stakes            prometheus.Counter
	Withdrawals       prometheus.Counter
	ExperienceAwarded prometheus.Counter
	GoldAwarded       prometheus.Counter
	TxFailures        *prometheus.CounterVec
}

// NewMetrics registers the counters with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TokensMinted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "tokens_minted_total",
			Help:      "Number of tokens minted.",
		}),
		Stakes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "stakes_total",
			Help:      "Number of stake transitions.",
		}),
		Withdrawals: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "withdrawals_total",
			Help:      "Number of unstake transitions.",
		}),
		ExperienceAwarded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "experience_awarded_total",
			Help:      "Experience granted by withdrawals.",
		}),
		GoldAwarded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "gold_awarded_total",
			Help:      "Gold granted by withdrawals.",
		}),
		TxFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "tx_failures_total",
			Help:      "Failed transactions by result code.",
		}, []string{"code"}),
	}
}

func (m *Metrics) observeEvents(events []abcitypes.Event) {
	for _, ev := range events {
		switch ev.Type {
		case types.EventPrefix + "mint":
			m.TokensMinted.Inc()
		case types.EventPrefix + "stake":
			m.Stakes.Inc()
		case types.EventPrefix + "withdraw_nft":
			m.Withdrawals.Inc()
			m.ExperienceAwarded.Add(attrFloat(ev, "added_experience"))
			m.GoldAwarded.Add(attrFloat(ev, "added_gold"))
		}
	}
}

func (m *Metrics) observeFailure(code uint32) {
	m.TxFailures.WithLabelValues(strconv.FormatUint(uint64(code), 10)).Inc()
}

func attrFloat(ev abcitypes.Event, key string) float64 {
	v, ok := types.Attribute(ev, key)
	if !ok {
		return 0
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0
	}
	return float64(n)
}
