package pair

import (
	"errors"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks pair activity. A nil *Metrics records nothing.
type Metrics struct {
	deposits    prometheus.Counter
	withdrawals prometheus.Counter
	swaps       *prometheus.CounterVec
	aborted     *prometheus.CounterVec
	reserveA    prometheus.Gauge
	reserveB    prometheus.Gauge
	shareSupply prometheus.Gauge
}

func NewMetrics(r prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		deposits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pair",
			Name:      "deposits_total",
			Help:      "number of committed liquidity deposits",
		}),
		withdrawals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pair",
			Name:      "withdrawals_total",
			Help:      "number of committed liquidity withdrawals",
		}),
		swaps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pair",
			Name:      "swaps_total",
			Help:      "number of committed swaps by input asset",
		}, []string{"input"}),
		aborted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pair",
			Name:      "aborted_operations_total",
			Help:      "number of rejected or rolled back operations",
		}, []string{"op"}),
		reserveA: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pair",
			Name:      "reserve_a",
			Help:      "reserve of asset A in base units",
		}),
		reserveB: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pair",
			Name:      "reserve_b",
			Help:      "reserve of asset B in base units",
		}),
		shareSupply: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pair",
			Name:      "share_supply",
			Help:      "outstanding shares",
		}),
	}
	if r == nil {
		return m, nil
	}
	err := errors.Join(
		r.Register(m.deposits),
		r.Register(m.withdrawals),
		r.Register(m.swaps),
		r.Register(m.aborted),
		r.Register(m.reserveA),
		r.Register(m.reserveB),
		r.Register(m.shareSupply),
	)
	return m, err
}

func (m *Metrics) deposit() {
	if m != nil {
		m.deposits.Inc()
	}
}

func (m *Metrics) withdrawal() {
	if m != nil {
		m.withdrawals.Inc()
	}
}

func (m *Metrics) swap(input Asset) {
	if m != nil {
		m.swaps.WithLabelValues(input.String()).Inc()
	}
}

func (m *Metrics) abort(op string) {
	if m != nil {
		m.aborted.WithLabelValues(op).Inc()
	}
}

func (m *Metrics) observe(r reserveLedger, supply *uint256.Int) {
	if m == nil {
		return
	}
	m.reserveA.Set(toFloat(r.a))
	m.reserveB.Set(toFloat(r.b))
	m.shareSupply.Set(toFloat(supply))
}

// toFloat loses precision above 2^53; gauges are for dashboards only.
func toFloat(v *uint256.Int) float64 {
	f, _ := v.ToBig().Float64()
	return f
}
