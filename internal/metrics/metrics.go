// Package metrics holds the prometheus collectors of the ledger service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "scalecoin"

// Outcome labels for Transfers.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

type Metrics struct {
	Transfers        *prometheus.CounterVec
	PassgoRuns       *prometheus.CounterVec
	CentsMinted      prometheus.Counter
	FigurinesAwarded *prometheus.CounterVec
	Flushes          *prometheus.CounterVec
	NotifyFailures   prometheus.Counter
	HTTPRequests     *prometheus.CounterVec
}

// New builds the collectors and registers them with reg. A nil reg leaves
// them unregistered, which is what most tests want.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Transfers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transfers_total",
			Help:      "Transfers attempted, by kind (cents, figurine, hook, revoke) and outcome.",
		}, []string{"kind", "outcome"}),
		PassgoRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "passgo_runs_total",
			Help:      "Reward reconciliation runs, by result.",
		}, []string{"result"}),
		CentsMinted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cents_minted_total",
			Help:      "Cents created by reward reconciliation.",
		}),
		FigurinesAwarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "figurines_awarded_total",
			Help:      "Figurines created by reward reconciliation, by kind.",
		}, []string{"kind"}),
		Flushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flushes_total",
			Help:      "Ledger flushes to durable storage, by outcome.",
		}, []string{"outcome"}),
		NotifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notify_failures_total",
			Help:      "Bot webhook deliveries that failed.",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "API requests, by route and status code.",
		}, []string{"route", "code"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.Transfers,
			m.PassgoRuns,
			m.CentsMinted,
			m.FigurinesAwarded,
			m.Flushes,
			m.NotifyFailures,
			m.HTTPRequests,
		)
	}

	return m
}

// Nop returns unregistered collectors.
func Nop() *Metrics { return New(nil) }
