package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRegistersCollectors(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Transfers.WithLabelValues("cents", OutcomeOK).Inc()
	m.CentsMinted.Add(300)
	m.Flushes.WithLabelValues(OutcomeFailed).Inc()

	if got := testutil.ToFloat64(m.Transfers.WithLabelValues("cents", OutcomeOK)); got != 1 {
		t.Fatalf("transfers = %v, want 1", got)
	}

	if got := testutil.ToFloat64(m.CentsMinted); got != 300 {
		t.Fatalf("minted = %v, want 300", got)
	}

	n, err := testutil.GatherAndCount(reg, "scalecoin_flushes_total")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	if n != 1 {
		t.Fatalf("flush series = %d, want 1", n)
	}
}

func TestNopDoesNotPanicOnDoubleConstruction(t *testing.T) {
	t.Parallel()

	a := Nop()
	b := Nop()

	a.NotifyFailures.Inc()

	if testutil.ToFloat64(b.NotifyFailures) != 0 {
		t.Fatal("nop metrics must not share state")
	}
}
