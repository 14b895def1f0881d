package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestServeRegistersMetrics(t *testing.T) {
	srv := Serve("127.0.0.1:0")
	defer srv.Close()

	TxTotal.WithLabelValues("fulfillOrder", "ok").Inc()
	DeploymentsTotal.WithLabelValues("TIM").Inc()

	mfs, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	found := map[string]bool{}
	for _, mf := range mfs {
		found[mf.GetName()] = true
	}
	for _, name := range []string{"market_tx_total", "market_deployments_total"} {
		if !found[name] {
			t.Fatalf("%s metric not found", name)
		}
	}
}

func TestGasCounterAccumulates(t *testing.T) {
	before := testutil.ToFloat64(GasUsedTotal.WithLabelValues("setSaleOrder"))
	GasUsedTotal.WithLabelValues("setSaleOrder").Add(21000)
	after := testutil.ToFloat64(GasUsedTotal.WithLabelValues("setSaleOrder"))
	if after-before != 21000 {
		t.Fatalf("expected gas delta 21000, got %.0f", after-before)
	}
}
