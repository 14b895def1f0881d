package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TxTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "market_tx_total", Help: "Transactions sent, by contract method and outcome"},
		[]string{"method", "status"},
	)
	DeploymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "market_deployments_total", Help: "Contracts deployed"},
		[]string{"contract"},
	)
	GasUsedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "market_gas_used_total", Help: "Gas consumed by mined transactions"},
		[]string{"method"},
	)
)

func init() {
	prometheus.MustRegister(TxTotal, DeploymentsTotal, GasUsedTotal)
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
