package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ticks_total", Help: "Count of market ticks ingested"},
		[]string{"symbol"},
	)
	NormalizeErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "normalize_errors_total", Help: "Malformed provider payloads dropped"},
	)
	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signals_total", Help: "Trade signals emitted by the strategy"},
		[]string{"symbol", "side"},
	)
	SignalRejectsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signal_rejects_total", Help: "Signals rejected before or during execution"},
		[]string{"reason"},
	)
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "orders_total", Help: "Orders submitted"},
		[]string{"symbol", "side"},
	)
	FillsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "fills_total", Help: "Orders settled as filled"},
		[]string{"symbol", "side"},
	)
	BusDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "bus_dropped_total", Help: "Ticks evicted by the bus in drop-oldest mode"},
	)
)

func init() {
	prometheus.MustRegister(
		TicksTotal, NormalizeErrorsTotal, SignalsTotal,
		SignalRejectsTotal, OrdersTotal, FillsTotal, BusDroppedTotal,
	)
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
