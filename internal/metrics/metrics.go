// Registers:
//
//	#TradeHub_signals_total
//	#TradeHub_trades_open
//	#TradeHub_pages_served_total
//	#go_* and process_* system metrics
//
// Exposes them through Handler for the web server to mount on /metrics.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once        sync.Once
	signals     *prometheus.CounterVec
	pagesServed *prometheus.CounterVec
	tradesOpen  prometheus.Gauge
)

func Init() {
	once.Do(func() {
		signals = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "TradeHub_signals_total",
				Help: "Number of signals received from the hub by channel",
			},
			[]string{"channel"},
		)

		pagesServed = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "TradeHub_pages_served_total",
				Help: "Number of report pages served",
			},
			[]string{"page"},
		)

		tradesOpen = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "TradeHub_trades_open",
				Help: "Number of currently open trades",
			},
		)

		_ = prometheus.Register(signals)
		_ = prometheus.Register(pagesServed)
		_ = prometheus.Register(tradesOpen)
		_ = prometheus.Register(collectors.NewGoCollector())
		_ = prometheus.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// IncrementSignal increases the signal counter for a hub channel.
func IncrementSignal(channel string) {
	if signals != nil {
		signals.WithLabelValues(channel).Inc()
	}
}

// IncrementPageServed increases the page counter for a report page.
func IncrementPageServed(page string) {
	if pagesServed != nil {
		pagesServed.WithLabelValues(page).Inc()
	}
}

// SetTradesOpen records the current open trade count.
func SetTradesOpen(count int) {
	if tradesOpen != nil {
		tradesOpen.Set(float64(count))
	}
}
