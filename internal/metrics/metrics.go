package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Metrics for the spread scanner
var (
	// Price stream metrics
	PriceUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spread_price_updates_total",
			Help: "Total number of price updates received",
		},
		[]string{"exchange"},
	)

	LastPrice = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "spread_last_price",
			Help: "Last trade price per exchange and symbol",
		},
		[]string{"exchange", "symbol"},
	)

	DecodeErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spread_decode_errors_total",
			Help: "Total number of frames discarded due to decode errors",
		},
		[]string{"exchange"},
	)

	// Connection metrics
	ConnectionStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "spread_connection_status",
			Help: "WebSocket connection status (1=streaming, 0=down)",
		},
		[]string{"exchange"},
	)

	ConnectionReconnects = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spread_reconnects_total",
			Help: "Total number of reconnection attempts",
		},
		[]string{"exchange"},
	)

	ConnectionErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spread_connection_errors_total",
			Help: "Total number of connection errors",
		},
		[]string{"exchange", "error_type"},
	)

	SubscribedSymbols = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "spread_subscribed_symbols",
			Help: "Number of symbols subscribed per exchange",
		},
		[]string{"exchange"},
	)

	// Catalog metrics
	CatalogSymbols = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "spread_catalog_symbols",
			Help: "Number of symbols returned by the venue catalog endpoint",
		},
		[]string{"exchange"},
	)

	CatalogFetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spread_catalog_fetch_errors_total",
			Help: "Total number of catalog fetch failures",
		},
		[]string{"exchange"},
	)

	// Detector metrics
	SpreadsDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spread_opportunities_total",
			Help: "Total number of spreads above the alert threshold",
		},
		[]string{"symbol"},
	)

	SpreadValue = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "spread_value_percent",
			Help: "Current spread percent per symbol and venue pair",
		},
		[]string{"symbol", "buy_exchange", "sell_exchange"},
	)

	AlertsEmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "spread_alerts_emitted_total",
			Help: "Total number of alerts forwarded to consumers",
		},
	)

	AlertsSuppressed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "spread_alerts_suppressed_total",
			Help: "Total number of alerts dropped by dedup or ignore list",
		},
	)

	// Redis metrics
	RedisPublishErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spread_redis_publish_errors_total",
			Help: "Total number of Redis publish errors",
		},
		[]string{"channel"},
	)
)

// RecordPriceUpdate records metrics for a single price update
func RecordPriceUpdate(exchange, symbol string, price float64) {
	PriceUpdates.WithLabelValues(exchange).Inc()
	LastPrice.WithLabelValues(exchange, symbol).Set(price)
}

// RecordConnectionStatus records connection status
func RecordConnectionStatus(exchange string, streaming bool) {
	status := 0.0
	if streaming {
		status = 1.0
	}
	ConnectionStatus.WithLabelValues(exchange).Set(status)
}

// RecordReconnect records a reconnection attempt
func RecordReconnect(exchange string) {
	ConnectionReconnects.WithLabelValues(exchange).Inc()
}

// RecordConnectionError records a connection error
func RecordConnectionError(exchange, errorType string) {
	ConnectionErrors.WithLabelValues(exchange, errorType).Inc()
}

// RecordSpread records a spread above the alert threshold
func RecordSpread(symbol, buyExchange, sellExchange string, spreadPercent float64) {
	SpreadsDetected.WithLabelValues(symbol).Inc()
	SpreadValue.WithLabelValues(symbol, buyExchange, sellExchange).Set(spreadPercent)
}

// Server starts the Prometheus metrics HTTP server
type Server struct {
	addr   string
	server *http.Server
}

// NewServer creates a new metrics server
func NewServer(addr string) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return &Server{
		addr: addr,
		server: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Start starts the metrics server
func (s *Server) Start() error {
	log.Info().Str("addr", s.addr).Msg("Starting metrics server")
	return s.server.ListenAndServe()
}

// Stop stops the metrics server
func (s *Server) Stop() error {
	return s.server.Close()
}
