// Package detector keeps the latest price per (venue, symbol) pair and
// emits spread opportunities when the best cross-venue spread for a
// symbol exceeds the configured threshold.
package detector

import (
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"perpspread-scanner/internal/exchange"
	"perpspread-scanner/internal/metrics"
)

// SpreadOpportunity is a qualifying cross-venue spread
type SpreadOpportunity struct {
	BaseToken     string         `json:"base_token"` // canonical symbol
	BuyVenue      exchange.Venue `json:"buy_venue"`
	BuyPrice      float64        `json:"buy_price"`
	SellVenue     exchange.Venue `json:"sell_venue"`
	SellPrice     float64        `json:"sell_price"`
	SpreadPercent float64        `json:"spread_percent"`
	Timestamp     float64        `json:"timestamp"`
}

// Consumer receives alerts that survived filtering
type Consumer func(SpreadOpportunity)

// Filter decides whether a qualifying spread is surfaced. The dedup
// manager implements it.
type Filter interface {
	ShouldNotify(symbol string, spreadPercent float64) bool
}

// Detector is the event-driven spread engine. All updates are
// serialized behind one mutex, so adapters may call OnPriceUpdate
// concurrently.
type Detector struct {
	mu sync.Mutex

	// prices: canonical symbol -> venue -> latest update
	prices map[string]map[exchange.Venue]exchange.PriceUpdate

	minSpreadPercent float64
	filter           Filter
	consumers        []Consumer
}

// New creates a detector. A nil filter surfaces every qualifying spread.
func New(minSpreadPercent float64, filter Filter) *Detector {
	return &Detector{
		prices:           make(map[string]map[exchange.Venue]exchange.PriceUpdate),
		minSpreadPercent: minSpreadPercent,
		filter:           filter,
	}
}

// RegisterAlertConsumer registers a consumer for surfaced opportunities
func (d *Detector) RegisterAlertConsumer(c Consumer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.consumers = append(d.consumers, c)
}

// LastPrice returns the most recent update stored for a venue/symbol pair
func (d *Detector) LastPrice(venue exchange.Venue, symbol string) (exchange.PriceUpdate, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.prices[symbol][venue]
	return u, ok
}

// OnPriceUpdate stores the update and rescans venues holding the same
// canonical symbol. Intended to be registered as each adapter's price
// callback.
func (d *Detector) OnPriceUpdate(u exchange.PriceUpdate) {
	if u.Price <= 0 || u.Symbol == "" {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	byVenue := d.prices[u.Symbol]
	if byVenue == nil {
		byVenue = make(map[exchange.Venue]exchange.PriceUpdate)
		d.prices[u.Symbol] = byVenue
	}
	byVenue[u.Venue] = u

	if len(byVenue) < 2 {
		return
	}

	// Sorted venue order keeps the min/max tie-break stable
	venues := make([]exchange.Venue, 0, len(byVenue))
	for v := range byVenue {
		venues = append(venues, v)
	}
	sort.Slice(venues, func(i, j int) bool { return venues[i] < venues[j] })

	buy := byVenue[venues[0]]
	sell := byVenue[venues[0]]
	for _, v := range venues[1:] {
		entry := byVenue[v]
		if entry.Price < buy.Price {
			buy = entry
		}
		if entry.Price > sell.Price {
			sell = entry
		}
	}

	if buy.Venue == sell.Venue || sell.Price <= buy.Price {
		return
	}

	spread := (sell.Price - buy.Price) / buy.Price * 100
	if spread < d.minSpreadPercent {
		return
	}

	metrics.RecordSpread(u.Symbol, string(buy.Venue), string(sell.Venue), spread)

	if d.filter != nil && !d.filter.ShouldNotify(u.Symbol, spread) {
		metrics.AlertsSuppressed.Inc()
		return
	}

	opportunity := SpreadOpportunity{
		BaseToken:     u.Symbol,
		BuyVenue:      buy.Venue,
		BuyPrice:      buy.Price,
		SellVenue:     sell.Venue,
		SellPrice:     sell.Price,
		SpreadPercent: spread,
		Timestamp:     maxFloat(buy.Timestamp, sell.Timestamp),
	}

	metrics.AlertsEmitted.Inc()
	for _, c := range d.consumers {
		d.deliver(c, opportunity)
	}
}

// deliver shields the dispatch path from panicking consumers
func (d *Detector) deliver(c Consumer, o SpreadOpportunity) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("symbol", o.BaseToken).Msg("Alert consumer panicked")
		}
	}()
	c(o)
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
