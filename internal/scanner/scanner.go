// Package scanner wires venue adapters to the spread detector and
// manages their lifecycle.
package scanner

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"perpspread-scanner/internal/detector"
	"perpspread-scanner/internal/exchange"
)

// Adapter is the slice of the session surface the scanner drives
type Adapter interface {
	Venue() exchange.Venue
	Connect() error
	Subscribe(symbols []string) error
	RegisterPriceCallback(cb exchange.PriceCallback)
	SetExchangeSymbols(symbols []string)
	Close() error
}

// Catalog resolves per-venue symbol lists at startup
type Catalog interface {
	FetchAll(ctx context.Context) map[exchange.Venue][]string
}

// Scanner owns the adapter set. Adapters are registered before Start
// and every price update flows into the shared detector.
type Scanner struct {
	detector *detector.Detector
	catalog  Catalog

	mu       sync.Mutex
	adapters map[exchange.Venue]Adapter
	started  bool
}

// New creates a scanner around a detector. A nil catalog subscribes
// every adapter with a nil list.
func New(d *detector.Detector, catalog Catalog) *Scanner {
	return &Scanner{
		detector: d,
		catalog:  catalog,
		adapters: make(map[exchange.Venue]Adapter),
	}
}

// AddExchange registers an adapter and hooks it to the detector.
// A duplicate venue is rejected with a warning.
func (s *Scanner) AddExchange(a Adapter) {
	s.mu.Lock()
	defer s.mu.Unlock()

	venue := a.Venue()
	if _, exists := s.adapters[venue]; exists {
		log.Warn().Str("exchange", string(venue)).Msg("Exchange already registered, skipping")
		return
	}

	a.RegisterPriceCallback(s.detector.OnPriceUpdate)
	s.adapters[venue] = a
	log.Info().Str("exchange", string(venue)).Msg("Exchange registered")
}

// Venues returns the registered venue tags
func (s *Scanner) Venues() []exchange.Venue {
	s.mu.Lock()
	defer s.mu.Unlock()
	venues := make([]exchange.Venue, 0, len(s.adapters))
	for v := range s.adapters {
		venues = append(venues, v)
	}
	return venues
}

// Start fetches the symbol catalog and brings every adapter up
// concurrently. A venue that fails to connect or subscribe is logged
// and left to its own reconnect loop; the rest keep running.
func (s *Scanner) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	adapters := make([]Adapter, 0, len(s.adapters))
	for _, a := range s.adapters {
		adapters = append(adapters, a)
	}
	s.mu.Unlock()

	var symbolsByVenue map[exchange.Venue][]string
	if s.catalog != nil {
		symbolsByVenue = s.catalog.FetchAll(ctx)
	}

	var wg sync.WaitGroup
	for _, a := range adapters {
		wg.Add(1)
		go func(a Adapter) {
			defer wg.Done()
			s.startOne(a, symbolsByVenue[a.Venue()])
		}(a)
	}
	wg.Wait()

	log.Info().Int("exchanges", len(adapters)).Msg("Scanner started")
}

func (s *Scanner) startOne(a Adapter, symbols []string) {
	venue := a.Venue()
	a.SetExchangeSymbols(symbols)

	if err := a.Connect(); err != nil {
		log.Error().Err(err).Str("exchange", string(venue)).Msg("Connect failed, reconnect loop will retry")
		return
	}
	if err := a.Subscribe(symbols); err != nil {
		log.Error().Err(err).Str("exchange", string(venue)).Msg("Subscribe failed")
	}
}

// Stop closes every adapter concurrently and waits for them to drain
func (s *Scanner) Stop() {
	s.mu.Lock()
	adapters := make([]Adapter, 0, len(s.adapters))
	for _, a := range s.adapters {
		adapters = append(adapters, a)
	}
	s.mu.Unlock()

	var wg sync.WaitGroup
	for _, a := range adapters {
		wg.Add(1)
		go func(a Adapter) {
			defer wg.Done()
			if err := a.Close(); err != nil {
				log.Error().Err(err).Str("exchange", string(a.Venue())).Msg("Close failed")
			}
		}(a)
	}
	wg.Wait()

	log.Info().Msg("Scanner stopped")
}
