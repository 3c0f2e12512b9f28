// Package dedup suppresses repeat spread alerts whose value has not
// moved beyond a configured delta, and drops symbols on the ignore list.
package dedup

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// DefaultMinSpreadChangePercent is the absolute change (in percentage
// points) required before a symbol is re-alerted.
const DefaultMinSpreadChangePercent = 2.0

// SpreadState tracks the alert history for one canonical symbol
type SpreadState struct {
	LastReportedSpread float64
	LastObservedSpread float64
}

// ExistenceProbe checks a symbol is actually tradable on the quote
// venue. A false result drops the alert silently.
type ExistenceProbe func(symbol string) bool

// Manager implements detector.Filter
type Manager struct {
	mu sync.Mutex

	minSpreadChangePercent float64
	states                 map[string]*SpreadState
	ignore                 *IgnoreList
	probe                  ExistenceProbe
}

// NewManager creates a dedup manager. The ignore list and probe are
// optional.
func NewManager(minSpreadChangePercent float64, ignore *IgnoreList, probe ExistenceProbe) *Manager {
	if minSpreadChangePercent <= 0 {
		minSpreadChangePercent = DefaultMinSpreadChangePercent
	}
	return &Manager{
		minSpreadChangePercent: minSpreadChangePercent,
		states:                 make(map[string]*SpreadState),
		ignore:                 ignore,
		probe:                  probe,
	}
}

// ShouldNotify records the observed spread and reports whether it moved
// enough from the last reported value to warrant a new alert.
func (m *Manager) ShouldNotify(symbol string, currentSpread float64) bool {
	if m.ignore != nil && m.ignore.Ignored(symbol) {
		return false
	}

	m.mu.Lock()
	state, ok := m.states[symbol]
	if !ok {
		state = &SpreadState{}
		m.states[symbol] = state
	}
	state.LastObservedSpread = currentSpread

	change := currentSpread - state.LastReportedSpread
	if change < 0 {
		change = -change
	}
	if change < m.minSpreadChangePercent {
		m.mu.Unlock()
		return false
	}
	state.LastReportedSpread = currentSpread
	m.mu.Unlock()

	if m.probe != nil && !m.probe(symbol) {
		log.Debug().Str("symbol", symbol).Msg("Symbol not tradable on quote venue, alert dropped")
		return false
	}
	return true
}

// State returns a copy of the tracked state for a symbol
func (m *Manager) State(symbol string) (SpreadState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.states[symbol]
	if !ok {
		return SpreadState{}, false
	}
	return *state, true
}
