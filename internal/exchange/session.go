package exchange

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"perpspread-scanner/internal/metrics"
	"perpspread-scanner/internal/normalizer"
)

// State is the session connection state
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateSubscribing
	StateStreaming
	StateReconnecting
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateSubscribing:
		return "subscribing"
	case StateStreaming:
		return "streaming"
	case StateReconnecting:
		return "reconnecting"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Options tunes session timing. Zero values fall back to defaults.
type Options struct {
	KeepAliveInterval time.Duration // default 10s
	ReconnectWait     time.Duration // default 5s
	SettleWait        time.Duration // delay before re-subscribe, default 4s
	HandshakeTimeout  time.Duration // default 10s
	URL               string        // overrides the codec URL (tests)
}

// Adapter drives one websocket session for a venue: connect, subscribe,
// decode, keep-alive and reconnect. All venue specifics come from the codec.
type Adapter struct {
	codec  Codec
	dialer websocket.Dialer
	url    string

	keepAliveInterval time.Duration
	reconnectWait     time.Duration
	settleWait        time.Duration

	writeMu sync.Mutex
	conn    *websocket.Conn

	mu              sync.RWMutex
	state           State
	running         bool
	closed          bool
	reconnecting    bool
	prices          map[string]float64
	availablePairs  map[string]struct{}
	exchangeSymbols []string
	symbolsSet      bool
	callbacks       []PriceCallback
	done            chan struct{}

	wg sync.WaitGroup
}

// NewAdapter creates a session for the given codec
func NewAdapter(codec Codec, opts Options) *Adapter {
	if opts.KeepAliveInterval == 0 {
		opts.KeepAliveInterval = 10 * time.Second
	}
	if opts.ReconnectWait == 0 {
		opts.ReconnectWait = 5 * time.Second
	}
	if opts.SettleWait == 0 {
		opts.SettleWait = 4 * time.Second
	}
	if opts.HandshakeTimeout == 0 {
		opts.HandshakeTimeout = 10 * time.Second
	}
	url := opts.URL
	if url == "" {
		url = codec.URL()
	}

	return &Adapter{
		codec:             codec,
		dialer:            websocket.Dialer{HandshakeTimeout: opts.HandshakeTimeout},
		url:               url,
		keepAliveInterval: opts.KeepAliveInterval,
		reconnectWait:     opts.ReconnectWait,
		settleWait:        opts.SettleWait,
		prices:            make(map[string]float64),
		availablePairs:    make(map[string]struct{}),
	}
}

// Venue returns the adapter's venue tag
func (a *Adapter) Venue() Venue {
	return a.codec.Venue()
}

// State returns the current session state
func (a *Adapter) State() State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

// RegisterPriceCallback registers a callback invoked on every price update
func (a *Adapter) RegisterPriceCallback(cb PriceCallback) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.callbacks = append(a.callbacks, cb)
}

// SetExchangeSymbols caches the symbol list used for re-subscription after
// a reconnect. A nil list means "all tickers" on venues that support it.
func (a *Adapter) SetExchangeSymbols(symbols []string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.exchangeSymbols = append([]string(nil), symbols...)
	if symbols == nil {
		a.exchangeSymbols = nil
	}
	a.symbolsSet = true
}

// ExchangeSymbols returns a copy of the cached symbol list
func (a *Adapter) ExchangeSymbols() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]string(nil), a.exchangeSymbols...)
}

// LastPrice returns the latest stored price for a canonical symbol
func (a *Adapter) LastPrice(symbol string) (float64, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	p, ok := a.prices[symbol]
	return p, ok
}

// AvailablePairs returns the venue-native symbols subscribed so far
func (a *Adapter) AvailablePairs() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	pairs := make([]string, 0, len(a.availablePairs))
	for p := range a.availablePairs {
		pairs = append(pairs, p)
	}
	return pairs
}

// DepositWithdrawStatus reports deposit/withdraw availability for the
// symbol's base token on this venue
func (a *Adapter) DepositWithdrawStatus(ctx context.Context, symbol string) (bool, bool) {
	return a.codec.DepositWithdrawStatus(ctx, symbol)
}

// Connect opens the websocket and starts the read and keep-alive loops
func (a *Adapter) Connect() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return ErrClosed
	}
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("%s: already connected", a.Venue())
	}
	a.state = StateConnecting
	a.mu.Unlock()

	conn, _, err := a.dialer.Dial(a.url, nil)
	if err != nil {
		metrics.RecordConnectionError(string(a.Venue()), "connect_failed")
		go a.reconnectLoop()
		return fmt.Errorf("%s: connect: %w", a.Venue(), err)
	}

	a.writeMu.Lock()
	a.conn = conn
	a.writeMu.Unlock()

	a.mu.Lock()
	a.running = true
	a.state = StateConnected
	a.done = make(chan struct{})
	done := a.done
	a.mu.Unlock()

	metrics.RecordConnectionStatus(string(a.Venue()), true)
	log.Info().Str("exchange", string(a.Venue())).Str("url", a.url).Msg("WebSocket connected")

	a.wg.Add(1)
	go a.readLoop(conn, done)

	if ping := a.codec.PingFrame(); ping != nil {
		a.wg.Add(1)
		go a.keepAlive(conn, done, ping)
	}

	return nil
}

// Subscribe sends subscription frames for the given symbols. A nil list
// subscribes to the venue's all-tickers channel where supported. Send
// failures for individual symbols are logged and skipped.
func (a *Adapter) Subscribe(symbols []string) error {
	a.writeMu.Lock()
	conn := a.conn
	a.writeMu.Unlock()
	if conn == nil {
		return fmt.Errorf("%s: not connected", a.Venue())
	}

	a.setState(StateSubscribing)
	a.cacheSymbols(symbols)

	frames, err := a.codec.SubscribeFrames(symbols)
	if err == ErrAllTickersUnsupported {
		log.Warn().Str("exchange", string(a.Venue())).Msg("No all-tickers channel, nothing subscribed")
		a.setState(StateStreaming)
		return nil
	}
	if err != nil {
		a.setState(StateStreaming)
		return fmt.Errorf("%s: encode subscriptions: %w", a.Venue(), err)
	}

	for _, f := range frames {
		// A frame may carry only a symbol to record (venues that batch
		// the whole list into one payload).
		if f.Payload != nil {
			a.writeMu.Lock()
			werr := conn.WriteMessage(websocket.TextMessage, f.Payload)
			a.writeMu.Unlock()
			if werr != nil {
				log.Error().Err(werr).Str("exchange", string(a.Venue())).Str("symbol", f.Symbol).Msg("Subscribe send failed")
				continue
			}
		}
		if f.Symbol != "" {
			a.mu.Lock()
			a.availablePairs[f.Symbol] = struct{}{}
			a.mu.Unlock()
		}
	}

	a.mu.RLock()
	subscribed := len(a.availablePairs)
	a.mu.RUnlock()
	metrics.SubscribedSymbols.WithLabelValues(string(a.Venue())).Set(float64(subscribed))

	a.setState(StateStreaming)
	log.Info().Str("exchange", string(a.Venue())).Int("symbols", len(frames)).Msg("Subscribed")
	return nil
}

// Close shuts the session down. Safe to call more than once.
func (a *Adapter) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.running = false
	a.state = StateClosing
	if a.done != nil {
		close(a.done)
		a.done = nil
	}
	a.mu.Unlock()

	a.writeMu.Lock()
	conn := a.conn
	a.conn = nil
	a.writeMu.Unlock()

	if conn != nil {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	}

	a.wg.Wait()
	a.setState(StateClosed)
	metrics.RecordConnectionStatus(string(a.Venue()), false)
	log.Info().Str("exchange", string(a.Venue())).Msg("WebSocket disconnected")
	return nil
}

func (a *Adapter) setState(s State) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}

func (a *Adapter) cacheSymbols(symbols []string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if symbols == nil {
		a.exchangeSymbols = nil
	} else {
		a.exchangeSymbols = append([]string(nil), symbols...)
	}
	a.symbolsSet = true
}

// readLoop receives frames until the connection drops or Close is called
func (a *Adapter) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer a.wg.Done()

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-done:
				return
			default:
			}
			log.Warn().Err(err).Str("exchange", string(a.Venue())).Msg("WebSocket read error, reconnecting")
			metrics.RecordConnectionError(string(a.Venue()), "read_error")
			go a.reconnectLoop()
			return
		}

		if bytes.Equal(bytes.TrimSpace(frame), []byte("pong")) {
			continue
		}

		tickers, err := a.codec.Decode(frame)
		if err != nil {
			log.Error().Err(err).Str("exchange", string(a.Venue())).Msg("Frame decode failed")
			metrics.DecodeErrors.WithLabelValues(string(a.Venue())).Inc()
			continue
		}
		for _, t := range tickers {
			a.handleTicker(t)
		}
	}
}

func (a *Adapter) handleTicker(t Ticker) {
	symbol := normalizer.Canonical(string(a.Venue()), t.Symbol)
	if symbol == "" || t.Price <= 0 {
		return
	}

	ts := t.Timestamp
	if !t.HasTimestamp || ts <= 0 {
		ts = float64(time.Now().UnixNano()) / 1e9
	}

	a.mu.Lock()
	a.prices[symbol] = t.Price
	callbacks := append([]PriceCallback(nil), a.callbacks...)
	a.mu.Unlock()

	metrics.RecordPriceUpdate(string(a.Venue()), symbol, t.Price)

	update := PriceUpdate{
		Venue:     a.Venue(),
		Symbol:    symbol,
		Price:     t.Price,
		Timestamp: ts,
	}
	for _, cb := range callbacks {
		a.invoke(cb, update)
	}
}

// invoke shields the read loop from panicking consumers
func (a *Adapter) invoke(cb PriceCallback, u PriceUpdate) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("exchange", string(a.Venue())).Msg("Price callback panicked")
		}
	}()
	cb(u)
}

// keepAlive sends the venue ping frame on a fixed interval. A send
// failure closes the connection so the read loop drives reconnection.
func (a *Adapter) keepAlive(conn *websocket.Conn, done chan struct{}, ping []byte) {
	defer a.wg.Done()

	ticker := time.NewTicker(a.keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			a.writeMu.Lock()
			err := conn.WriteMessage(websocket.TextMessage, ping)
			a.writeMu.Unlock()
			if err != nil {
				log.Warn().Err(err).Str("exchange", string(a.Venue())).Msg("Ping failed")
				metrics.RecordConnectionError(string(a.Venue()), "ping_failed")
				conn.Close()
				return
			}
		}
	}
}

// reconnectLoop tears the session down, waits the back-off and dials
// again, re-sending subscriptions from the cached symbol list. Only one
// loop runs at a time.
func (a *Adapter) reconnectLoop() {
	a.mu.Lock()
	if a.closed || a.reconnecting {
		a.mu.Unlock()
		return
	}
	a.reconnecting = true
	a.running = false
	a.state = StateReconnecting
	if a.done != nil {
		close(a.done)
		a.done = nil
	}
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.reconnecting = false
		a.mu.Unlock()
	}()

	a.writeMu.Lock()
	conn := a.conn
	a.conn = nil
	a.writeMu.Unlock()
	if conn != nil {
		conn.Close()
	}

	metrics.RecordConnectionStatus(string(a.Venue()), false)

	for {
		time.Sleep(a.reconnectWait)

		a.mu.RLock()
		closed := a.closed
		a.mu.RUnlock()
		if closed {
			return
		}

		log.Info().Str("exchange", string(a.Venue())).Msg("Attempting to reconnect")
		metrics.RecordReconnect(string(a.Venue()))

		if err := a.Connect(); err != nil {
			log.Error().Err(err).Str("exchange", string(a.Venue())).Msg("Reconnect failed")
			continue
		}

		time.Sleep(a.settleWait)

		a.mu.RLock()
		symbols := append([]string(nil), a.exchangeSymbols...)
		if a.exchangeSymbols == nil {
			symbols = nil
		}
		haveSymbols := a.symbolsSet
		a.mu.RUnlock()

		if haveSymbols {
			if err := a.Subscribe(symbols); err != nil {
				log.Error().Err(err).Str("exchange", string(a.Venue())).Msg("Re-subscribe failed")
			}
		}
		return
	}
}
