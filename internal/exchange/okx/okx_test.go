package okx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perpspread-scanner/internal/exchange"
)

func TestSubscribeFrames(t *testing.T) {
	frames, err := NewCodec().SubscribeFrames([]string{"BTC-USDT-SWAP"})
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.JSONEq(t, `{"op":"subscribe","args":[{"channel":"tickers","instId":"BTC-USDT-SWAP"}]}`, string(frames[0].Payload))
	assert.Equal(t, "BTC-USDT-SWAP", frames[0].Symbol)
}

func TestSubscribeFramesNilList(t *testing.T) {
	_, err := NewCodec().SubscribeFrames(nil)
	assert.ErrorIs(t, err, exchange.ErrAllTickersUnsupported)
}

func TestDecodeTicker(t *testing.T) {
	frame := []byte(`{"arg":{"channel":"tickers","instId":"BTC-USDT-SWAP"},"data":[{"instId":"BTC-USDT-SWAP","last":"50000.5","ts":"1700000000123"}]}`)
	tickers, err := NewCodec().Decode(frame)
	require.NoError(t, err)
	require.Len(t, tickers, 1)

	assert.Equal(t, "BTC-USDT-SWAP", tickers[0].Symbol)
	assert.Equal(t, 50000.5, tickers[0].Price)
	assert.InDelta(t, 1700000000.123, tickers[0].Timestamp, 1e-6)
	assert.True(t, tickers[0].HasTimestamp)
}

func TestDecodeEventFrames(t *testing.T) {
	for _, frame := range []string{
		`{"event":"subscribe","arg":{"channel":"tickers","instId":"BTC-USDT-SWAP"}}`,
		`{"event":"error","code":"60012","msg":"Invalid request"}`,
	} {
		tickers, err := NewCodec().Decode([]byte(frame))
		assert.NoError(t, err, frame)
		assert.Empty(t, tickers, frame)
	}
}

func TestLastPrice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v5/market/ticker", r.URL.Path)
		assert.Equal(t, "BTC-USDT-SWAP", r.URL.Query().Get("instId"))
		w.Write([]byte(`{"code":"0","data":[{"instId":"BTC-USDT-SWAP","last":"50000.5"}]}`))
	}))
	defer server.Close()

	c := &Codec{
		client:  &http.Client{Timeout: time.Second},
		restURL: server.URL,
	}

	assert.Equal(t, 50000.5, c.LastPrice(context.Background(), "BTC-USDT-SWAP"))
}
