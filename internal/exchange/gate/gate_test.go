package gate

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

func fixedCodec() *Codec {
	c := NewCodec()
	c.now = func() time.Time { return time.Unix(1700000000, 0) }
	return c
}

func TestSubscribeFramesBatchedPayload(t *testing.T) {
	frames, err := fixedCodec().SubscribeFrames([]string{"BTC_USDT", "ETH_USDT"})
	require.NoError(t, err)
	require.Len(t, frames, 2)

	// One payload carries the whole list, remaining frames only record symbols
	assert.JSONEq(t, `{"time":1700000000,"channel":"futures.tickers","event":"subscribe","payload":["BTC_USDT","ETH_USDT"]}`, string(frames[0].Payload))
	assert.Equal(t, "BTC_USDT", frames[0].Symbol)
	assert.Nil(t, frames[1].Payload)
	assert.Equal(t, "ETH_USDT", frames[1].Symbol)
}

func TestSubscribeFramesNilList(t *testing.T) {
	_, err := fixedCodec().SubscribeFrames(nil)
	assert.ErrorIs(t, err, exchange.ErrAllTickersUnsupported)
}

func TestDecodeUpdate(t *testing.T) {
	frame := []byte(`{"channel":"futures.tickers","event":"update","time_ms":1700000000123,"result":[{"contract":"BTC_USDT","last":"50000.5"},{"contract":"ETH_USDT","last":"3000"}]}`)
	tickers, err := fixedCodec().Decode(frame)
	require.NoError(t, err)
	require.Len(t, tickers, 2)

	assert.Equal(t, "BTC_USDT", tickers[0].Symbol)
	assert.Equal(t, 50000.5, tickers[0].Price)
	assert.InDelta(t, 1700000000.123, tickers[0].Timestamp, 1e-6)
	assert.True(t, tickers[0].HasTimestamp)
}

func TestDecodeControlFrames(t *testing.T) {
	for _, frame := range []string{
		`{"channel":"futures.pong","event":"","time_ms":1700000000123}`,
		`{"channel":"futures.tickers","event":"subscribe","result":{"status":"success"}}`,
	} {
		tickers, err := fixedCodec().Decode([]byte(frame))
		assert.NoError(t, err, frame)
		assert.Empty(t, tickers, frame)
	}
}

func TestDepositWithdrawStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v4/wallet/currency_chains", r.URL.Path)
		assert.Equal(t, "BTC", r.URL.Query().Get("currency"))
		w.Write([]byte(`[
			{"chain":"BTC","is_deposit_disabled":0,"is_withdraw_disabled":1},
			{"chain":"LIGHTNING","is_deposit_disabled":1,"is_withdraw_disabled":1}
		]`))
	}))
	defer server.Close()

	c := fixedCodec()
	c.restURL = server.URL

	deposit, withdraw := c.DepositWithdrawStatus(context.Background(), "BTC_USDT")
	assert.True(t, deposit)
	assert.False(t, withdraw)
}

func TestDepositWithdrawStatusFetchFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := fixedCodec()
	c.restURL = server.URL

	deposit, withdraw := c.DepositWithdrawStatus(context.Background(), "BTC_USDT")
	assert.False(t, deposit)
	assert.False(t, withdraw)
}

func TestLastPrice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v4/futures/usdt/tickers", r.URL.Path)
		assert.Equal(t, "BTC_USDT", r.URL.Query().Get("contract"))
		w.Write([]byte(`[{"contract":"BTC_USDT","last":"50000.5"}]`))
	}))
	defer server.Close()

	c := fixedCodec()
	c.restURL = server.URL

	assert.Equal(t, 50000.5, c.LastPrice(context.Background(), "BTC_USDT"))
}
