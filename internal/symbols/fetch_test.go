package symbols

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"perpspread-scanner/internal/exchange"
)

func testFetcher(serverURL string) *Fetcher {
	return &Fetcher{
		client:    &http.Client{Timeout: time.Second},
		bitgetURL: serverURL,
		gateURL:   serverURL,
		bybitURL:  serverURL,
		okxURL:    serverURL,
		lbankURL:  serverURL,
	}
}

func TestFetchBitget(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/mix/v1/market/contracts", r.URL.Path)
		assert.Equal(t, "umcbl", r.URL.Query().Get("productType"))
		w.Write([]byte(`{"code":"00000","data":[{"baseCoin":"BTC","quoteCoin":"USDT"},{"baseCoin":"ETH","quoteCoin":"USDT"}]}`))
	}))
	defer server.Close()

	got := testFetcher(server.URL).FetchBitget(context.Background())
	assert.Equal(t, []string{"BTC_USDT", "ETH_USDT"}, got)
}

func TestFetchBitgetAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":"40001","data":null}`))
	}))
	defer server.Close()

	got := testFetcher(server.URL).FetchBitget(context.Background())
	assert.Empty(t, got)
}

func TestFetchGate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v4/futures/usdt/contracts", r.URL.Path)
		w.Write([]byte(`[{"name":"BTC_USDT"},{"name":"ETH_USDT"},{"name":""}]`))
	}))
	defer server.Close()

	got := testFetcher(server.URL).FetchGate(context.Background())
	assert.Equal(t, []string{"BTC_USDT", "ETH_USDT"}, got)
}

func TestFetchBybit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v5/market/tickers", r.URL.Path)
		assert.Equal(t, "linear", r.URL.Query().Get("category"))
		w.Write([]byte(`{"result":{"list":[{"symbol":"BTCUSDT"},{"symbol":"ETHUSDT"}]}}`))
	}))
	defer server.Close()

	got := testFetcher(server.URL).FetchBybit(context.Background())
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, got)
}

func TestFetchOKX(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v5/public/mark-price", r.URL.Path)
		assert.Equal(t, "SWAP", r.URL.Query().Get("instType"))
		w.Write([]byte(`{"data":[{"instId":"BTC-USDT-SWAP"},{"instId":"ETH-USDT-SWAP"}]}`))
	}))
	defer server.Close()

	got := testFetcher(server.URL).FetchOKX(context.Background())
	assert.Equal(t, []string{"BTC-USDT-SWAP", "ETH-USDT-SWAP"}, got)
}

func TestFetchLBank(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/currencyPairs.do", r.URL.Path)
		w.Write([]byte(`{"result":"true","data":["btc_usdt","eth_usdt"]}`))
	}))
	defer server.Close()

	got := testFetcher(server.URL).FetchLBank(context.Background())
	assert.Equal(t, []string{"btc_usdt", "eth_usdt"}, got)
}

func TestFetchHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	f := testFetcher(server.URL)
	ctx := context.Background()
	assert.Empty(t, f.FetchBitget(ctx))
	assert.Empty(t, f.FetchGate(ctx))
	assert.Empty(t, f.FetchBybit(ctx))
	assert.Empty(t, f.FetchOKX(ctx))
	assert.Empty(t, f.FetchLBank(ctx))
}

func TestFetchAllWildcardVenues(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	catalog := testFetcher(server.URL).FetchAll(context.Background())

	// MEXC subscribes its wildcard channel, BingX ends up with nothing
	// to subscribe; both carry nil rather than an empty list.
	assert.Nil(t, catalog[exchange.MEXC])
	assert.Nil(t, catalog[exchange.BingX])
	assert.NotNil(t, catalog[exchange.Bitget])
}
