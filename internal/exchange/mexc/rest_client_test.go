package mexc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perpspread-scanner/internal/credentials"
)

func TestCoinStatus(t *testing.T) {
	coins := []coinConfig{
		{
			Coin: "BTC",
			NetworkList: []coinNetwork{
				{DepositEnable: false, WithdrawEnable: true},
				{DepositEnable: true, WithdrawEnable: false},
			},
		},
		{
			Coin: "DEAD",
			NetworkList: []coinNetwork{
				{DepositEnable: false, WithdrawEnable: false},
			},
		},
	}

	deposit, withdraw := coinStatus(coins, "BTC_USDT")
	assert.True(t, deposit)
	assert.True(t, withdraw)

	deposit, withdraw = coinStatus(coins, "DEAD_USDT")
	assert.False(t, deposit)
	assert.False(t, withdraw)

	deposit, withdraw = coinStatus(coins, "UNKNOWN_USDT")
	assert.False(t, deposit)
	assert.False(t, withdraw)
}

func TestDepositWithdrawStatusSigned(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/capital/config/getall", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-MEXC-APIKEY"))
		assert.NotEmpty(t, r.URL.Query().Get("timestamp"))
		assert.NotEmpty(t, r.URL.Query().Get("signature"))
		w.Write([]byte(`[{"coin":"BTC","networkList":[{"depositEnable":true,"withdrawEnable":true}]}]`))
	}))
	defer server.Close()

	c := &Codec{
		creds:   credentials.Credentials{APIKey: "test-key", APISecret: "test-secret"},
		client:  &http.Client{Timeout: time.Second},
		spotURL: server.URL,
	}

	deposit, withdraw := c.DepositWithdrawStatus(context.Background(), "BTC_USDT")
	assert.True(t, deposit)
	assert.True(t, withdraw)
}

func TestSignDeterministic(t *testing.T) {
	c := &Codec{creds: credentials.Credentials{APISecret: "secret"}}
	require.Equal(t, c.sign("timestamp=123"), c.sign("timestamp=123"))
	assert.NotEqual(t, c.sign("timestamp=123"), c.sign("timestamp=124"))
	assert.Len(t, c.sign("timestamp=123"), 64)
}
