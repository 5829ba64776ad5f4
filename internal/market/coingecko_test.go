package market

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"CoinPulse/internal/model"
)

func newTestClient(handler http.HandlerFunc) (*CoinGeckoClient, *httptest.Server) {
	srv := httptest.NewServer(handler)
	c := NewCoinGeckoClient(srv.URL, "usd", "", zap.NewNop())
	return c, srv
}

func TestSnapshot_ParsesRows(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/coins/markets", r.URL.Path)
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currency"))
		assert.Equal(t, "volume_desc", r.URL.Query().Get("order"))
		assert.Equal(t, "true", r.URL.Query().Get("sparkline"))
		w.Write([]byte(`[
			{"id":"bitcoin","name":"Bitcoin","symbol":"btc","image":"http://x/btc.png",
			 "current_price":50000,"market_cap":1000000,"market_cap_rank":1,
			 "total_volume":200000,"price_change_percentage_24h":-1.5,
			 "sparkline_in_7d":{"price":[1,2,3]}},
			{"id":"newcoin","name":"NewCoin","symbol":"new","image":"",
			 "current_price":2,"market_cap":0,"market_cap_rank":null,"total_volume":10}
		]`))
	})
	defer srv.Close()

	snaps, err := c.Snapshot(context.Background(), model.OrderVolume, 10)
	require.NoError(t, err)
	require.Len(t, snaps, 2)

	assert.Equal(t, "bitcoin", snaps[0].ID)
	assert.Equal(t, 1, snaps[0].Rank)
	require.NotNil(t, snaps[0].Change24h)
	assert.InDelta(t, -1.5, *snaps[0].Change24h, 1e-9)
	assert.Equal(t, []float64{1, 2, 3}, snaps[0].Sparkline7d)

	// Missing rank falls back to list position, missing change stays absent.
	assert.Equal(t, 2, snaps[1].Rank)
	assert.Nil(t, snaps[1].Change24h)
	assert.Nil(t, snaps[1].Sparkline7d)
}

func TestSnapshot_HTTPFailureIsTransportError(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	defer srv.Close()

	_, err := c.Snapshot(context.Background(), model.OrderMarketCap, 10)
	require.Error(t, err)
	assert.True(t, IsTransport(err))
}

func TestSnapshot_MalformedPayloadIsTransportError(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not":"an array"}`))
	})
	defer srv.Close()

	_, err := c.Snapshot(context.Background(), model.OrderMarketCap, 10)
	require.Error(t, err)
	assert.True(t, IsTransport(err))
}

func TestHistory_ExtractsPricesInTimestampOrder(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/coins/bitcoin/market_chart", r.URL.Path)
		assert.Equal(t, "200", r.URL.Query().Get("days"))
		assert.Equal(t, "daily", r.URL.Query().Get("interval"))
		w.Write([]byte(`{"prices":[[3000,30],[1000,10],[2000,20]]}`))
	})
	defer srv.Close()

	series, err := c.History(context.Background(), "bitcoin", 200)
	require.NoError(t, err)
	assert.Equal(t, model.HistorySeries{10, 20, 30}, series)
}

func TestHistory_EmptyPricesIsValidEmptySeries(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"prices":[]}`))
	})
	defer srv.Close()

	series, err := c.History(context.Background(), "newcoin", 200)
	require.NoError(t, err)
	assert.Empty(t, series)
}

func TestHistory_NetworkFailureIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	c := NewCoinGeckoClient(srv.URL, "usd", "", zap.NewNop())
	srv.Close() // connection refused from here on

	_, err := c.History(context.Background(), "bitcoin", 200)
	require.Error(t, err)
	assert.True(t, IsTransport(err))
}
