package pipeline

import (
	"context"
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"CoinPulse/internal/market"
	"CoinPulse/internal/model"
	"CoinPulse/internal/recorder"
)

func linearSeries(n int) model.HistorySeries {
	s := make(model.HistorySeries, n)
	for i := range s {
		s[i] = 100 + float64(i)
	}
	return s
}

func tenAssets() []model.AssetSnapshot {
	snaps := make([]model.AssetSnapshot, 10)
	for i := range snaps {
		snaps[i] = model.AssetSnapshot{
			ID:        fmt.Sprintf("coin-%d", i+1),
			Rank:      i + 1,
			Price:     float64(1000 - i),
			MarketCap: 1000,
			Volume24h: 500,
		}
	}
	return snaps
}

func TestEnrich_OneFailureNeverAbortsTheBatch(t *testing.T) {
	snaps := tenAssets()
	mock := &market.MockClient{
		Histories:   map[string]model.HistorySeries{},
		HistoryErrs: map[string]error{"coin-4": &market.TransportError{Op: "history coin-4", Err: errors.New("boom")}},
	}
	for _, s := range snaps {
		mock.Histories[s.ID] = linearSeries(200)
	}

	e := NewEnricher(mock, recorder.NewNoopRecorder(), 200, zap.NewNop())
	recs, failures := e.Enrich(context.Background(), snaps)

	require.Len(t, recs, 10)
	assert.Equal(t, 1, failures)

	for i, rec := range recs {
		// Rank order preserved end to end.
		assert.Equal(t, snaps[i].ID, rec.ID)

		if rec.ID == "coin-4" {
			assert.Nil(t, rec.Indicators.MA50)
			assert.Nil(t, rec.Indicators.MA200)
			assert.Nil(t, rec.Indicators.RSI14)
			assert.Nil(t, rec.Indicators.VolumeCap)
			assert.Empty(t, rec.Indicators.Last30d)
			continue
		}
		require.NotNil(t, rec.Indicators.MA50, rec.ID)
		require.NotNil(t, rec.Indicators.MA200, rec.ID)
		require.NotNil(t, rec.Indicators.RSI14, rec.ID)
		require.NotNil(t, rec.Indicators.VolumeCap, rec.ID)
		assert.Len(t, rec.Indicators.Last30d, 30)
	}
}

func TestEnrich_IndicatorValues(t *testing.T) {
	series := linearSeries(200) // strictly rising: 100..299
	mock := &market.MockClient{
		Histories: map[string]model.HistorySeries{"coin-1": series},
	}
	snaps := []model.AssetSnapshot{{ID: "coin-1", Rank: 1, MarketCap: 1000, Volume24h: 500}}

	e := NewEnricher(mock, recorder.NewNoopRecorder(), 200, zap.NewNop())
	recs, failures := e.Enrich(context.Background(), snaps)
	require.Len(t, recs, 1)
	assert.Zero(t, failures)

	ind := recs[0].Indicators
	require.NotNil(t, ind.MA50)
	assert.InDelta(t, (250.0+299.0)/2, *ind.MA50, 1e-9) // mean of last 50
	require.NotNil(t, ind.MA200)
	assert.InDelta(t, (100.0+299.0)/2, *ind.MA200, 1e-9)
	require.NotNil(t, ind.RSI14)
	assert.InDelta(t, 100.0, *ind.RSI14, 1e-9) // strictly rising series
	require.NotNil(t, ind.VolumeCap)
	assert.InDelta(t, 0.5, *ind.VolumeCap, 1e-9)
	assert.Equal(t, []float64(series[170:]), ind.Last30d)
}

func TestEnrich_ShortHistoryLeavesLongIndicatorsAbsent(t *testing.T) {
	mock := &market.MockClient{
		Histories: map[string]model.HistorySeries{"coin-1": linearSeries(10)},
	}
	snaps := []model.AssetSnapshot{{ID: "coin-1", Rank: 1, MarketCap: 1000, Volume24h: 500}}

	e := NewEnricher(mock, recorder.NewNoopRecorder(), 200, zap.NewNop())
	recs, failures := e.Enrich(context.Background(), snaps)
	require.Len(t, recs, 1)
	assert.Zero(t, failures)

	ind := recs[0].Indicators
	// MA averages whatever exists; RSI needs 15 points and stays absent.
	require.NotNil(t, ind.MA50)
	require.NotNil(t, ind.MA200)
	assert.Nil(t, ind.RSI14)
	assert.Len(t, ind.Last30d, 10)
	require.NotNil(t, ind.VolumeCap)
}

func TestEnrich_EmptySeriesCountsAsDowngraded(t *testing.T) {
	mock := &market.MockClient{
		Histories: map[string]model.HistorySeries{"newcoin": {}},
	}
	snaps := []model.AssetSnapshot{{ID: "newcoin", Rank: 1, MarketCap: 0, Volume24h: 10}}

	e := NewEnricher(mock, recorder.NewNoopRecorder(), 200, zap.NewNop())
	recs, failures := e.Enrich(context.Background(), snaps)
	require.Len(t, recs, 1)
	assert.Equal(t, 1, failures)
	assert.Nil(t, recs[0].Indicators.MA50)
	assert.Nil(t, recs[0].Indicators.RSI14)
}

func TestEnrich_EmptyInput(t *testing.T) {
	e := NewEnricher(&market.MockClient{}, recorder.NewNoopRecorder(), 200, zap.NewNop())
	recs, failures := e.Enrich(context.Background(), nil)
	assert.Empty(t, recs)
	assert.Zero(t, failures)
}
