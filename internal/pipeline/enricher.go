package pipeline

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"CoinPulse/internal/calculator"
	"CoinPulse/internal/market"
	"CoinPulse/internal/metrics"
	"CoinPulse/internal/model"
	"CoinPulse/internal/recorder"
)

// Enricher fans out per-asset history fetches, computes indicators, and
// merges the results back into rank order.
type Enricher struct {
	client       market.Client
	recorder     recorder.Recorder
	log          *zap.Logger
	lookbackDays int
}

// NewEnricher creates an Enricher.
func NewEnricher(client market.Client, rec recorder.Recorder, lookbackDays int, log *zap.Logger) *Enricher {
	return &Enricher{
		client:       client,
		recorder:     rec,
		log:          log,
		lookbackDays: lookbackDays,
	}
}

// Enrich fetches history for every snapshot concurrently and merges the
// computed indicators into EnrichedRecords. Output order matches input order
// regardless of fetch completion order, and the call returns only after
// every per-asset fetch has settled. A failed fetch downgrades that one
// record to absent indicators; it never aborts the batch. The second return
// value is the number of downgraded records.
func (e *Enricher) Enrich(ctx context.Context, snapshots []model.AssetSnapshot) ([]model.EnrichedRecord, int) {
	records := make([]model.EnrichedRecord, len(snapshots))
	failed := make([]bool, len(snapshots))

	var wg sync.WaitGroup
	for i, snap := range snapshots {
		wg.Add(1)
		go func(i int, snap model.AssetSnapshot) {
			defer wg.Done()
			records[i], failed[i] = e.enrichOne(ctx, snap)
		}(i, snap)
	}
	wg.Wait()

	failures := 0
	for _, f := range failed {
		if f {
			failures++
		}
	}
	return records, failures
}

func (e *Enricher) enrichOne(ctx context.Context, snap model.AssetSnapshot) (model.EnrichedRecord, bool) {
	rec := model.EnrichedRecord{AssetSnapshot: snap}

	series, err := e.client.History(ctx, snap.ID, e.lookbackDays)
	if err != nil {
		e.observeFailure(snap.ID, err)
		return rec, true
	}
	if len(series) == 0 {
		// Well-formed but empty: newly listed asset, no history to derive from.
		e.observeFailure(snap.ID, market.ErrDataUnavailable)
		rec.Indicators = computeIndicators(nil, snap.Volume24h, snap.MarketCap)
		return rec, true
	}

	rec.Indicators = computeIndicators(series, snap.Volume24h, snap.MarketCap)
	return rec, false
}

func (e *Enricher) observeFailure(assetID string, err error) {
	e.log.Warn("history fetch failed, emitting record without indicators",
		zap.String("asset", assetID), zap.Error(err))
	metrics.AssetFetchFailures.Inc()
	if rerr := e.recorder.RecordAssetFailure(&recorder.AssetFailure{
		AssetID: assetID,
		Reason:  err.Error(),
	}); rerr != nil {
		e.log.Error("record asset failure", zap.Error(rerr))
	}
}

// computeIndicators derives the full IndicatorSet. Each field is computed
// independently; insufficient data leaves that field absent.
func computeIndicators(series model.HistorySeries, volume, marketCap float64) model.IndicatorSet {
	var ind model.IndicatorSet

	if v, err := calculator.MovingAverage(series, 50); err == nil {
		ind.MA50 = &v
	}
	if v, err := calculator.MovingAverage(series, 200); err == nil {
		ind.MA200 = &v
	}
	if v, err := calculator.RSI(calculator.TrailingWindow(series, 15), 14); err == nil {
		ind.RSI14 = &v
	}
	ind.Last30d = calculator.TrailingWindow(series, 30)
	if v, err := calculator.VolumeToMarketCapRatio(volume, marketCap); err == nil {
		ind.VolumeCap = &v
	}
	return ind
}
