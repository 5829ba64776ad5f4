package recorder

import "time"

// CycleRecord summarizes one completed refresh cycle.
type CycleRecord struct {
	Seq      uint64
	Order    string
	Records  int
	Failures int
	Duration time.Duration
	Err      string // empty on success
}

// AssetFailure records one per-asset history fetch that was downgraded.
type AssetFailure struct {
	AssetID string
	Reason  string
}

// Recorder journals refresh-cycle outcomes for operational analysis.
type Recorder interface {
	RecordCycle(rec *CycleRecord) error
	RecordAssetFailure(evt *AssetFailure) error
	Prune(olderThan time.Time) error
	Close() error
}
