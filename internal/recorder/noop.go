package recorder

import "time"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordCycle(_ *CycleRecord) error         { return nil }
func (n *NoopRecorder) RecordAssetFailure(_ *AssetFailure) error { return nil }
func (n *NoopRecorder) Prune(_ time.Time) error                  { return nil }
func (n *NoopRecorder) Close() error                             { return nil }
