package market

import (
	"context"
	"sync"

	"CoinPulse/internal/model"
)

// MockClient returns controllable fixed data for development and testing.
type MockClient struct {
	mu sync.Mutex

	Snapshots   []model.AssetSnapshot
	SnapshotErr error
	Histories   map[string]model.HistorySeries
	HistoryErrs map[string]error

	snapshotCalls int
	historyCalls  int
}

func (m *MockClient) Name() string { return "mock" }

func (m *MockClient) Snapshot(_ context.Context, _ model.SortOrder, pageSize int) ([]model.AssetSnapshot, error) {
	m.mu.Lock()
	m.snapshotCalls++
	m.mu.Unlock()
	if m.SnapshotErr != nil {
		return nil, m.SnapshotErr
	}
	snaps := m.Snapshots
	if len(snaps) > pageSize {
		snaps = snaps[:pageSize]
	}
	return snaps, nil
}

func (m *MockClient) History(_ context.Context, assetID string, _ int) (model.HistorySeries, error) {
	m.mu.Lock()
	m.historyCalls++
	m.mu.Unlock()
	if err, ok := m.HistoryErrs[assetID]; ok {
		return nil, err
	}
	return m.Histories[assetID], nil
}

// SnapshotCalls reports how many snapshot requests were issued.
func (m *MockClient) SnapshotCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotCalls
}

// HistoryCalls reports how many history requests were issued.
func (m *MockClient) HistoryCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.historyCalls
}
