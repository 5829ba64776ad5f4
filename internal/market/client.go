package market

import (
	"context"
	"errors"
	"fmt"

	"CoinPulse/internal/model"
)

// ErrDataUnavailable marks a well-formed but empty provider response, e.g.
// a newly listed asset with no history yet. Distinct from transport failure.
var ErrDataUnavailable = errors.New("market: no data available")

// TransportError wraps a network or HTTP failure, or an unparseable payload.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("market %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransport reports whether err is (or wraps) a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// Client defines the interface for fetching market data from the provider.
type Client interface {
	// Snapshot fetches one page of assets ranked by the given order.
	Snapshot(ctx context.Context, order model.SortOrder, pageSize int) ([]model.AssetSnapshot, error)
	// History fetches up to lookbackDays daily closing prices for one asset,
	// oldest to newest. An empty series on a successful response is valid.
	History(ctx context.Context, assetID string, lookbackDays int) (model.HistorySeries, error)
	Name() string
}
