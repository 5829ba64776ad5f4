package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"CoinPulse/internal/market"
	"CoinPulse/internal/metrics"
	"CoinPulse/internal/model"
	"CoinPulse/internal/pipeline"
	"CoinPulse/internal/recorder"
)

// State is the refresh loop's lifecycle state.
type State int

const (
	StateIdle State = iota
	StateFetching
	StateArmedWaiting
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateArmedWaiting:
		return "armed"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// Sink consumes completed boards and cycle-level errors. It is the boundary
// to the presentation layer; the scheduler never touches rendering.
type Sink interface {
	PublishBoard(board model.Board)
	PublishError(err error)
}

// Scheduler drives the refresh pipeline on a fixed interval. It guarantees
// at most one in-flight cycle, re-arms itself after every cycle whether it
// succeeded or not, and discards stale results via a monotonically
// increasing cycle sequence compared at write-back.
type Scheduler struct {
	ctx      context.Context
	client   market.Client
	enricher *pipeline.Enricher
	sink     Sink
	recorder recorder.Recorder
	log      *zap.Logger

	interval time.Duration
	pageSize int

	mu        sync.Mutex
	state     State
	seq       uint64 // current cycle sequence; bumping it invalidates in-flight work
	pending   bool   // a superseding cycle queued behind the in-flight one
	order     model.SortOrder
	timeframe model.Timeframe
	board     model.Board
	timer     *time.Timer
}

// Option tweaks scheduler construction.
type Option func(*Scheduler)

// WithDefaults sets the initial sort order and chart timeframe.
func WithDefaults(order model.SortOrder, tf model.Timeframe) Option {
	return func(s *Scheduler) {
		s.order = order
		s.timeframe = tf
	}
}

// NewScheduler creates a stopped-at-idle scheduler.
func NewScheduler(ctx context.Context, client market.Client, enricher *pipeline.Enricher,
	sink Sink, rec recorder.Recorder, interval time.Duration, pageSize int,
	log *zap.Logger, opts ...Option) *Scheduler {

	s := &Scheduler{
		ctx:       ctx,
		client:    client,
		enricher:  enricher,
		sink:      sink,
		recorder:  rec,
		log:       log,
		interval:  interval,
		pageSize:  pageSize,
		state:     StateIdle,
		order:     model.OrderMarketCap,
		timeframe: model.Timeframe30d,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start runs the first cycle immediately and arms the loop. Calling it
// while the scheduler is already running is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return
	}
	s.beginCycleLocked()
}

// Stop cancels any pending timer and invalidates in-flight work. Idempotent;
// no further network activity is initiated after it returns.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateStopped {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.seq++ // in-flight cycle, if any, becomes stale
	s.pending = false
	s.state = StateStopped
	s.log.Info("scheduler stopped")
}

// SetOrder switches the snapshot ranking metric. A change supersedes any
// in-flight cycle: the in-flight result is discarded at write-back and a
// fresh cycle for the new order runs immediately after it settles.
func (s *Scheduler) SetOrder(order model.SortOrder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if order == s.order || s.state == StateStopped {
		return
	}
	s.order = order
	s.log.Info("sort order changed", zap.String("order", string(order)))

	switch s.state {
	case StateFetching:
		s.seq++ // stale-mark the in-flight cycle
		s.pending = true
	case StateArmedWaiting:
		if s.timer != nil {
			s.timer.Stop()
			s.timer = nil
		}
		s.beginCycleLocked()
	case StateIdle:
		// takes effect when Start runs the first cycle
	}
}

// SetTimeframe switches the charted series. Both 7-day and 30-day series
// are already retained per record, so this republishes without fetching.
func (s *Scheduler) SetTimeframe(tf model.Timeframe) {
	s.mu.Lock()
	if tf == s.timeframe || s.state == StateStopped {
		s.mu.Unlock()
		return
	}
	s.timeframe = tf
	s.board.Timeframe = tf
	board := s.board
	s.mu.Unlock()

	s.log.Info("timeframe changed", zap.String("timeframe", string(tf)))
	if len(board.Records) > 0 {
		s.sink.PublishBoard(board)
	}
}

// Board returns the latest completed record set.
func (s *Scheduler) Board() model.Board {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board
}

// State returns the current lifecycle state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// beginCycleLocked transitions to Fetching and launches one cycle. Caller
// holds the lock.
func (s *Scheduler) beginCycleLocked() {
	s.seq++
	s.state = StateFetching
	go s.runCycle(s.seq, s.order)
}

func (s *Scheduler) runCycle(seq uint64, order model.SortOrder) {
	cycleID := uuid.NewString()[:8]
	log := s.log.With(zap.Uint64("seq", seq), zap.String("cycle", cycleID),
		zap.String("order", string(order)))
	log.Info("refresh cycle started")
	start := time.Now()

	snaps, err := s.client.Snapshot(s.ctx, order, s.pageSize)
	var records []model.EnrichedRecord
	var failures int
	if err == nil {
		records, failures = s.enricher.Enrich(s.ctx, snaps)
	}
	elapsed := time.Since(start)

	s.finishCycle(seq, order, records, failures, err, elapsed, log)
}

// finishCycle is the single write-back point. Only the cycle holding the
// current sequence number may replace the board.
func (s *Scheduler) finishCycle(seq uint64, order model.SortOrder, records []model.EnrichedRecord,
	failures int, cycleErr error, elapsed time.Duration, log *zap.Logger) {

	s.mu.Lock()
	if s.state == StateStopped {
		s.mu.Unlock()
		log.Info("refresh cycle discarded, scheduler stopped")
		metrics.CyclesTotal.WithLabelValues("stale").Inc()
		return
	}

	stale := seq != s.seq
	var board model.Board
	if !stale && cycleErr == nil {
		s.board = model.Board{
			Records:   records,
			Order:     order,
			Timeframe: s.timeframe,
			Cycle:     seq,
			UpdatedAt: time.Now(),
		}
		board = s.board
	}

	// Decide what runs next: a queued superseding cycle beats the timer.
	if s.pending {
		s.pending = false
		s.beginCycleLocked()
	} else if !stale {
		s.state = StateArmedWaiting
		s.armTimerLocked()
	}
	s.mu.Unlock()

	metrics.CycleDuration.Observe(elapsed.Seconds())

	switch {
	case stale:
		log.Info("refresh cycle superseded, result discarded")
		metrics.CyclesTotal.WithLabelValues("stale").Inc()
		return
	case cycleErr != nil:
		log.Error("refresh cycle failed", zap.Error(cycleErr), zap.Duration("elapsed", elapsed))
		metrics.CyclesTotal.WithLabelValues("failed").Inc()
		s.sink.PublishError(cycleErr)
	default:
		log.Info("refresh cycle completed", zap.Int("records", len(records)),
			zap.Int("failures", failures), zap.Duration("elapsed", elapsed))
		metrics.CyclesTotal.WithLabelValues("success").Inc()
		s.sink.PublishBoard(board)
	}

	rec := &recorder.CycleRecord{
		Seq:      seq,
		Order:    string(order),
		Records:  len(records),
		Failures: failures,
		Duration: elapsed,
	}
	if cycleErr != nil {
		rec.Err = cycleErr.Error()
	}
	if err := s.recorder.RecordCycle(rec); err != nil {
		log.Error("record cycle", zap.Error(err))
	}
}

// armTimerLocked schedules the next cycle. Caller holds the lock.
func (s *Scheduler) armTimerLocked() {
	s.timer = time.AfterFunc(s.interval, s.onTimer)
}

func (s *Scheduler) onTimer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateArmedWaiting {
		return
	}
	s.beginCycleLocked()
}
