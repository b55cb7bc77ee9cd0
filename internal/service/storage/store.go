package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"camclassify/internal/config"
	"camclassify/internal/logger"
	"camclassify/internal/models"
	"camclassify/internal/repository"
)

// openRetryInterval is the minimum delay between two attempts to open a
// repository that failed to open.
const openRetryInterval = 5 * time.Second

type opKind int

const (
	opAdd opKind = iota
	opList
	opClear
	opCount
)

type result struct {
	records []models.Prediction
	count   int
	err     error
}

type request struct {
	kind   opKind
	record models.Prediction
	reply  chan result
}

// PredictionStore is the durable, ordered log of predictions. Every
// operation goes through one queue drained by a single writer goroutine, so
// a list or clear observes all adds queued before it.
type PredictionStore struct {
	open          Opener
	logger        *logger.Logger
	queueSize     int
	retryInterval time.Duration

	mu          sync.RWMutex
	repo        repository.PredictionRepository
	requests    chan request
	done        chan struct{}
	closed      bool
	opening     bool
	openErr     error
	nextAttempt time.Time

	subsMu      sync.Mutex
	subscribers []func(error)
}

// NewPredictionStore creates a store for the configured backend. Nothing is
// opened until the first access.
func NewPredictionStore(cfg *config.Config, logger *logger.Logger) *PredictionStore {
	return NewPredictionStoreWithOpener(NewOpener(cfg, logger), cfg.WriteQueueSize, logger)
}

// NewPredictionStoreWithOpener creates a store over an arbitrary repository.
func NewPredictionStoreWithOpener(open Opener, queueSize int, logger *logger.Logger) *PredictionStore {
	if queueSize < 1 {
		queueSize = 1
	}
	return &PredictionStore{
		open:          open,
		logger:        logger,
		queueSize:     queueSize,
		retryInterval: openRetryInterval,
	}
}

// Open opens the backing repository and starts the writer. It is idempotent.
// After a failure, calls fail fast until the retry interval has passed; a
// call made while another one is opening fails fast as well.
func (s *PredictionStore) Open(ctx context.Context) error {
	s.mu.Lock()
	if err := s.checkOpen(); err != nil || s.repo != nil {
		s.mu.Unlock()
		return err
	}
	s.opening = true
	s.mu.Unlock()

	repo, err := s.open(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.opening = false

	if err != nil {
		s.openErr = err
		s.nextAttempt = time.Now().Add(s.retryInterval)
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if s.closed {
		repo.Close()
		return fmt.Errorf("%w: store closed", ErrStorageUnavailable)
	}

	s.openErr = nil
	s.repo = repo
	s.requests = make(chan request, s.queueSize)
	s.done = make(chan struct{})
	go s.run(repo, s.requests, s.done)

	s.logger.Info("Prediction store opened")
	return nil
}

// checkOpen reports why an open must not be attempted now. Callers hold mu.
func (s *PredictionStore) checkOpen() error {
	switch {
	case s.closed:
		return fmt.Errorf("%w: store closed", ErrStorageUnavailable)
	case s.repo != nil:
		return nil
	case s.opening:
		return fmt.Errorf("%w: open in progress", ErrStorageUnavailable)
	}
	if wait := time.Until(s.nextAttempt); wait > 0 {
		return fmt.Errorf("%w: next attempt in %v: %v", ErrStorageUnavailable, wait.Round(time.Millisecond), s.openErr)
	}
	return nil
}

// OnWriteFailed registers fn to be called for every add that fails after it
// was accepted. fn runs on the writer goroutine and must not block.
func (s *PredictionStore) OnWriteFailed(fn func(error)) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// Add queues p for persistence and returns without waiting for the commit.
func (s *PredictionStore) Add(ctx context.Context, p models.Prediction) error {
	if err := s.Open(ctx); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return fmt.Errorf("%w: store closed", ErrWriteFailed)
	}

	select {
	case s.requests <- request{kind: opAdd, record: p}:
		return nil
	default:
		return fmt.Errorf("%w: write queue full", ErrWriteFailed)
	}
}

// ListAll returns every stored prediction in insertion order, including all
// adds queued before the call.
func (s *PredictionStore) ListAll(ctx context.Context) ([]models.Prediction, error) {
	res, err := s.call(ctx, opList)
	if err != nil {
		return nil, err
	}
	return res.records, nil
}

// ClearAll removes every stored prediction. Adds queued before the call are
// removed as well; adds queued after it survive.
func (s *PredictionStore) ClearAll(ctx context.Context) error {
	_, err := s.call(ctx, opClear)
	return err
}

// Count returns the number of stored predictions.
func (s *PredictionStore) Count(ctx context.Context) (int, error) {
	res, err := s.call(ctx, opCount)
	if err != nil {
		return 0, err
	}
	return res.count, nil
}

func (s *PredictionStore) call(ctx context.Context, kind opKind) (result, error) {
	if err := s.Open(ctx); err != nil {
		return result{}, err
	}

	reply := make(chan result, 1)
	if err := s.enqueue(ctx, request{kind: kind, reply: reply}); err != nil {
		return result{}, err
	}

	select {
	case res := <-reply:
		return res, res.err
	case <-ctx.Done():
		return result{}, ctx.Err()
	}
}

// enqueue blocks until the request is queued. The writer never takes the
// lock, so a sender waiting on a full queue always makes progress.
func (s *PredictionStore) enqueue(ctx context.Context, req request) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return fmt.Errorf("%w: store closed", ErrStorageUnavailable)
	}

	select {
	case s.requests <- req:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run drains the queue until it is closed.
func (s *PredictionStore) run(repo repository.PredictionRepository, requests <-chan request, done chan<- struct{}) {
	defer close(done)

	for req := range requests {
		switch req.kind {
		case opAdd:
			record := req.record
			if _, err := repo.Insert(&record); err != nil {
				s.writeFailed(err)
			}

		case opList:
			records, err := repo.GetAll()
			if err != nil {
				req.reply <- result{err: fmt.Errorf("failed to list predictions: %w", err)}
				continue
			}
			req.reply <- result{records: s.filterValid(records)}

		case opClear:
			if err := repo.DeleteAll(); err != nil {
				req.reply <- result{err: fmt.Errorf("failed to clear predictions: %w", err)}
				continue
			}
			s.logger.Info("Cleared all predictions")
			req.reply <- result{}

		case opCount:
			count, err := repo.Count()
			if err != nil {
				err = fmt.Errorf("failed to count predictions: %w", err)
			}
			req.reply <- result{count: count, err: err}
		}
	}
}

func (s *PredictionStore) writeFailed(cause error) {
	err := fmt.Errorf("%w: %v", ErrWriteFailed, cause)
	s.logger.Error("Error saving prediction: %v", cause)

	s.subsMu.Lock()
	subscribers := append([]func(error){}, s.subscribers...)
	s.subsMu.Unlock()

	for _, fn := range subscribers {
		fn(err)
	}
}

// filterValid drops records that do not have the expected shape.
func (s *PredictionStore) filterValid(records []models.Prediction) []models.Prediction {
	valid := records[:0]
	for _, r := range records {
		if err := r.Validate(); err != nil {
			s.logger.Warning("Skipping stored prediction %d: %v", r.ID, err)
			continue
		}
		valid = append(valid, r)
	}
	return valid
}

// Close drains the queue, stops the writer and closes the repository.
func (s *PredictionStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	repo, done := s.repo, s.done
	if s.requests != nil {
		close(s.requests)
	}
	s.mu.Unlock()

	if repo == nil {
		return nil
	}
	<-done
	return repo.Close()
}
