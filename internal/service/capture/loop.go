package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"camclassify/internal/config"
	"camclassify/internal/dto"
	"camclassify/internal/logger"
	"camclassify/internal/models"
	"camclassify/internal/service/ai"
	"camclassify/internal/service/camera"
	"camclassify/internal/service/storage"
)

// Store is the sink for recorded predictions.
type Store interface {
	Add(ctx context.Context, p models.Prediction) error
}

// Loop periodically classifies the current camera frame and persists the
// result. Toggle is the only way to start or stop it.
type Loop struct {
	source     camera.Source
	classifier ai.Classifier
	store      Store
	notifier   Notifier
	logger     *logger.Logger

	interval         time.Duration
	inferenceTimeout time.Duration
	inputSize        int
	inputScale       float64
	now              func() time.Time

	// toggleMu serializes Toggle, SelectDevice and fault handling.
	toggleMu sync.Mutex

	mu      sync.Mutex
	state   State
	session *Session
	lastErr error

	inflight sync.WaitGroup
}

// NewLoop creates an idle loop.
func NewLoop(cfg *config.Config, source camera.Source, classifier ai.Classifier, store Store, notifier Notifier, logger *logger.Logger) *Loop {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &Loop{
		source:           source,
		classifier:       classifier,
		store:            store,
		notifier:         notifier,
		logger:           logger,
		interval:         cfg.PollInterval(),
		inferenceTimeout: cfg.InferenceTimeout(),
		inputSize:        cfg.InputSize,
		inputScale:       cfg.InputScale,
		now:              time.Now,
		state:            Idle,
	}
}

// State returns the current state.
func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Status returns the state together with the running session, if any.
func (l *Loop) Status() dto.CaptureStatus {
	l.mu.Lock()
	defer l.mu.Unlock()

	status := dto.CaptureStatus{
		State:       l.state.String(),
		ButtonLabel: l.state.ButtonLabel(),
		DeviceID:    l.source.Selected(),
	}
	if l.session != nil {
		info := l.session.Info()
		status.Session = &info
	}
	if l.lastErr != nil {
		status.Error = l.lastErr.Error()
	}
	return status
}

// SelectDevice changes the camera used by the next start. It is rejected
// while a session is active.
func (l *Loop) SelectDevice(id string) error {
	l.toggleMu.Lock()
	defer l.toggleMu.Unlock()

	if s := l.State(); s != Idle && s != Error {
		return ErrCaptureActive
	}
	return l.source.SelectDevice(id)
}

// Toggle starts capturing when idle (or after an error) and stops it when
// running. It returns the resulting state.
func (l *Loop) Toggle(ctx context.Context) (State, error) {
	l.toggleMu.Lock()
	defer l.toggleMu.Unlock()

	if l.State() == Running {
		l.stop()
		return Idle, nil
	}
	return l.start(ctx)
}

func (l *Loop) start(ctx context.Context) (State, error) {
	deviceID := l.source.Selected()
	if deviceID == "" {
		if l.State() != Idle {
			l.setState(Idle, nil, "")
		}
		return Idle, camera.ErrNoDeviceSelected
	}

	l.setState(Starting, nil, "")

	if err := l.source.Start(ctx); err != nil {
		l.logger.Error("Failed to start camera %s: %v", deviceID, err)
		l.setState(Error, err, "")
		return Error, fmt.Errorf("failed to start capture: %w", err)
	}

	// ticks must outlive the request that started them
	sess := newSession(context.WithoutCancel(ctx), deviceID, l.now(), l.interval)

	l.mu.Lock()
	l.session = sess
	l.mu.Unlock()

	go l.run(sess)

	l.setState(Running, nil, sess.ID)
	l.logger.Info("Capture session %s started on device %s", sess.ID, deviceID)
	return Running, nil
}

// stop tears down the session. The ticker goroutine is joined before the
// source is released; a classification already in flight completes on its own.
func (l *Loop) stop() {
	l.mu.Lock()
	sess := l.session
	l.mu.Unlock()

	if sess == nil {
		l.setState(Idle, nil, "")
		return
	}

	l.setState(Stopping, nil, sess.ID)
	l.teardown(sess)

	if err := l.source.Stop(); err != nil {
		l.logger.Warning("Failed to release camera: %v", err)
	}

	info := sess.Info()
	l.logger.Info("Capture session %s stopped: %d ticks, %d recorded, %d skipped, %d failed",
		info.ID, info.Ticks, info.Recorded, info.Skipped, info.Failures)

	l.mu.Lock()
	l.session = nil
	l.mu.Unlock()
	l.setState(Idle, nil, sess.ID)
}

func (l *Loop) teardown(sess *Session) {
	select {
	case <-sess.done:
	default:
		close(sess.done)
	}
	sess.ticker.Stop()
	<-sess.exited
}

// handleFault moves a session that lost its device into Error.
func (l *Loop) handleFault(sess *Session, cause error) {
	l.toggleMu.Lock()
	defer l.toggleMu.Unlock()

	l.mu.Lock()
	current := l.session
	l.mu.Unlock()
	if current != sess {
		return
	}

	l.logger.Error("Camera lost during session %s: %v", sess.ID, cause)
	l.teardown(sess)
	if err := l.source.Stop(); err != nil {
		l.logger.Warning("Failed to release camera: %v", err)
	}

	l.mu.Lock()
	l.session = nil
	l.mu.Unlock()
	l.setState(Error, cause, sess.ID)
}

func (l *Loop) setState(s State, err error, sessionID string) {
	l.mu.Lock()
	l.state = s
	l.lastErr = err
	l.mu.Unlock()

	e := Event{Type: EventState, Time: l.now(), State: s.String(), SessionID: sessionID}
	if err != nil {
		e.Error = err.Error()
	}
	l.notifier.Notify(e)
}

// run delivers ticks until the session is torn down or the source faults.
func (l *Loop) run(sess *Session) {
	defer close(sess.exited)

	var fault <-chan error
	if f, ok := l.source.(camera.Faulter); ok {
		fault = f.Fault()
	}

	for {
		select {
		case <-sess.done:
			return
		case <-sess.ticker.C:
			l.tick(sess)
		case err := <-fault:
			go l.handleFault(sess, err)
			return
		}
	}
}

// tick starts one classification unless the previous one is still running.
func (l *Loop) tick(sess *Session) {
	select {
	case <-sess.done:
		return
	default:
	}

	sess.ticks.Add(1)
	if !sess.busy.CompareAndSwap(false, true) {
		sess.skipped.Add(1)
		return
	}

	l.inflight.Add(1)
	go func() {
		defer l.inflight.Done()
		defer sess.busy.Store(false)
		if abandoned := l.process(sess); abandoned != nil {
			// a timed out forward pass still owns the classifier
			<-abandoned
		}
	}()
}

// process runs one classify and persist step. It returns a channel that is
// closed once a classification abandoned by the watchdog has returned.
func (l *Loop) process(sess *Session) <-chan struct{} {
	frame, err := l.source.CurrentFrame()
	if err != nil {
		if !errors.Is(err, camera.ErrNoFrameYet) {
			l.tickFailed(sess, "Failed to read frame", err)
		}
		return nil
	}

	tensor, err := ai.NewTensor(frame.Image, l.inputSize, l.inputScale)
	if err != nil {
		l.tickFailed(sess, "Failed to prepare frame", err)
		return nil
	}

	probs, abandoned, err := l.classify(sess.ctx, tensor)
	if err != nil {
		l.tickFailed(sess, "Classification failed", err)
		return abandoned
	}

	prediction := models.NewPrediction(l.now(), probs)

	if err := l.store.Add(sess.ctx, prediction); err != nil {
		if errors.Is(err, storage.ErrStorageUnavailable) {
			if sess.storageWarned.CompareAndSwap(false, true) {
				l.logger.Warning("Predictions are not being saved: %v", err)
				l.notifier.Notify(Event{Type: EventStorageWarning, Time: l.now(), SessionID: sess.ID, Error: err.Error()})
			}
			return nil
		}
		l.tickFailed(sess, "Failed to save prediction", err)
		return nil
	}

	sess.recorded.Add(1)
	l.notifier.Notify(Event{Type: EventPrediction, Time: l.now(), SessionID: sess.ID, Prediction: &prediction})
	return nil
}

// classify applies the inference watchdog when one is configured. On timeout
// the forward pass keeps running in the background, its result is dropped and
// the returned channel is closed when it finally returns.
func (l *Loop) classify(ctx context.Context, t *ai.Tensor) (models.Probabilities, <-chan struct{}, error) {
	if l.inferenceTimeout <= 0 {
		probs, err := l.classifier.Classify(ctx, t)
		return probs, nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, l.inferenceTimeout)
	defer cancel()

	type outcome struct {
		probs models.Probabilities
		err   error
	}
	result := make(chan outcome, 1)
	returned := make(chan struct{})
	go func() {
		defer close(returned)
		probs, err := l.classifier.Classify(ctx, t)
		result <- outcome{probs, err}
	}()

	select {
	case o := <-result:
		return o.probs, nil, o.err
	case <-ctx.Done():
		return models.Probabilities{}, returned, fmt.Errorf("%w: no result within %v", ai.ErrInference, l.inferenceTimeout)
	}
}

func (l *Loop) tickFailed(sess *Session, msg string, err error) {
	sess.failures.Add(1)
	l.logger.Error("%s: %v", msg, err)
	l.notifier.Notify(Event{Type: EventTickFailed, Time: l.now(), SessionID: sess.ID, Error: err.Error()})
}

// Shutdown stops a running session and waits for in-flight classifications
// so their predictions reach the store.
func (l *Loop) Shutdown(ctx context.Context) error {
	l.toggleMu.Lock()
	if l.State() == Running {
		l.stop()
	}
	l.toggleMu.Unlock()

	drained := make(chan struct{})
	go func() {
		l.inflight.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
