package syncer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/interprelab/go-offline-cache/pkg/config"
	"github.com/interprelab/go-offline-cache/pkg/interfaces/logger"
	"github.com/interprelab/go-offline-cache/pkg/interfaces/queue"
	"github.com/interprelab/go-offline-cache/pkg/offline"
	"github.com/interprelab/go-offline-cache/pkg/retry"
)

var (
	// ErrClosed is returned when registering on a closed manager.
	ErrClosed = errors.New("syncer: manager closed")
	// ErrStillOffline marks an attempt in which every endpoint failed.
	ErrStillOffline = errors.New("syncer: every endpoint failed")

	errSyncerRequired = errors.New("syncer: sync handler is required")
	errInvalidPayload = errors.New("syncer: job payload must be a sync tag")
)

// Handler runs one sync pass for a tag. *offline.Controller satisfies it.
type Handler interface {
	Sync(ctx context.Context, tag string) (offline.SyncReport, error)
}

// Result is reported once a registration has finished, successfully or not.
type Result struct {
	Tag      string
	Attempts int
	Report   offline.SyncReport
	Err      error
}

// Dependencies wires the manager.
type Dependencies struct {
	Handler    Handler
	Config     config.SyncConfig
	Backoff    retry.Backoff
	Logger     logger.Logger
	OnComplete func(Result)
}

// Manager queues background sync registrations and retries them until the
// origin is reachable again. Registrations for a tag that is already pending
// are coalesced.
type Manager struct {
	handler     Handler
	maxAttempts int
	backoff     retry.Backoff
	logger      logger.Logger
	onComplete  func(Result)

	jobs   chan queue.Job
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	pending map[string]struct{}
	closed  bool
}

var _ queue.Queue = (*Manager)(nil)

// New starts a manager with a single worker.
func New(deps Dependencies) (*Manager, error) {
	if deps.Handler == nil {
		return nil, errSyncerRequired
	}
	if deps.Logger == nil {
		deps.Logger = &logger.Nop{}
	}
	if deps.Backoff == nil {
		deps.Backoff = retry.ExponentialBackoff{Base: deps.Config.BaseDelay, Max: deps.Config.MaxDelay}
	}
	maxAttempts := deps.Config.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = config.Defaults().Sync.MaxAttempts
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		handler:     deps.Handler,
		maxAttempts: maxAttempts,
		backoff:     deps.Backoff,
		logger:      deps.Logger,
		onComplete:  deps.OnComplete,
		jobs:        make(chan queue.Job, 16),
		ctx:         ctx,
		cancel:      cancel,
		pending:     make(map[string]struct{}),
	}
	m.wg.Add(1)
	go m.run()
	return m, nil
}

// Register schedules a sync for tag as soon as possible.
func (m *Manager) Register(ctx context.Context, tag string) error {
	return m.Enqueue(ctx, queue.Job{
		Key:     "sync:" + tag,
		Payload: tag,
		RunAt:   time.Now(),
	})
}

// Enqueue implements queue.Queue. The payload must be the sync tag.
func (m *Manager) Enqueue(ctx context.Context, job queue.Job) error {
	tag, ok := job.Payload.(string)
	if !ok || strings.TrimSpace(tag) == "" {
		return errInvalidPayload
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if _, exists := m.pending[tag]; exists {
		m.mu.Unlock()
		m.logger.Debug("sync already pending", logger.F("tag", tag))
		return nil
	}
	m.pending[tag] = struct{}{}
	m.mu.Unlock()

	select {
	case m.jobs <- job:
		return nil
	case <-ctx.Done():
		m.release(tag)
		return ctx.Err()
	case <-m.ctx.Done():
		m.release(tag)
		return ErrClosed
	}
}

// Pending lists tags registered but not yet finished.
func (m *Manager) Pending() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.pending))
	for tag := range m.pending {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// Close stops the worker; in-flight retries are abandoned.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()
	m.cancel()
	m.wg.Wait()
	return nil
}

func (m *Manager) run() {
	defer m.wg.Done()
	for {
		select {
		case <-m.ctx.Done():
			return
		case job := <-m.jobs:
			m.process(job)
		}
	}
}

func (m *Manager) process(job queue.Job) {
	tag := job.Payload.(string)
	defer m.release(tag)

	if wait := time.Until(job.RunAt); wait > 0 {
		timer := time.NewTimer(wait)
		select {
		case <-m.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}

	result := Result{Tag: tag}
	result.Err = retry.Do(m.ctx, m.maxAttempts, m.backoff, func(ctx context.Context, attempt int) error {
		result.Attempts = attempt
		report, err := m.handler.Sync(ctx, tag)
		result.Report = report
		if err != nil {
			return err
		}
		if report.AllFailed() {
			return fmt.Errorf("%w: %s", ErrStillOffline, strings.Join(report.FailedEndpoints(), ", "))
		}
		return nil
	})

	if result.Err != nil {
		m.logger.Warn("background sync gave up",
			logger.F("tag", tag),
			logger.F("attempts", result.Attempts),
			logger.F("error", result.Err),
		)
	} else {
		m.logger.Info("background sync finished", logger.F("tag", tag), logger.F("attempts", result.Attempts))
	}
	if m.onComplete != nil {
		m.onComplete(result)
	}
}

func (m *Manager) release(tag string) {
	m.mu.Lock()
	delete(m.pending, tag)
	m.mu.Unlock()
}
