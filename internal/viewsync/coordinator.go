// This file implements the view synchronization coordinator: an explicit
// per-view state machine (idle → debouncing → sending → succeeded |
// conflicted | failed) owned by one coordinator object, plus the
// coordinator-wide active/suspended mode that buffers patches during bulk
// operations.
package viewsync

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/petrel-data/gridbase/pkg/types"
)

// Coordinator modes. Entry and exit of suspended mode are the only places
// buffered patches move, keeping the transition auditable.
const (
	modeActive    = "active"
	modeSuspended = "suspended"
)

var errNoViewSelected = errors.New("no view selected")

// Coordinator owns the per-view patch queues, the current view selection,
// remembered per-view UI state, and the suspend buffer. All mutable state
// is guarded by mu; concurrency comes only from send latency, and at most
// one request per view is in flight at a time.
type Coordinator struct {
	mu     sync.Mutex
	svc    ViewService
	cfg    Config
	logger *slog.Logger

	mode           string
	currentTableID string
	currentViewID  string

	queues map[string]*queueState
	// buffer holds patches accepted while suspended, at most one per path.
	buffer []types.Patch
	// editing is the live UI state per view id, restored on view switch
	// without a server round trip.
	editing map[string]types.ViewConfig
	// pendingPatches holds patches addressed to an optimistic view whose
	// temporary id has not yet been swapped for a committed one. Nothing is
	// ever queued against a temporary id.
	pendingPatches map[string][]types.Patch

	// wg tracks send and retry goroutines; Wait drains them.
	wg  sync.WaitGroup
	now func() time.Time
}

// NewCoordinator returns an active coordinator over svc.
func NewCoordinator(svc ViewService, cfg Config, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		svc:            svc,
		cfg:            cfg,
		logger:         logger,
		mode:           modeActive,
		queues:         make(map[string]*queueState),
		editing:        make(map[string]types.ViewConfig),
		pendingPatches: make(map[string][]types.Patch),
		now:            time.Now,
	}
}

// Suspended reports whether the coordinator is in suspended mode.
func (c *Coordinator) Suspended() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode == modeSuspended
}

// CurrentViewID returns the selected view id, empty when none.
func (c *Coordinator) CurrentViewID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentViewID
}

// EditingState returns the live UI state for a view id.
func (c *Coordinator) EditingState(viewID string) (types.ViewConfig, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cfg, ok := c.editing[viewID]
	return cfg, ok
}

// SelectTable switches tables: every queue is dropped (timers stopped) and
// remembered UI state cleared, since queue state is scoped to the table.
func (c *Coordinator) SelectTable(tableID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, q := range c.queues {
		q.stopDebounce()
	}
	c.queues = make(map[string]*queueState)
	c.editing = make(map[string]types.ViewConfig)
	c.pendingPatches = make(map[string][]types.Patch)
	c.currentTableID = tableID
	c.currentViewID = ""
}

// SelectView makes a view current and returns the UI state to render:
// remembered state if the view was edited before, the server config
// otherwise. Selecting the permanent default view always resets to
// all-columns-visible with no filters, sort, or search, discarding any
// remembered state for it.
func (c *Coordinator) SelectView(view *types.View, cols []*types.Column) types.ViewConfig {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.currentTableID = view.TableID
	c.currentViewID = view.ViewID

	q := c.ensureQueueLocked(view.ViewID, view.TableID)
	if !q.processing && len(q.inFlight) == 0 {
		q.currentVersion = view.Version
	}

	if view.IsDefault() {
		cfg := types.DefaultViewConfig(cols)
		delete(c.editing, view.ViewID)
		c.editing[view.ViewID] = cfg
		return cfg
	}
	if cfg, ok := c.editing[view.ViewID]; ok {
		return cfg
	}
	c.editing[view.ViewID] = view.Config
	return view.Config
}

// AddPatch records one UI state change for the current view. When active it
// enters the view's pending list (replacing any pending patch on the same
// path) and restarts the debounce window; when suspended it goes to the
// coordinator buffer with no network activity.
func (c *Coordinator) AddPatch(op, path string, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.currentViewID == "" {
		return errNoViewSelected
	}

	p := types.Patch{Op: op, Path: path, Value: value, Timestamp: c.now()}
	if err := p.Validate(); err != nil {
		return err
	}

	// Local echo keeps the UI state current regardless of delivery timing.
	cfg := c.editing[c.currentViewID]
	if err := cfg.Apply(p); err != nil {
		return err
	}
	c.editing[c.currentViewID] = cfg

	// Optimistic view still pending: hold patches aside, keyed by the
	// temporary id, until the committed id exists.
	if buffered, ok := c.pendingPatches[c.currentViewID]; ok {
		c.pendingPatches[c.currentViewID] = append(removePath(buffered, path), p)
		return nil
	}

	if c.mode == modeSuspended {
		c.buffer = append(removePath(c.buffer, path), p)
		return nil
	}

	q := c.ensureQueueLocked(c.currentViewID, c.currentTableID)
	q.addPending(p)

	viewID := q.viewID
	q.stopDebounce()
	q.debounce = time.AfterFunc(c.cfg.debounce(), func() {
		c.flushView(viewID)
	})
	return nil
}

// flushView runs on debounce expiry: promote pending patches into the queue
// and start a send unless one is already in flight.
func (c *Coordinator) flushView(viewID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	q, ok := c.queues[viewID]
	if !ok {
		return
	}
	q.debounce = nil

	if c.mode == modeSuspended {
		// Late expiry during suspension: patches move to the buffer so
		// resume delivers them.
		for _, p := range q.pending {
			c.buffer = append(removePath(c.buffer, p.Path), p)
		}
		q.pending = nil
		return
	}

	q.promotePending()
	if !q.processing && len(q.queued) > 0 {
		c.startSendLocked(q)
	}
}

// startSendLocked coalesces the queue into one batch, marks it in flight,
// and dispatches it. Caller holds c.mu.
func (c *Coordinator) startSendLocked(q *queueState) {
	batch := Coalesce(q.queued)
	q.queued = nil
	q.inFlight = batch
	q.processing = true

	viewID := q.viewID
	version := q.currentVersion
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.send(viewID, batch, version)
	}()
}

// send delivers one batch and runs the state transition for the outcome:
// success adopts the server version and drains queued work; a version
// conflict schedules a backoff retry of the same in-flight set; any other
// failure reopens the queue so transient errors cannot stall a view.
func (c *Coordinator) send(viewID string, batch []types.Patch, version int64) {
	updated, err := c.svc.ApplyPatches(viewID, version, batch)

	c.mu.Lock()
	q, ok := c.queues[viewID]
	if !ok {
		// View deleted or table switched while in flight; the response is
		// only bookkeeping now.
		c.mu.Unlock()
		return
	}

	switch {
	case err == nil:
		if updated.Version > q.currentVersion {
			q.currentVersion = updated.Version
		}
		q.inFlight = nil
		q.retryCount = 0
		q.processing = false
		c.logger.Debug("view patches applied",
			"view", viewID, "version", q.currentVersion, "patches", len(batch))
		// Never skip queued work: a batch that arrived mid-send goes next.
		c.drainQueuedLocked(q)
		c.mu.Unlock()

	case errors.Is(err, types.ErrVersionConflict):
		q.retryCount++
		if q.retryCount > c.cfg.maxRetries() {
			// Retry ceiling: stop processing this view until a new patch
			// restarts the cycle with fresh state.
			c.logger.Warn("view sync retries exhausted",
				"view", viewID, "attempts", q.retryCount-1)
			q.processing = false
			q.inFlight = nil
			q.retryCount = 0
			c.mu.Unlock()
			return
		}
		delay := backoffDelay(c.cfg.backoffBase(), c.cfg.backoffMax(), q.retryCount)
		q.lastRetry = c.now()
		c.logger.Debug("view version conflict",
			"view", viewID, "attempt", q.retryCount, "delay", delay)
		c.mu.Unlock()

		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			time.Sleep(delay)
			c.retryConflict(viewID)
		}()

	default:
		c.logger.Warn("view patch send failed", "view", viewID, "error", err)
		q.processing = false
		q.inFlight = nil
		q.retryCount = 0
		// Reopen the queue: unsent patches are never silently dropped.
		c.drainQueuedLocked(q)
		c.mu.Unlock()
	}
}

// drainQueuedLocked continues queue processing after a send settles. While
// suspended nothing new starts: queued patches sweep into the coordinator
// buffer and wait for Resume. Caller holds c.mu.
func (c *Coordinator) drainQueuedLocked(q *queueState) {
	if c.mode == modeSuspended {
		for _, p := range q.queued {
			c.buffer = append(removePath(c.buffer, p.Path), p)
		}
		q.queued = nil
		return
	}
	if len(q.queued) > 0 {
		c.startSendLocked(q)
	}
}

// retryConflict refetches the authoritative view list, adopts the server's
// current version, and resends the exact in-flight set against it.
func (c *Coordinator) retryConflict(viewID string) {
	c.mu.Lock()
	q, ok := c.queues[viewID]
	if !ok || len(q.inFlight) == 0 {
		c.mu.Unlock()
		return
	}
	tableID := q.tableID
	c.mu.Unlock()

	views, err := c.svc.ListViews(tableID)

	c.mu.Lock()
	q, ok = c.queues[viewID]
	if !ok {
		c.mu.Unlock()
		return
	}
	if err != nil {
		// Refetch failed: treat as a transient failure and reopen.
		c.logger.Warn("view refetch failed", "view", viewID, "error", err)
		q.processing = false
		q.inFlight = nil
		c.drainQueuedLocked(q)
		c.mu.Unlock()
		return
	}
	for _, v := range views {
		if v.ViewID == viewID && v.Version > q.currentVersion {
			q.currentVersion = v.Version
		}
	}
	batch := q.inFlight
	version := q.currentVersion
	c.mu.Unlock()

	c.send(viewID, batch, version)
}

// Suspend enters suspended mode: pending and queued patches sweep into the
// buffer, debounce timers stop, and new patches buffer instead of queueing.
// A batch already on the wire finishes, but nothing follows it until
// Resume. Used to quiet the sync machinery during bulk ingestion.
func (c *Coordinator) Suspend() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mode == modeSuspended {
		return
	}
	c.mode = modeSuspended
	for _, q := range c.queues {
		q.stopDebounce()
		// Queued before pending: pending patches are newer and win the
		// per-path dedup.
		for _, p := range q.queued {
			c.buffer = append(removePath(c.buffer, p.Path), p)
		}
		q.queued = nil
		for _, p := range q.pending {
			c.buffer = append(removePath(c.buffer, p.Path), p)
		}
		q.pending = nil
	}
	c.logger.Debug("view sync suspended", "buffered", len(c.buffer))
}

// Resume leaves suspended mode. A non-empty buffer is coalesced and sent as
// one batch against a freshly fetched authoritative version for the current
// view. When the refetch fails the coordinator stays suspended and the
// buffer survives, so a later Resume still delivers the patches.
func (c *Coordinator) Resume() error {
	c.mu.Lock()
	if c.mode == modeActive {
		c.mu.Unlock()
		return nil
	}

	if len(c.buffer) == 0 || c.currentViewID == "" {
		// Buffered patches with no current view have lost their target.
		c.mode = modeActive
		c.buffer = nil
		c.mu.Unlock()
		return nil
	}
	viewID := c.currentViewID
	tableID := c.currentTableID
	c.mu.Unlock()

	views, err := c.svc.ListViews(tableID)
	if err != nil {
		return fmt.Errorf("refetching views on resume: %w", err)
	}

	c.mu.Lock()
	if c.mode == modeActive {
		// A concurrent Resume won the race and took the buffer.
		c.mu.Unlock()
		return nil
	}
	c.mode = modeActive
	batch := Coalesce(c.buffer)
	c.buffer = nil
	if len(batch) == 0 {
		c.mu.Unlock()
		return nil
	}
	q := c.ensureQueueLocked(viewID, tableID)
	for _, v := range views {
		if v.ViewID == viewID && v.Version > q.currentVersion {
			q.currentVersion = v.Version
		}
	}
	if q.processing {
		// A pre-suspend send is still on the wire; the batch goes next.
		q.queued = append(q.queued, batch...)
		c.mu.Unlock()
		return nil
	}
	q.inFlight = batch
	q.processing = true
	version := q.currentVersion
	c.mu.Unlock()

	c.logger.Debug("view sync resumed", "view", viewID, "patches", len(batch))
	c.send(viewID, batch, version)
	return nil
}

// CreateView creates a view optimistically: patches addressed to the view
// before the server commit are held against a temporary id and promoted to
// the committed id afterward; the temporary id is never queued.
func (c *Coordinator) CreateView(tableID, name string) (*types.View, error) {
	tempID := "pending-" + uuid.New().String()

	c.mu.Lock()
	prevViewID := c.currentViewID
	c.currentTableID = tableID
	c.currentViewID = tempID
	c.pendingPatches[tempID] = nil
	c.editing[tempID] = types.ViewConfig{}
	c.mu.Unlock()

	view, err := c.svc.CreateView(tableID, name)

	c.mu.Lock()
	defer c.mu.Unlock()

	held := c.pendingPatches[tempID]
	delete(c.pendingPatches, tempID)
	delete(c.editing, tempID)

	if err != nil {
		c.currentViewID = prevViewID
		return nil, err
	}

	c.currentViewID = view.ViewID
	c.editing[view.ViewID] = view.Config
	q := c.ensureQueueLocked(view.ViewID, tableID)
	q.currentVersion = view.Version

	if len(held) > 0 && c.mode == modeActive {
		for _, p := range held {
			q.addPending(p)
		}
		viewID := view.ViewID
		q.stopDebounce()
		q.debounce = time.AfterFunc(c.cfg.debounce(), func() {
			c.flushView(viewID)
		})
	} else if len(held) > 0 {
		for _, p := range held {
			c.buffer = append(removePath(c.buffer, p.Path), p)
		}
	}
	return view, nil
}

// DeleteView deletes a view and clears its client state. The default-view
// guard error is surfaced verbatim: it is a user-facing condition, not a
// conflict to retry.
func (c *Coordinator) DeleteView(viewID string) error {
	if err := c.svc.DeleteView(viewID); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if q, ok := c.queues[viewID]; ok {
		q.stopDebounce()
		delete(c.queues, viewID)
	}
	delete(c.editing, viewID)
	if c.currentViewID == viewID {
		c.currentViewID = ""
	}
	return nil
}

// Wait blocks until all in-flight sends and retries have settled. Intended
// for shutdown and tests.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// ensureQueueLocked creates the lazily-initialized queue state for a view.
// Caller holds c.mu.
func (c *Coordinator) ensureQueueLocked(viewID, tableID string) *queueState {
	q, ok := c.queues[viewID]
	if !ok {
		q = &queueState{viewID: viewID, tableID: tableID, currentVersion: 1}
		c.queues[viewID] = q
	}
	return q
}
