// Registrar - Shareholder Registry Import Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/registrar

package registryimport

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/registrar/internal/decode"
	"github.com/tomtom215/registrar/internal/logging"
	"github.com/tomtom215/registrar/internal/metrics"
	"github.com/tomtom215/registrar/internal/models"
	"github.com/tomtom215/registrar/internal/normalize"
)

var (
	// ErrImportRunning is returned by Start and ResumeSession while the
	// Driver already has a session in flight.
	ErrImportRunning = errors.New("an import is already running")

	// ErrNotRunning is returned by Pause, Resume and Cancel when there is
	// nothing to act on.
	ErrNotRunning = errors.New("no import is running")

	// ErrNotPaused is returned by Resume when the import is not paused.
	ErrNotPaused = errors.New("import is not paused")

	// ErrSessionNotFound is returned by ResumeSession for an unknown id.
	ErrSessionNotFound = errors.New("import session not found")

	// ErrNotResumable is returned by ResumeSession for finished sessions.
	ErrNotResumable = errors.New("import session cannot be resumed")

	// ErrNoFiles is returned when Start is given nothing to import.
	ErrNoFiles = errors.New("no files to import")
)

// Ingester submits one batch to the ingestion endpoint.
type Ingester interface {
	Submit(ctx context.Context, req *models.IngestRequest) (*models.IngestResponse, error)
}

// Options tunes a Driver.
type Options struct {
	BatchSize            int
	RateLimitCooldown    time.Duration
	MaxRateLimitRetries  int
	InterFileDelay       time.Duration
	RequestTimeout       time.Duration
	LargeImportThreshold int64

	Decode    decode.Options
	Normalize normalize.Options
}

// DefaultOptions returns production settings.
func DefaultOptions() Options {
	return Options{
		BatchSize:            1000,
		RateLimitCooldown:    10 * time.Second,
		MaxRateLimitRetries:  3,
		InterFileDelay:       3 * time.Second,
		RequestTimeout:       60 * time.Second,
		LargeImportThreshold: 50 << 20,
		Decode:               decode.Options{Delimiter: ";"},
	}
}

// Driver runs one import session at a time, file by file and batch by
// batch. It is the only writer of its Session; everything else reads
// snapshots or subscribes to events.
type Driver struct {
	ingester   Ingester
	store      SessionStore
	normalizer *normalize.Normalizer
	opts       Options
	now        func() time.Time
	events     emitter

	mu       sync.Mutex
	session  *Session
	state    DriverState
	running  bool
	paused   bool
	resumeCh chan struct{}
	stopping bool // shutdown rather than cancel
	cancel   context.CancelFunc
	done     chan struct{}
	result   *Result
	runErr   error
}

// NewDriver creates an idle Driver.
func NewDriver(ingester Ingester, store SessionStore, opts Options) *Driver {
	def := DefaultOptions()
	if opts.BatchSize <= 0 {
		opts.BatchSize = def.BatchSize
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = def.RequestTimeout
	}
	if opts.MaxRateLimitRetries < 0 {
		opts.MaxRateLimitRetries = 0
	}
	return &Driver{
		ingester:   ingester,
		store:      store,
		normalizer: normalize.New(opts.Normalize),
		opts:       opts,
		now:        time.Now,
		state:      StateIdle,
	}
}

// Subscribe registers an observer for driver events. Observers run on the
// import goroutine and must not block.
func (d *Driver) Subscribe(fn func(Event)) (unsubscribe func()) {
	return d.events.subscribe(fn)
}

// Snapshot returns a copy of the current session (nil before the first
// import) and the driver state.
func (d *Driver) Snapshot() (*Session, DriverState) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.session.Clone(), d.state
}

// Start creates a session for paths and begins importing them in the
// background. Rows are pre-counted so progress has a denominator.
func (d *Driver) Start(ctx context.Context, year int, paths []string) (*Session, error) {
	return d.StartSession(ctx, uuid.NewString(), year, paths)
}

// StartSession is Start with a caller-chosen session id, used when the
// files are stored under that id.
func (d *Driver) StartSession(ctx context.Context, id string, year int, paths []string) (*Session, error) {
	if id == "" {
		return nil, errors.New("empty session id")
	}
	if len(paths) == 0 {
		return nil, ErrNoFiles
	}
	if year <= 0 {
		return nil, fmt.Errorf("invalid import year %d", year)
	}

	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return nil, ErrImportRunning
	}
	d.running = true
	d.mu.Unlock()

	s, err := d.newSession(ctx, id, year, paths)
	if err == nil {
		err = acquireLease(s.ID)
	}
	if err != nil {
		d.mu.Lock()
		d.running = false
		d.mu.Unlock()
		return nil, err
	}

	logging.Ctx(ctx).Info().
		Str("session_id", s.ID).
		Int("year", year).
		Int("files", len(paths)).
		Int("rows", s.TotalFileRows).
		Msg("Starting import session")

	return d.launch(ctx, s, paths, EventSessionStarted), nil
}

// ResumeSession continues a persisted session from its last acknowledged
// batch. paths must list the same files, in the same order, as the
// session's FileNames. A stale session yields ErrSessionStale.
func (d *Driver) ResumeSession(ctx context.Context, id string, paths []string) (*Session, error) {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return nil, ErrImportRunning
	}
	d.running = true
	d.mu.Unlock()

	s, err := d.loadResumable(ctx, id, paths)
	if err == nil {
		err = acquireLease(id)
	}
	if err != nil {
		d.mu.Lock()
		d.running = false
		d.mu.Unlock()
		return nil, err
	}

	logging.Ctx(ctx).Info().
		Str("session_id", s.ID).
		Int("file", s.CurrentFile).
		Int("next_batch", s.CurrentBatch+1).
		Msg("Resuming import session")

	return d.launch(ctx, s, paths, EventResumed), nil
}

// Pause asks the import to stop before its next submission. A batch
// already in flight completes first.
func (d *Driver) Pause() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running || d.state != StateProcessing {
		return ErrNotRunning
	}
	d.paused = true
	d.resumeCh = make(chan struct{})
	d.state = StatePaused
	return nil
}

// Resume continues a paused import at the next unacknowledged batch.
func (d *Driver) Resume() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		return ErrNotRunning
	}
	if !d.paused {
		return ErrNotPaused
	}
	d.paused = false
	close(d.resumeCh)
	d.state = StateProcessing
	return nil
}

// Cancel aborts the import. The in-flight submission, if any, is allowed
// to finish; cooldowns and delays are interrupted. The session ends
// cancelled and its local copy is cleared.
func (d *Driver) Cancel() error {
	return d.abort(false)
}

// Stop aborts the import for shutdown. The session is persisted as
// paused so it can be resumed by the next process.
func (d *Driver) Stop() error {
	return d.abort(true)
}

func (d *Driver) abort(stopping bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running || d.cancel == nil {
		return ErrNotRunning
	}
	d.stopping = stopping
	d.cancel()
	return nil
}

// Wait blocks until the running import finishes or ctx is done.
func (d *Driver) Wait(ctx context.Context) (*Result, error) {
	d.mu.Lock()
	done := d.done
	d.mu.Unlock()
	if done == nil {
		return nil, ErrNotRunning
	}
	select {
	case <-done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.result, d.runErr
}

// Run starts an import and waits for it.
func (d *Driver) Run(ctx context.Context, year int, paths []string) (*Result, error) {
	if _, err := d.Start(ctx, year, paths); err != nil {
		return nil, err
	}
	return d.Wait(ctx)
}

func (d *Driver) newSession(ctx context.Context, id string, year int, paths []string) (*Session, error) {
	counts := make([]int, len(paths))
	var g errgroup.Group
	g.SetLimit(4)
	for i, p := range paths {
		g.Go(func() error {
			n, err := decode.CountRows(p, d.opts.Decode)
			if err != nil {
				// Reported per file when the file is processed.
				logging.Ctx(ctx).Debug().Err(err).Str("file", filepath.Base(p)).Msg("Pre-count failed")
				return nil
			}
			counts[i] = n
			return nil
		})
	}
	_ = g.Wait()

	d.warnIfLarge(ctx, paths)

	now := d.now()
	s := &Session{
		ID:             id,
		Year:           year,
		FileNames:      make([]string, len(paths)),
		Files:          make([]FileStatus, len(paths)),
		Status:         StatusActive,
		StartTime:      now,
		LastUpdateTime: now,
	}
	for i, p := range paths {
		name := filepath.Base(p)
		s.FileNames[i] = name
		s.Files[i] = FileStatus{Name: name, Status: FilePending, Rows: counts[i]}
		s.TotalFileRows += counts[i]
	}
	return s, nil
}

func (d *Driver) warnIfLarge(ctx context.Context, paths []string) {
	if d.opts.LargeImportThreshold <= 0 {
		return
	}
	var total int64
	for _, p := range paths {
		if fi, err := os.Stat(p); err == nil {
			total += fi.Size()
		}
	}
	if total > d.opts.LargeImportThreshold {
		logging.Ctx(ctx).Warn().
			Int64("bytes", total).
			Int64("threshold", d.opts.LargeImportThreshold).
			Msg("Large import; this will take a while")
	}
}

func (d *Driver) loadResumable(ctx context.Context, id string, paths []string) (*Session, error) {
	s, err := d.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, ErrSessionNotFound
	}
	if !s.Status.Resumable() {
		return nil, fmt.Errorf("%w: status %s", ErrNotResumable, s.Status)
	}
	if len(paths) != len(s.FileNames) {
		return nil, fmt.Errorf("%w: session has %d files, got %d", ErrNotResumable, len(s.FileNames), len(paths))
	}
	if len(s.Files) != len(s.FileNames) {
		s.Files = make([]FileStatus, len(s.FileNames))
		for i, n := range s.FileNames {
			s.Files[i] = FileStatus{Name: n, Status: FilePending}
		}
	}
	s.Status = StatusActive
	return s, nil
}

// launch installs s as the driver's session and starts the worker. The
// worker context keeps ctx's values but not its cancellation. The returned
// copy is taken before the worker can touch s.
func (d *Driver) launch(ctx context.Context, s *Session, paths []string, first EventType) *Session {
	runCtx, cancel := context.WithCancel(logging.ContextWithSessionID(context.WithoutCancel(ctx), s.ID))
	if logging.CorrelationIDFromContext(runCtx) == "" {
		runCtx = logging.ContextWithNewCorrelationID(runCtx)
	}

	d.mu.Lock()
	d.session = s
	d.state = StateProcessing
	d.paused = false
	d.stopping = false
	d.cancel = cancel
	d.done = make(chan struct{})
	d.result = nil
	d.runErr = nil
	d.mu.Unlock()

	metrics.ImportSessionsActive.Inc()
	d.persist(runCtx)
	d.emit(first, "", 0, nil)

	d.mu.Lock()
	snap := d.session.Clone()
	d.mu.Unlock()

	go d.run(runCtx, cancel, paths)
	return snap
}

func (d *Driver) run(ctx context.Context, cancel context.CancelFunc, paths []string) {
	var (
		result *Result
		err    error
	)
	defer func() {
		cancel()
		metrics.ImportSessionsActive.Dec()
		d.mu.Lock()
		releaseLease(d.session.ID)
		d.result = result
		d.runErr = err
		d.running = false
		d.cancel = nil
		close(d.done)
		d.mu.Unlock()
	}()

	d.mu.Lock()
	first := d.session.CurrentFile
	d.mu.Unlock()

	for i := first; i < len(paths); i++ {
		if i > first {
			if ctx.Err() != nil || sleep(ctx, d.opts.InterFileDelay) != nil {
				break
			}
		}
		if !d.fileNeedsWork(i) {
			continue
		}
		if ferr := d.processFile(ctx, i, paths[i]); ferr != nil {
			if ctx.Err() != nil {
				break
			}
			d.failFile(ctx, i, ferr)
		}
	}

	result, err = d.finish(ctx)
}

func (d *Driver) fileNeedsWork(i int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	st := d.session.Files[i].Status
	return st != FileCompleted && st != FileError
}

// processFile imports one file. A nil return means the file completed;
// an error means the file failed, unless ctx was cancelled.
func (d *Driver) processFile(ctx context.Context, i int, path string) error {
	log := logging.Ctx(ctx).With().Str("file", filepath.Base(path)).Logger()

	d.mu.Lock()
	s := d.session
	fresh := s.Files[i].Status == FilePending || s.CurrentFile != i
	if fresh {
		s.CurrentBatch = 0
		s.Files[i].RowsProcessed = 0
		s.Files[i].RejectedRows = 0
	}
	s.CurrentFile = i
	s.Files[i].Status = FileProcessing
	s.Files[i].Error = ""
	startBatch := s.CurrentBatch
	s.Message = fmt.Sprintf("Importing %s (%d of %d)", s.Files[i].Name, i+1, len(s.Files))
	d.touch()
	d.mu.Unlock()

	d.persist(ctx)
	d.emit(EventFileStarted, filepath.Base(path), 0, nil)

	headers, records, err := decode.ReadAll(path, d.opts.Decode)
	if err != nil {
		return err
	}
	log.Debug().Interface("columns", d.normalizer.Columns(headers)).Msg("Resolved registry columns")
	for _, c := range d.normalizer.Inspect(headers) {
		log.Warn().Str("column", c.Column).Interface("fields", c.Fields).Msg("Column matches more than one field")
	}

	holdings := make([]models.Holding, 0, len(records))
	holderKinds := make(map[string]int, 3)
	rejected := 0
	for _, rec := range records {
		h, err := d.normalizer.Normalize(rec)
		if err != nil {
			var rej *normalize.Rejection
			if errors.As(err, &rej) && fresh {
				metrics.RecordRejection(rej.Reason)
			}
			rejected++
			continue
		}
		holderKinds[h.HolderKind()]++
		holdings = append(holdings, *h)
	}
	if len(holdings) == 0 {
		d.mu.Lock()
		s.Files[i].Rows = len(records)
		s.Files[i].RejectedRows = rejected
		if fresh {
			s.RejectedRows += rejected
		}
		d.mu.Unlock()
		return fmt.Errorf("no valid records in %d rows", len(records))
	}

	batches, err := MakeBatches(holdings, d.opts.BatchSize)
	if err != nil {
		return err
	}

	d.mu.Lock()
	if s.Files[i].Rows != len(records) {
		s.TotalFileRows += len(records) - s.Files[i].Rows
		s.Files[i].Rows = len(records)
	}
	s.Files[i].RejectedRows = rejected
	if fresh {
		s.RejectedRows += rejected
	}
	s.TotalBatches = len(batches)
	d.mu.Unlock()

	if rejected > 0 {
		log.Info().Int("rejected", rejected).Int("rows", len(records)).Msg("Rows dropped during normalization")
	}
	log.Debug().
		Int("organizations", holderKinds["organization"]).
		Int("persons", holderKinds["person"]).
		Int("unknown", holderKinds["unknown"]).
		Msg("Holders by kind")

	for _, b := range batches[min(startBatch, len(batches)):] {
		if err := d.waitIfPaused(ctx); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		resp, err := d.submit(ctx, i, b)
		if err != nil {
			return err
		}

		d.mu.Lock()
		s.ProcessedRows += resp.ProcessedRows
		s.DuplicatesCount += resp.Duplicates
		s.ErrorsCount += resp.Errors
		s.CurrentBatch = b.Index
		s.Files[i].RowsProcessed += resp.ProcessedRows
		s.Files[i].ProgressPercent = float64(b.Index) / float64(b.Total) * 100
		d.touch()
		d.mu.Unlock()

		metrics.RecordRowsProcessed(resp.ProcessedRows)
		d.persist(ctx)
		d.emit(EventBatchAcknowledged, s.Files[i].Name, b.Index, nil)

		log.Debug().
			Int("batch", b.Index).
			Int("batches", b.Total).
			Int("processed", resp.ProcessedRows).
			Int("duplicates", resp.Duplicates).
			Msg("Batch acknowledged")
	}

	d.mu.Lock()
	s.Files[i].Status = FileCompleted
	s.Files[i].ProgressPercent = 100
	d.touch()
	d.mu.Unlock()

	metrics.RecordFile(string(FileCompleted))
	d.persist(ctx)
	d.emit(EventFileCompleted, s.Files[i].Name, 0, nil)
	log.Info().Int("rows", s.Files[i].RowsProcessed).Msg("File imported")
	return nil
}

// submit sends one batch, retrying throttled or timed-out attempts after
// the cooldown. The call itself is never cancelled by ctx; only waits are.
func (d *Driver) submit(ctx context.Context, file int, b Batch) (*models.IngestResponse, error) {
	d.mu.Lock()
	req := &models.IngestRequest{
		Records:   b.Records,
		Dimension: d.session.Year,
		BatchInfo: models.BatchInfo{Current: b.Index, Total: b.Total},
		SessionID: d.session.ID,
	}
	name := d.session.Files[file].Name
	d.mu.Unlock()

	for attempt := 0; ; attempt++ {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.opts.RequestTimeout)
		start := time.Now()
		resp, err := d.ingester.Submit(callCtx, req)
		cancel()

		if err == nil {
			metrics.RecordBatch("acknowledged", time.Since(start))
			if resp == nil {
				resp = &models.IngestResponse{}
			}
			return resp, nil
		}

		if !retryable(err) {
			metrics.RecordBatch("failed", time.Since(start))
			return nil, &RemoteIngestionError{Batch: b.Index, Err: err}
		}
		metrics.RecordRateLimit()
		if attempt >= d.opts.MaxRateLimitRetries {
			return nil, &RateLimitError{Attempts: attempt + 1, Err: err}
		}

		wait := cooldownFor(err, d.opts.RateLimitCooldown)
		logging.Ctx(ctx).Warn().
			Err(err).
			Str("file", name).
			Int("batch", b.Index).
			Int("attempt", attempt+1).
			Dur("cooldown", wait).
			Msg("Ingestion throttled; cooling down")
		d.emit(EventRateLimited, name, b.Index, err)

		if err := sleep(ctx, wait); err != nil {
			return nil, err
		}
		// A pause requested during the cooldown holds the retry.
		if err := d.waitIfPaused(ctx); err != nil {
			return nil, err
		}
	}
}

// waitIfPaused blocks while a pause is requested.
func (d *Driver) waitIfPaused(ctx context.Context) error {
	d.mu.Lock()
	if !d.paused {
		d.mu.Unlock()
		return nil
	}
	ch := d.resumeCh
	d.session.Status = StatusPaused
	d.touch()
	d.mu.Unlock()

	d.persist(ctx)
	d.emit(EventPaused, "", 0, nil)
	logging.Ctx(ctx).Info().Msg("Import paused")

	select {
	case <-ch:
	case <-ctx.Done():
		return ctx.Err()
	}

	d.mu.Lock()
	d.session.Status = StatusActive
	d.touch()
	d.mu.Unlock()

	d.persist(ctx)
	d.emit(EventResumed, "", 0, nil)
	logging.Ctx(ctx).Info().Msg("Import resumed")
	return nil
}

func (d *Driver) failFile(ctx context.Context, i int, err error) {
	d.mu.Lock()
	f := &d.session.Files[i]
	f.Status = FileError
	f.Error = err.Error()
	name := f.Name
	d.touch()
	d.mu.Unlock()

	metrics.RecordFile(string(FileError))
	d.persist(ctx)
	d.emit(EventFileFailed, name, 0, err)
	logging.Ctx(ctx).Error().Err(err).Str("file", name).Msg("File import failed")
}

func (d *Driver) finish(ctx context.Context) (*Result, error) {
	d.mu.Lock()
	s := d.session
	aborted := ctx.Err() != nil
	stopping := d.stopping
	d.paused = false

	var (
		ev         EventType
		err        error
		clearLocal bool
	)
	switch {
	case aborted && stopping:
		s.Status = StatusPaused
		s.Message = "Interrupted by shutdown"
		d.state = StatePaused
		ev = EventStopped
	case aborted:
		s.Status = StatusCancelled
		s.Message = "Cancelled"
		d.state = StateCancelled
		ev, clearLocal = EventCancelled, true
	default:
		r := newResult(s)
		s.Message = r.Message
		if r.FilesSucceeded > 0 {
			s.Status = StatusCompleted
			d.state = StateCompleted
			ev, clearLocal = EventCompleted, true
		} else {
			s.Status = StatusFailed
			d.state = StateError
			ev = EventFailed
			err = fmt.Errorf("all %d files failed", r.FilesTotal)
		}
	}
	d.touch()
	result := newResult(s)
	d.mu.Unlock()

	// The worker context is cancelled at this point; finalization must not be.
	persistCtx := context.WithoutCancel(ctx)
	d.persist(persistCtx)
	if clearLocal {
		if cerr := d.store.Clear(persistCtx, s.ID); cerr != nil {
			logging.Ctx(ctx).Warn().Err(cerr).Msg("Failed to clear import session")
		}
	}
	d.emit(ev, "", 0, err)

	logging.Ctx(ctx).Info().
		Str("status", string(result.Status)).
		Int("files_succeeded", result.FilesSucceeded).
		Int("files_total", result.FilesTotal).
		Int("rows", result.ProcessedRows).
		Msg("Import session finished")
	return result, err
}

// touch stamps LastUpdateTime. Callers hold d.mu.
func (d *Driver) touch() {
	d.session.LastUpdateTime = d.now()
}

// persist saves a snapshot. Failures are logged; the import goes on.
func (d *Driver) persist(ctx context.Context) {
	d.mu.Lock()
	snap := d.session.Clone()
	d.mu.Unlock()
	if err := d.store.Save(ctx, snap); err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("Failed to persist import session")
	}
}

func (d *Driver) emit(t EventType, file string, batch int, err error) {
	d.mu.Lock()
	snap := d.session.Clone()
	d.mu.Unlock()
	d.events.emit(Event{Type: t, Session: snap, File: file, Batch: batch, Err: err, At: d.now()})
}
