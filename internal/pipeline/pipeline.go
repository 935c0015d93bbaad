// Package pipeline orchestrates the capture-to-sync flow: normalize
// metadata, consult the result cache, budget the upload, call the remote
// recognizer, and queue submissions that cannot complete so they can be
// reconciled once connectivity returns.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pic2nav/snapsync/internal/cache"
	"github.com/pic2nav/snapsync/internal/config"
	"github.com/pic2nav/snapsync/internal/connectivity"
	"github.com/pic2nav/snapsync/internal/exif"
	"github.com/pic2nav/snapsync/internal/model"
	"github.com/pic2nav/snapsync/internal/recog"
	"github.com/pic2nav/snapsync/internal/store"
	"github.com/pic2nav/snapsync/internal/upload"
)

// Options wires a Pipeline together. Store, Client, and Connectivity are
// required.
type Options struct {
	Config       config.Config
	Store        store.Store
	Client       recog.Client
	Connectivity connectivity.Signal
	Logger       *slog.Logger
	// Metrics is optional; when nil a collector on a private registry is
	// used so tests never collide on the global one.
	Metrics *Metrics
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Pipeline owns the result cache, the scan history, and the pending queue.
// Every mutating sequence over that shared state is serialized behind one
// mutex: a submit and a concurrent drain reconciliation would otherwise
// race and lose a history update or duplicate a queue entry.
type Pipeline struct {
	cfg    config.Config
	logger *slog.Logger

	mu      sync.Mutex
	cache   *cache.Cache
	history *historyLog
	queue   *pendingQueue

	client recog.Client
	conn   connectivity.Signal

	metrics  *Metrics
	draining atomic.Bool
	now      func() time.Time
}

// Submission is one image handed to the pipeline.
type Submission struct {
	// ImagePath references the image on disk.
	ImagePath string
	// Metadata is the raw capture metadata bag. May be nil; the pipeline
	// never reads EXIF from the file itself.
	Metadata model.RawMetadata
}

// New builds a pipeline over db and registers the drain trigger on the
// connectivity signal.
func New(ctx context.Context, opts Options) (*Pipeline, error) {
	if opts.Store == nil || opts.Client == nil || opts.Connectivity == nil {
		return nil, errors.New("pipeline: store, client, and connectivity are required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics(prometheus.NewRegistry())
	}

	c, err := cache.New(ctx, opts.Store, cache.Options{
		TTL:        opts.Config.CacheTTL,
		MaxEntries: opts.Config.CacheMaxEntries,
		Now:        opts.Now,
	})
	if err != nil {
		return nil, err
	}
	h, err := loadHistory(ctx, opts.Store, opts.Config.HistoryLimit)
	if err != nil {
		return nil, err
	}
	q, err := loadQueue(ctx, opts.Store)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		cfg:     opts.Config,
		logger:  opts.Logger,
		cache:   c,
		history: h,
		queue:   q,
		client:  opts.Client,
		conn:    opts.Connectivity,
		metrics: opts.Metrics,
		now:     opts.Now,
	}
	p.metrics.QueueDepth.Set(float64(q.pendingCount()))

	p.conn.OnRestored(func() {
		go p.Drain(context.Background())
	})

	return p, nil
}

// Submit runs the synchronous attempt for one image and returns either an
// authoritative, cached, or provisional result. Service rejections are
// reported inside the result (Success=false); the error return is reserved
// for local failures and cancellation.
func (p *Pipeline) Submit(ctx context.Context, sub Submission) (model.RecognitionResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fp := Fingerprint(sub.ImagePath, captureTime(sub.ImagePath, sub.Metadata))
	if hit := p.cache.Get(ctx, fp); hit != nil {
		p.metrics.CacheHits.Inc()
		replay := *hit
		replay.Origin = model.OriginCache
		p.metrics.Submissions.WithLabelValues(model.OriginCache).Inc()
		return replay, nil
	}
	p.metrics.CacheMisses.Inc()

	coord := exif.ExtractCoordinate(sub.Metadata)
	var est *exif.Estimate
	if coord == nil {
		est = exif.EstimateCoordinate(sub.Metadata)
	}

	if p.conn.IsOnline() {
		res, err := p.attemptRemote(ctx, sub.ImagePath, coord)
		switch {
		case err == nil:
			if ctx.Err() != nil {
				// The submission was abandoned while the call was in
				// flight: the result is discarded, never cached or
				// appended, so stale UI state cannot resurface.
				return model.RecognitionResult{}, ctx.Err()
			}
			if err := p.cache.Put(ctx, fp, *res); err != nil {
				p.logger.Warn("cache write failed", "err", err)
			}
			if err := p.history.append(ctx, *res); err != nil {
				p.logger.Warn("history write failed", "err", err)
			}
			p.metrics.Submissions.WithLabelValues(model.OriginRemote).Inc()
			return *res, nil

		case recog.IsPermanent(err):
			// A well-formed rejection: retrying cannot help, so it is
			// surfaced immediately and never queued.
			p.logger.Info("recognition rejected", "image", sub.ImagePath, "err", err)
			return p.failureResult(err.Error()), nil

		case isLocal(err):
			// Reading or compressing the image failed; a retry with the
			// same file cannot improve on that.
			return model.RecognitionResult{}, err
		}
		// Transient failure: fall through to the provisional path.
		p.logger.Warn("recognition attempt failed", "image", sub.ImagePath, "err", err)
	}

	if err := ctx.Err(); err != nil {
		// Abandoned mid-flight: an abandoned submission must leave no
		// provisional history entry and no queue item behind.
		return model.RecognitionResult{}, err
	}
	return p.submitProvisional(ctx, sub, coord, est)
}

// submitProvisional handles the offline/transient-failure branch: append a
// clearly tagged provisional result and queue the submission for later
// reconciliation. Without any coordinate there is nothing a retry could
// improve, so nothing is enqueued.
func (p *Pipeline) submitProvisional(ctx context.Context, sub Submission, coord *model.GeoCoordinate, est *exif.Estimate) (model.RecognitionResult, error) {
	now := p.now().UTC()

	var provisional model.RecognitionResult
	switch {
	case coord != nil:
		provisional = model.RecognitionResult{
			ID:         ulid.Make().String(),
			Success:    true,
			Name:       "GPS location",
			Address:    fmt.Sprintf("%.6f, %.6f", coord.Latitude, coord.Longitude),
			Location:   coord,
			Confidence: 0.9,
			Category:   "gps",
			Origin:     model.OriginGPSOnly,
			CreatedAt:  now,
		}
	case est != nil:
		loc := est.Location
		provisional = model.RecognitionResult{
			ID:         ulid.Make().String(),
			Success:    true,
			Name:       "Approximate location",
			Location:   &loc,
			Confidence: est.Confidence,
			Category:   est.Method,
			Origin:     model.OriginOfflineEstimate,
			CreatedAt:  now,
		}
	default:
		return p.failureResult("no connectivity and no usable GPS data in image"), nil
	}

	if err := p.history.append(ctx, provisional); err != nil {
		p.logger.Warn("history write failed", "err", err)
	}

	item := model.QueueItem{
		ID:               ulid.Make().String(),
		ImageRef:         sub.ImagePath,
		MetadataSnapshot: sub.Metadata,
		CreatedAt:        now,
		Status:           model.StatusPending,
	}
	if err := p.queue.add(ctx, item); err != nil {
		p.logger.Warn("queue write failed", "err", err)
	}
	p.metrics.QueueDepth.Set(float64(p.queue.pendingCount()))
	p.metrics.Submissions.WithLabelValues(provisional.Origin).Inc()

	p.logger.Info("submission queued for reconciliation",
		"image", sub.ImagePath, "origin", provisional.Origin, "item", item.ID)
	return provisional, nil
}

// Drain re-attempts every queued submission in creation order. It runs at
// most once concurrently; a pass already in flight makes later triggers
// no-ops. A pass while offline is also a no-op, so connectivity failures
// never consume retry attempts. Fired by the connectivity-restored signal,
// the CLI, and the HTTP surface.
func (p *Pipeline) Drain(ctx context.Context) {
	if !p.conn.IsOnline() {
		return
	}
	if !p.draining.CompareAndSwap(false, true) {
		return
	}
	defer p.draining.Store(false)

	p.metrics.DrainPasses.Inc()

	p.mu.Lock()
	items := p.queue.retryable()
	p.mu.Unlock()

	if len(items) == 0 {
		return
	}
	p.logger.Info("draining pending queue", "items", len(items))

	for i, item := range items {
		if i > 0 && p.cfg.DrainDelay > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.cfg.DrainDelay):
			}
		}
		if ctx.Err() != nil {
			return
		}
		p.drainOne(ctx, item)
	}
}

func (p *Pipeline) drainOne(ctx context.Context, item model.QueueItem) {
	p.mu.Lock()
	defer p.mu.Unlock()

	coord := exif.ExtractCoordinate(item.MetadataSnapshot)
	res, err := p.attemptRemote(ctx, item.ImageRef, coord)
	if err == nil {
		fp := Fingerprint(item.ImageRef, captureTime(item.ImageRef, item.MetadataSnapshot))
		if err := p.cache.Put(ctx, fp, *res); err != nil {
			p.logger.Warn("cache write failed", "err", err)
		}
		replaced, err := p.history.reconcile(ctx, item.CreatedAt, p.cfg.ReconcileWindow, *res)
		if err != nil {
			p.logger.Warn("history reconcile failed", "err", err)
		}
		if !replaced {
			// The provisional record is gone (cleared or evicted); the
			// authoritative result still belongs in history.
			if err := p.history.append(ctx, *res); err != nil {
				p.logger.Warn("history write failed", "err", err)
			}
		}
		if err := p.queue.remove(ctx, item.ID); err != nil {
			p.logger.Warn("queue write failed", "err", err)
		}
		p.metrics.QueueDepth.Set(float64(p.queue.pendingCount()))
		p.metrics.DrainSuccess.Inc()
		p.logger.Info("queue item reconciled", "item", item.ID, "reconciled", replaced)
		return
	}

	p.metrics.DrainFailures.Inc()
	item.Attempts++
	item.Status = model.StatusRetrying
	// A permanent rejection cannot be improved by another pass; it fails
	// out immediately instead of burning the remaining attempts.
	if item.Attempts >= p.cfg.MaxRetries || recog.IsPermanent(err) {
		item.Status = model.StatusFailedPermanent
		p.logger.Warn("queue item failed permanently", "item", item.ID, "attempts", item.Attempts, "err", err)
	} else {
		p.logger.Info("queue item retry failed", "item", item.ID, "attempts", item.Attempts, "err", err)
	}
	if err := p.queue.update(ctx, item); err != nil {
		p.logger.Warn("queue write failed", "err", err)
	}
	p.metrics.QueueDepth.Set(float64(p.queue.pendingCount()))
}

// attemptRemote budgets the upload and calls the recognition client. The
// prepared payload lives for exactly one attempt.
func (p *Pipeline) attemptRemote(ctx context.Context, imagePath string, hint *model.GeoCoordinate) (*model.RecognitionResult, error) {
	prepared, err := upload.Prepare(imagePath, upload.Options{
		TargetBytes:      p.cfg.TargetUploadBytes,
		PreserveMetadata: true,
		MaxWidth:         p.cfg.MaxWidth,
		MaxHeight:        p.cfg.MaxHeight,
		QualityStart:     p.cfg.QualityStart,
		QualityStep:      p.cfg.QualityStep,
		QualityFloor:     p.cfg.QualityFloor,
	})
	if err != nil {
		return nil, &localError{err}
	}
	defer func() {
		if err := prepared.Release(); err != nil {
			p.logger.Warn("release upload payload", "err", err)
		}
	}()

	callCtx := ctx
	if p.cfg.RemoteTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, p.cfg.RemoteTimeout)
		defer cancel()
	}
	return p.client.Recognize(callCtx, recog.Request{ImagePath: prepared.Path, Hint: hint})
}

func (p *Pipeline) failureResult(msg string) model.RecognitionResult {
	return model.RecognitionResult{
		ID:        ulid.Make().String(),
		Success:   false,
		Error:     msg,
		CreatedAt: p.now().UTC(),
	}
}

// History returns the scan history, newest first.
func (p *Pipeline) History() []model.RecognitionResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.history.list()
}

// PendingCount returns the number of queue items still awaiting retry.
func (p *Pipeline) PendingCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queue.pendingCount()
}

// PendingItems returns every queue item, including failed-permanent ones.
func (p *Pipeline) PendingItems() []model.QueueItem {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queue.list()
}

// CacheLen returns the current result cache entry count.
func (p *Pipeline) CacheLen() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cache.Len()
}

// ClearHistory drops the scan history.
func (p *Pipeline) ClearHistory(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.history.clear(ctx)
}

// ClearCache drops every cached result.
func (p *Pipeline) ClearCache(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cache.Clear(ctx)
}

// ClearPending drops the pending queue, including failed-permanent items.
func (p *Pipeline) ClearPending(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.queue.clear(ctx); err != nil {
		return err
	}
	p.metrics.QueueDepth.Set(0)
	return nil
}

// localError marks a local-resource failure (read/compress), which is
// surfaced immediately and never queued.
type localError struct{ err error }

func (e *localError) Error() string { return "prepare upload: " + e.err.Error() }
func (e *localError) Unwrap() error { return e.err }

func isLocal(err error) bool {
	var le *localError
	return errors.As(err, &le)
}
