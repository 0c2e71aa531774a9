// Package fanout drives the monitoring cycle: searching each tracked
// keyword, classifying posts as backfill or delta per destination, and
// delivering alerts through the notification channel.
package fanout

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/Rierra/fblstner/internal/extractor"
	"github.com/Rierra/fblstner/internal/logger"
	"github.com/Rierra/fblstner/internal/notify"
	"github.com/Rierra/fblstner/internal/registry"
	"github.com/Rierra/fblstner/internal/seen"
	"github.com/Rierra/fblstner/internal/store"
)

// Params holds the timing and sizing knobs for the engine.
type Params struct {
	CheckInterval        time.Duration
	InitialBackfillCount int
	DeliveryDelay        time.Duration
	KeywordDelay         time.Duration
}

// SnapshotSaver persists the registry and initialization state at the end of
// a cycle.
type SnapshotSaver interface {
	Save(snap *store.Snapshot) error
}

// Options bundles the engine's collaborators.
type Options struct {
	Params    Params
	Searcher  Searcher
	Seen      seen.Store
	Registry  *registry.Registry
	Deliverer notify.Deliverer
	Snapshots SnapshotSaver
	Init      *InitState
	Logger    logger.Interface
}

// Engine runs monitoring cycles.
type Engine struct {
	params    Params
	searcher  Searcher
	seen      seen.Store
	registry  *registry.Registry
	deliverer notify.Deliverer
	snapshots SnapshotSaver
	init      *InitState
	log       logger.Interface

	format func(extractor.Post) string
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewEngine builds an engine from its collaborators.
func NewEngine(opts Options) *Engine {
	log := opts.Logger
	if log == nil {
		log = logger.NewNoOp()
	}
	return &Engine{
		params:    opts.Params,
		searcher:  opts.Searcher,
		seen:      opts.Seen,
		registry:  opts.Registry,
		deliverer: opts.Deliverer,
		snapshots: opts.Snapshots,
		init:      opts.Init,
		log:       log.WithComponent("fanout"),
		format:    notify.FormatAlert,
		sleep:     sleepContext,
	}
}

// CycleStats summarizes one monitoring cycle.
type CycleStats struct {
	CycleID   string
	Keywords  int
	Extracted int
	Delivered int
	Skipped   int
	Errors    int
}

// Cycle runs one full pass over the active keyword map. A failing keyword or
// delivery never aborts the pass; only context cancellation stops it early.
func (e *Engine) Cycle(ctx context.Context) CycleStats {
	stats := CycleStats{CycleID: uuid.NewString()[:8]}
	log := e.log.With("cycle_id", stats.CycleID)

	keywordMap := e.registry.ActiveKeywordMap()
	keywords := make([]string, 0, len(keywordMap))
	for keyword := range keywordMap {
		keywords = append(keywords, keyword)
	}
	sort.Strings(keywords)
	stats.Keywords = len(keywords)

	log.Info("cycle started", "keywords", len(keywords))

	for i, keyword := range keywords {
		if ctx.Err() != nil {
			break
		}

		posts, err := e.searcher.Search(ctx, keyword)
		if err != nil {
			// The pairs for this keyword stay uninitialized: a failed
			// fetch is not an observation of "no posts".
			log.WithError(err).Error("keyword search failed", "keyword", keyword)
			stats.Errors++
		} else {
			stats.Extracted += len(posts)
			for _, destinationID := range keywordMap[keyword] {
				e.processPair(ctx, log, destinationID, keyword, posts, &stats)
			}
		}

		if i < len(keywords)-1 {
			if err := e.sleep(ctx, e.params.KeywordDelay); err != nil {
				break
			}
		}
	}

	e.persist(log)

	log.Info("cycle finished",
		"extracted", stats.Extracted,
		"delivered", stats.Delivered,
		"skipped", stats.Skipped,
		"errors", stats.Errors)
	return stats
}

// processPair handles one destination/keyword pair: a bounded backfill batch
// on first encounter, unseen-only deltas afterwards.
func (e *Engine) processPair(ctx context.Context, log logger.Interface, destinationID, keyword string, posts []extractor.Post, stats *CycleStats) {
	pairLog := log.With("destination", destinationID, "keyword", keyword)

	if e.init.IsInitialized(destinationID, keyword) {
		for _, post := range posts {
			if ctx.Err() != nil {
				return
			}
			e.attemptDelivery(ctx, pairLog, destinationID, post, stats)
		}
		return
	}

	// First encounter: deliver up to the backfill budget. Already-seen posts
	// are skipped without consuming a slot.
	delivered := 0
	for _, post := range posts {
		if ctx.Err() != nil {
			return
		}
		if delivered >= e.params.InitialBackfillCount {
			break
		}
		if e.attemptDelivery(ctx, pairLog, destinationID, post, stats) {
			delivered++
		}
	}

	// Initialization completes even on an empty extraction: observing no
	// posts is still an observation. A cancelled pass does not reach here.
	if ctx.Err() == nil {
		e.init.MarkInitialized(destinationID, keyword)
		pairLog.Info("pair initialized", "backfill_delivered", delivered)
	}
}

// attemptDelivery marks the post seen and delivers it. Returns true when the
// post passed the seen gate, whether or not delivery succeeded: the id is
// marked before sending so a delivery failure cannot cause a duplicate later.
func (e *Engine) attemptDelivery(ctx context.Context, log logger.Interface, destinationID string, post extractor.Post, stats *CycleStats) bool {
	alreadySeen, err := e.seen.IsSeen(ctx, post.ID)
	if err != nil {
		log.WithError(err).Error("seen lookup failed", "post_id", post.ID)
		stats.Errors++
		return false
	}
	if alreadySeen {
		stats.Skipped++
		return false
	}

	if err := e.seen.MarkSeen(ctx, post.ID); err != nil {
		log.WithError(err).Error("failed to mark post seen", "post_id", post.ID)
		stats.Errors++
		return false
	}

	if err := e.deliverer.Deliver(ctx, destinationID, e.format(post)); err != nil {
		log.WithError(err).Error("delivery failed", "post_id", post.ID)
		stats.Errors++
	} else {
		stats.Delivered++
		log.Debug("alert delivered", "post_id", post.ID, "author", post.Author)
	}

	if err := e.sleep(ctx, e.params.DeliveryDelay); err != nil {
		return true
	}
	return true
}

// persist writes the registry and initialization state snapshot once per
// cycle. Seen-set marks are already durable at mark time.
func (e *Engine) persist(log logger.Interface) {
	snap := store.FromRegistry(e.registry, e.init.Export())
	if err := e.snapshots.Save(snap); err != nil {
		log.WithError(err).Error("failed to save snapshot")
	}
}

// Run executes cycles until ctx is cancelled, sleeping CheckInterval between
// passes.
func (e *Engine) Run(ctx context.Context) error {
	for {
		e.Cycle(ctx)
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.sleep(ctx, e.params.CheckInterval); err != nil {
			return err
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
