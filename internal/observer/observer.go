// Package observer implements the segment-level change observer: a
// TimelineSegment watches a date range, debounces change notifications,
// refetches the items that fall in its window, and — when conditions
// allow — hands the window to the processor for reprocessing.
package observer

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/jengzang/timeline-core/internal/changebus"
	"github.com/jengzang/timeline-core/internal/models"
	"github.com/jengzang/timeline-core/internal/predicate"
)

const defaultDebounceWindow = 1 * time.Second

// Repository is the read surface a segment refetches items through.
type Repository interface {
	ReadItemWithSamples(ctx context.Context, id string) (models.Item, error)
	ItemsOverlapping(ctx context.Context, interval models.DateInterval) ([]models.Item, error)
}

// Processor is the subset of timeline.Processor a segment drives on
// reprocessing.
type Processor interface {
	ProcessFrom(ctx context.Context, itemID string) error
}

// ForegroundState reports whether the process is currently
// foreground-active — reprocessing only fires in that state.
type ForegroundState interface{ IsActive() bool }

// Recorder reports the id of the item currently being recorded into, if
// any — the active recorder is the sole authority on in-flight items.
type Recorder interface{ CurrentItemID() (string, bool) }

// Deps bundles a segment's external collaborators.
type Deps struct {
	Repo       Repository
	Bus        *changebus.Bus
	Processor  Processor
	Foreground ForegroundState
	Recorder   Recorder

	// DebounceWindow overrides the default 1-second trailing-edge
	// debounce; zero means use the default.
	DebounceWindow time.Duration
}

// TimelineSegment republishes the set of reconstructed items overlapping
// a fixed date interval, refetching on any intersecting change,
// debounced by Deps.DebounceWindow (one second by default), and
// optionally triggering reprocessing.
type TimelineSegment struct {
	interval                models.DateInterval
	shouldReprocessOnUpdate bool
	deps                    Deps

	cancel context.CancelFunc

	mu    sync.Mutex
	items []models.Item
}

// NewTimelineSegment subscribes to deps.Bus and starts watching
// interval. shouldReprocessOnUpdate gates whether an intersecting
// change also triggers the processor.
func NewTimelineSegment(interval models.DateInterval, shouldReprocessOnUpdate bool, deps Deps) *TimelineSegment {
	ctx, cancel := context.WithCancel(context.Background())
	s := &TimelineSegment{
		interval:                interval,
		shouldReprocessOnUpdate: shouldReprocessOnUpdate,
		deps:                    deps,
		cancel:                  cancel,
	}

	s.refetch(ctx)
	go s.watch(ctx)
	return s
}

func (s *TimelineSegment) watch(ctx context.Context) {
	changes := s.deps.Bus.Subscribe(ctx)

	debounce := s.deps.DebounceWindow
	if debounce <= 0 {
		debounce = defaultDebounceWindow
	}

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case changed, ok := <-changes:
			if !ok {
				return
			}
			if !s.interval.Intersects(changed) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(debounce)
			timerC = timer.C

		case <-timerC:
			timerC = nil
			s.refetch(ctx)
		}
	}
}

// refetch reloads items overlapping the segment's interval, hydrating
// samples (reusing previously held samples when the item is otherwise
// unchanged), republishes the snapshot, and — if conditions permit —
// invokes the processor.
func (s *TimelineSegment) refetch(ctx context.Context) {
	overlapping, err := s.deps.Repo.ItemsOverlapping(ctx, s.interval)
	if err != nil {
		log.Printf("[TimelineSegment] refetch failed: %v", err)
		return
	}

	sort.Slice(overlapping, func(i, j int) bool {
		return overlapping[i].Base.EndDate.After(overlapping[j].Base.EndDate)
	})

	s.mu.Lock()
	held := make(map[string]models.Item, len(s.items))
	for _, it := range s.items {
		held[it.Base.ID] = it
	}
	s.mu.Unlock()

	hydrated := make([]models.Item, 0, len(overlapping))
	for _, it := range overlapping {
		if prior, ok := held[it.Base.ID]; ok && !it.Base.SamplesChanged && prior.SamplesLoaded() {
			it.Samples = prior.Samples
			hydrated = append(hydrated, it)
			continue
		}
		full, err := s.deps.Repo.ReadItemWithSamples(ctx, it.Base.ID)
		if err != nil {
			log.Printf("[TimelineSegment] hydrate failed for %s: %v", it.Base.ID, err)
			continue
		}
		hydrated = append(hydrated, full)
	}

	s.mu.Lock()
	s.items = hydrated
	s.mu.Unlock()

	if s.shouldReprocessOnUpdate && s.canReprocess(hydrated) {
		seed := hydrated[0].Base.ID
		if err := s.deps.Processor.ProcessFrom(ctx, seed); err != nil {
			log.Printf("[TimelineSegment] reprocess failed: %v", err)
		}
	}
}

// canReprocess reports whether reprocessing is currently allowed: the
// process must be foreground-active, and the currently-recording item
// (if any) must either fall outside this segment's window or already be
// worth keeping — the active recorder alone decides the fate of an
// in-flight item.
func (s *TimelineSegment) canReprocess(items []models.Item) bool {
	if len(items) == 0 {
		return false
	}
	if s.deps.Foreground == nil || !s.deps.Foreground.IsActive() {
		return false
	}
	if s.deps.Recorder == nil {
		return true
	}

	recordingID, recording := s.deps.Recorder.CurrentItemID()
	if !recording {
		return true
	}

	for _, it := range items {
		if it.Base.ID != recordingID {
			continue
		}
		keeper, err := predicate.IsWorthKeeping(it)
		if err != nil {
			return false
		}
		return keeper
	}
	return true
}

// Items returns the segment's current published snapshot.
func (s *TimelineSegment) Items() []models.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Item, len(s.items))
	copy(out, s.items)
	return out
}

// Close cancels the segment's change subscription.
func (s *TimelineSegment) Close() {
	s.cancel()
}
