package observer

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/jengzang/timeline-core/internal/models"
)

// AlwaysForeground is the ForegroundState a long-running server process
// uses in place of a mobile app's actual foreground/background signal:
// a server-side segment is always allowed to reprocess.
type AlwaysForeground struct{}

// IsActive always reports true.
func (AlwaysForeground) IsActive() bool { return true }

// Registry tracks the segments currently being watched, so the
// composition root can open one at startup and so an operator surface
// could close or enumerate them without the caller needing to hold onto
// every *TimelineSegment itself.
type Registry struct {
	mu       sync.Mutex
	segments map[string]*TimelineSegment
	nextID   int64
}

// NewRegistry creates an empty segment registry.
func NewRegistry() *Registry {
	return &Registry{segments: make(map[string]*TimelineSegment)}
}

// Open starts watching interval and registers the resulting segment
// under a new id.
func (r *Registry) Open(interval models.DateInterval, shouldReprocessOnUpdate bool, deps Deps) string {
	id := fmt.Sprintf("segment-%d", atomic.AddInt64(&r.nextID, 1))
	seg := NewTimelineSegment(interval, shouldReprocessOnUpdate, deps)

	r.mu.Lock()
	r.segments[id] = seg
	r.mu.Unlock()

	return id
}

// Segment returns the segment registered under id, if any.
func (r *Registry) Segment(id string) (*TimelineSegment, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seg, ok := r.segments[id]
	return seg, ok
}

// Close stops and deregisters the segment under id. A missing id is a
// no-op.
func (r *Registry) Close(id string) {
	r.mu.Lock()
	seg, ok := r.segments[id]
	delete(r.segments, id)
	r.mu.Unlock()

	if ok {
		seg.Close()
	}
}

// CloseAll stops every registered segment, for orderly shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	segments := make([]*TimelineSegment, 0, len(r.segments))
	for id, seg := range r.segments {
		segments = append(segments, seg)
		delete(r.segments, id)
	}
	r.mu.Unlock()

	for _, seg := range segments {
		seg.Close()
	}
}
