package timeline

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/jengzang/timeline-core/internal/changebus"
	"github.com/jengzang/timeline-core/internal/database"
	"github.com/jengzang/timeline-core/internal/models"
	"github.com/jengzang/timeline-core/internal/scoring"
)

// Processor drives one window through cleansing-to-fixpoint, candidate
// collection, a single merge execution, and recursion on the surviving
// item. It holds the only in-process mutex this core needs: at most one
// processor pass runs at a time, regardless of which goroutine calls it.
type Processor struct {
	db   *database.DB
	repo WriteRepository
	bus  *changebus.Bus // optional; nil disables change notification

	mu                  sync.Mutex
	alreadyMovedSamples map[string]bool
}

// NewProcessor wires a processor against the given database handle and
// repository. bus may be nil if no segment observer is listening.
func NewProcessor(db *database.DB, repo WriteRepository, bus *changebus.Bus) *Processor {
	return &Processor{
		db:                  db,
		repo:                repo,
		bus:                 bus,
		alreadyMovedSamples: make(map[string]bool),
	}
}

// ProcessFrom builds a window seeded at itemID and processes it. A
// *models.PersistenceError from either step is logged here and the call
// returns nil; any other error is returned to the caller.
func (p *Processor) ProcessFrom(ctx context.Context, itemID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	list, err := NewLinkedList(ctx, p.repo, itemID)
	if err == nil {
		p.alreadyMovedSamples = make(map[string]bool)
		_, err = p.process(ctx, list)
	}
	var persistErr *models.PersistenceError
	if errors.As(err, &persistErr) {
		log.Printf("[Processor] %v", err)
		return nil
	}
	return err
}

// Process exposes the single-window processing step directly for
// callers that already hold a window.
// It takes the processor's lock exactly like ProcessFrom.
func (p *Processor) Process(ctx context.Context, list *LinkedList) (*MergeResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.alreadyMovedSamples = make(map[string]bool)
	return p.process(ctx, list)
}

// process is the unlocked core: cleanse to fixpoint, collect candidates,
// execute at most one merge, and recurse on the survivor until no
// mergeable candidate remains.
func (p *Processor) process(ctx context.Context, list *LinkedList) (*MergeResult, error) {
	if _, err := Cleanse(ctx, p.db, p.repo, list, p.alreadyMovedSamples); err != nil {
		return nil, err
	}

	candidates, err := Collect(list)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 || candidates[0].Score == scoring.Impossible {
		return nil, nil
	}

	result, err := Execute(ctx, p.db, p.repo, list, candidates[0])
	if err != nil {
		return nil, err
	}
	p.publishAffected(result)

	// Reseed a fresh window off the survivor's id rather than continuing
	// to walk the same list: the merge may have spliced the keeper onto a
	// neighbour that was never loaded into this window's arena (e.g. the
	// deadman was itself the item the original walk stopped at), so the
	// list we're holding can no longer be trusted to answer Next/Previous
	// correctly on the keeper's far side.
	survivor, err := NewLinkedList(ctx, p.repo, result.Kept.Base.ID)
	if err != nil {
		return result, err
	}

	if _, err := Cleanse(ctx, p.db, p.repo, survivor, p.alreadyMovedSamples); err != nil {
		return result, err
	}

	next, err := p.process(ctx, survivor)
	if err != nil {
		return result, err
	}
	if next != nil {
		return next, nil
	}
	return result, nil
}

// publishAffected notifies the change bus of the date range a merge
// touched, so any segment observer whose window intersects it refetches.
func (p *Processor) publishAffected(result *MergeResult) {
	if p.bus == nil || result == nil {
		return
	}
	interval := result.Kept.Base.Interval()
	for _, k := range result.Killed {
		if k.Base.StartDate.Before(interval.Start) {
			interval.Start = k.Base.StartDate
		}
		if k.Base.EndDate.After(interval.End) {
			interval.End = k.Base.EndDate
		}
	}
	p.bus.Publish(interval)
}
