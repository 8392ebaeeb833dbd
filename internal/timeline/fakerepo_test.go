package timeline

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/jengzang/timeline-core/internal/models"
)

// fakeRepo is an in-memory WriteRepository used by every test in this
// package — it is deliberately a plain map, not a SQLite-backed
// fixture, since the linked list, candidate collector, and executor
// logic under test has nothing to do with SQL mapping.
type fakeRepo struct {
	items map[string]models.Item
}

func newFakeRepo(items ...models.Item) *fakeRepo {
	r := &fakeRepo{items: make(map[string]models.Item)}
	for _, it := range items {
		r.items[it.Base.ID] = it
	}
	return r
}

func (r *fakeRepo) ReadItem(ctx context.Context, id string) (models.Item, error) {
	it, ok := r.items[id]
	if !ok {
		return models.Item{}, fmt.Errorf("fakeRepo: item not found: %s", id)
	}
	it.Samples = nil
	return it, nil
}

func (r *fakeRepo) ReadItemWithSamples(ctx context.Context, id string) (models.Item, error) {
	it, ok := r.items[id]
	if !ok {
		return models.Item{}, fmt.Errorf("fakeRepo: item not found: %s", id)
	}
	if it.Samples == nil {
		it.Samples = []models.Sample{}
	}
	return it, nil
}

func (r *fakeRepo) WriteItems(ctx context.Context, tx *sql.Tx, items ...models.Item) error {
	for _, it := range items {
		r.items[it.Base.ID] = it
	}
	return nil
}

func (r *fakeRepo) MoveSamples(ctx context.Context, tx *sql.Tx, sampleIDs []string, newItemID string) error {
	moving := make(map[string]bool, len(sampleIDs))
	for _, id := range sampleIDs {
		moving[id] = true
	}
	for itemID, it := range r.items {
		kept := it.Samples[:0:0]
		moved := false
		for _, s := range it.Samples {
			if moving[s.ID] {
				moved = true
				continue
			}
			kept = append(kept, s)
		}
		if moved {
			it.Samples = kept
			r.items[itemID] = it
		}
	}
	dest := r.items[newItemID]
	for _, id := range sampleIDs {
		dest.Samples = append(dest.Samples, models.Sample{ID: id, TimelineItemID: newItemID})
	}
	r.items[newItemID] = dest
	return nil
}

func (r *fakeRepo) ItemsOverlapping(ctx context.Context, interval models.DateInterval) ([]models.Item, error) {
	var out []models.Item
	for _, it := range r.items {
		if it.Base.Deleted {
			continue
		}
		if it.Base.Interval().Intersects(interval) {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Base.StartDate.Before(out[j].Base.StartDate) })
	return out, nil
}
