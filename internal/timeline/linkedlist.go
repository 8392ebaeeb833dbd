// Package timeline holds the in-memory working set the processor
// operates on: a windowed linked list of timeline items, the merge
// candidate collector, the merge executor, edge cleansing, and the
// processor that drives all of them to a fixpoint.
package timeline

import (
	"context"
	"fmt"

	"github.com/jengzang/timeline-core/internal/models"
	"github.com/jengzang/timeline-core/internal/predicate"
)

// Repository is the persistence surface the linked list and executor
// are built against.
type Repository interface {
	ReadItem(ctx context.Context, id string) (models.Item, error)
	ReadItemWithSamples(ctx context.Context, id string) (models.Item, error)
	ItemsOverlapping(ctx context.Context, interval models.DateInterval) ([]models.Item, error)
}

// LinkedList is a windowed, arena-backed view of the item topology
// seeded around one item and walked outward via previousItemId/
// nextItemId. Items are kept by value in a map keyed by id rather than
// by pointer, so Replace can install a freshly persisted item without
// any caller holding a stale reference.
type LinkedList struct {
	repo  Repository
	arena map[string]models.Item
	order []string // ids, temporal order by EndDate ascending
}

// NewLinkedList seeds a window at seedID and walks outward until two
// keeper items have been collected in each direction, or the window
// reaches models.MaxProcessingListSize.
func NewLinkedList(ctx context.Context, repo Repository, seedID string) (*LinkedList, error) {
	seed, err := repo.ReadItemWithSamples(ctx, seedID)
	if err != nil {
		return nil, err
	}

	l := &LinkedList{
		repo:  repo,
		arena: map[string]models.Item{seedID: seed},
		order: []string{seedID},
	}

	if err := l.walk(ctx, seedID, true); err != nil {
		return nil, err
	}
	if err := l.walk(ctx, seedID, false); err != nil {
		return nil, err
	}
	l.resort()
	return l, nil
}

// walk extends the window from startID outward (forward=true follows
// nextItemId, false follows previousItemId) until two keeper items have
// been collected in that direction or the overall cap is reached.
func (l *LinkedList) walk(ctx context.Context, startID string, forward bool) error {
	keepersSeen := 0
	currentID := startID

	for keepersSeen < 2 && len(l.arena) < models.MaxProcessingListSize {
		current, ok := l.arena[currentID]
		if !ok {
			return fmt.Errorf("timeline: walk lost track of item %s", currentID)
		}

		var neighbourID *string
		if forward {
			neighbourID = current.Base.NextItemID
		} else {
			neighbourID = current.Base.PreviousItemID
		}
		if neighbourID == nil {
			return nil
		}

		if _, already := l.arena[*neighbourID]; already {
			return nil
		}

		neighbour, err := l.repo.ReadItemWithSamples(ctx, *neighbourID)
		if err != nil {
			return err
		}
		l.arena[neighbour.Base.ID] = neighbour
		l.order = append(l.order, neighbour.Base.ID)

		keeper, err := predicate.IsWorthKeeping(neighbour)
		if err != nil {
			return err
		}
		if keeper {
			keepersSeen++
		}

		currentID = neighbour.Base.ID
	}
	return nil
}

func (l *LinkedList) resort() {
	for i := 1; i < len(l.order); i++ {
		j := i
		for j > 0 && l.arena[l.order[j-1]].Base.EndDate.After(l.arena[l.order[j]].Base.EndDate) {
			l.order[j-1], l.order[j] = l.order[j], l.order[j-1]
			j--
		}
	}
}

// Previous returns the item linked before id, following the item's own
// previousItemId rather than any cached list position.
func (l *LinkedList) Previous(id string) (models.Item, bool) {
	current, ok := l.arena[id]
	if !ok || current.Base.PreviousItemID == nil {
		return models.Item{}, false
	}
	prev, ok := l.arena[*current.Base.PreviousItemID]
	return prev, ok
}

// Next returns the item linked after id, following the item's own
// nextItemId rather than any cached list position.
func (l *LinkedList) Next(id string) (models.Item, bool) {
	current, ok := l.arena[id]
	if !ok || current.Base.NextItemID == nil {
		return models.Item{}, false
	}
	next, ok := l.arena[*current.Base.NextItemID]
	return next, ok
}

// Items returns every item currently in the window, in temporal order
// by EndDate.
func (l *LinkedList) Items() []models.Item {
	items := make([]models.Item, len(l.order))
	for i, id := range l.order {
		items[i] = l.arena[id]
	}
	return items
}

// Get returns the item with the given id, if it is in the window.
func (l *LinkedList) Get(id string) (models.Item, bool) {
	it, ok := l.arena[id]
	return it, ok
}

// Replace installs it into the window by id, overwriting any copy already
// held, and re-sorts the window order. Its neighbour links are not checked
// here; Next/Previous follow the installed item's own links. This is how
// the processor re-installs an item just persisted by the merge executor
// without trusting a stale index into l.order.
func (l *LinkedList) Replace(it models.Item) {
	_, existed := l.arena[it.Base.ID]
	l.arena[it.Base.ID] = it
	if !existed {
		l.order = append(l.order, it.Base.ID)
	}
	l.resort()
}

// Remove drops id from the window — used once a merge has killed it.
func (l *LinkedList) Remove(id string) {
	delete(l.arena, id)
	for i, oid := range l.order {
		if oid == id {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
}
