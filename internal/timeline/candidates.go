package timeline

import (
	"fmt"
	"sort"

	"github.com/jengzang/timeline-core/internal/models"
	"github.com/jengzang/timeline-core/internal/predicate"
	"github.com/jengzang/timeline-core/internal/scoring"
)

// Candidate is a proposed merge: keeper absorbs deadman, optionally
// swallowing a low-keepness betweener in the middle of the chain.
type Candidate struct {
	Keeper    models.Item
	Deadman   models.Item
	Betweener *models.Item
	Score     scoring.Score
}

func keepnessOf(it models.Item) (int, error) {
	return predicate.KeepnessScore(it)
}

func dedupKey(c Candidate) string {
	betweenerID := ""
	if c.Betweener != nil {
		betweenerID = c.Betweener.Base.ID
	}
	return fmt.Sprintf("%s|%s|%s|%d", c.Keeper.Base.ID, c.Deadman.Base.ID, betweenerID, c.Keeper.Base.StartDate.UnixNano())
}

// Collect enumerates Adjacent, Betweener, and Bridge merge shapes across
// the window, dedups them, applies early termination once at least 10
// candidates are collected and one of them is non-Impossible, and
// returns them sorted by score descending (stable on ties).
func Collect(list *LinkedList) ([]Candidate, error) {
	seen := map[string]struct{}{}
	var candidates []Candidate

	add := func(c Candidate) error {
		key := dedupKey(c)
		if _, ok := seen[key]; ok {
			return nil
		}
		score, err := scoring.Consumption(c.Keeper, c.Deadman)
		if err != nil {
			return err
		}
		c.Score = score
		seen[key] = struct{}{}
		candidates = append(candidates, c)
		return nil
	}

	done := func() bool {
		if len(candidates) < 10 {
			return false
		}
		for _, c := range candidates {
			if c.Score != scoring.Impossible {
				return true
			}
		}
		return false
	}

	items := list.Items()
	for _, item := range items {
		if done() {
			break
		}

		// Adjacent: both directions, both role assignments.
		if prev, ok := list.Previous(item.Base.ID); ok {
			if err := add(Candidate{Keeper: item, Deadman: prev}); err != nil {
				return nil, err
			}
			if err := add(Candidate{Keeper: prev, Deadman: item}); err != nil {
				return nil, err
			}
		}
		if next, ok := list.Next(item.Base.ID); ok {
			if err := add(Candidate{Keeper: item, Deadman: next}); err != nil {
				return nil, err
			}
			if err := add(Candidate{Keeper: next, Deadman: item}); err != nil {
				return nil, err
			}
		}

		// Betweener: forward chain (item, next, next-next) and backward
		// chain (item, previous, previous-previous) — "both orientations".
		if err := collectBetweener(list, item, true, add); err != nil {
			return nil, err
		}
		if err := collectBetweener(list, item, false, add); err != nil {
			return nil, err
		}

		// Bridge: item is the pivot; previous and next must both outrank
		// it and share its source.
		if err := collectBridge(list, item, add); err != nil {
			return nil, err
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	return candidates, nil
}

func collectBetweener(list *LinkedList, a models.Item, forward bool, add func(Candidate) error) error {
	var b, c models.Item
	var ok bool
	if forward {
		b, ok = list.Next(a.Base.ID)
		if !ok {
			return nil
		}
		c, ok = list.Next(b.Base.ID)
	} else {
		b, ok = list.Previous(a.Base.ID)
		if !ok {
			return nil
		}
		c, ok = list.Previous(b.Base.ID)
	}
	if !ok {
		return nil
	}

	aGap, err := predicate.IsDataGap(a)
	if err != nil {
		return err
	}
	cGap, err := predicate.IsDataGap(c)
	if err != nil {
		return err
	}
	if aGap || cGap {
		return nil
	}

	keepA, err := keepnessOf(a)
	if err != nil {
		return err
	}
	keepB, err := keepnessOf(b)
	if err != nil {
		return err
	}
	keepC, err := keepnessOf(c)
	if err != nil {
		return err
	}

	if keepB < keepA && keepC > keepB {
		betweener := b
		return add(Candidate{Keeper: a, Betweener: &betweener, Deadman: c})
	}
	return nil
}

func collectBridge(list *LinkedList, b models.Item, add func(Candidate) error) error {
	a, okA := list.Previous(b.Base.ID)
	c, okC := list.Next(b.Base.ID)
	if !okA || !okC {
		return nil
	}
	if a.Base.Source != b.Base.Source || b.Base.Source != c.Base.Source {
		return nil
	}

	keepA, err := keepnessOf(a)
	if err != nil {
		return err
	}
	keepB, err := keepnessOf(b)
	if err != nil {
		return err
	}
	keepC, err := keepnessOf(c)
	if err != nil {
		return err
	}
	if keepA <= keepB || keepC <= keepB {
		return nil
	}

	betweener := b
	if err := add(Candidate{Keeper: a, Betweener: &betweener, Deadman: c}); err != nil {
		return err
	}
	return add(Candidate{Keeper: c, Betweener: &betweener, Deadman: a})
}
