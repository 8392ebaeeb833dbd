package timeline

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jengzang/timeline-core/internal/database"
	"github.com/jengzang/timeline-core/internal/models"
)

// WriteRepository is the persistence surface the merge executor and
// edge cleansing need beyond plain reads.
type WriteRepository interface {
	Repository
	WriteItems(ctx context.Context, tx *sql.Tx, items ...models.Item) error
	MoveSamples(ctx context.Context, tx *sql.Tx, sampleIDs []string, newItemID string) error
}

// MergeResult is the outcome of a successful Execute: the surviving item
// and everything it swallowed.
type MergeResult struct {
	Kept   models.Item
	Killed []models.Item
}

// orientation identifies which end of keeper the deadman chain hangs off.
type orientation int

const (
	orientationNone orientation = iota
	orientationPrevious
	orientationNext
)

// detectOrientation re-checks the two canonical link topologies the
// candidate must still match: a direct two-item adjacency, or a
// three-item chain through betweener.
func detectOrientation(keeper, deadman models.Item, betweener *models.Item) orientation {
	if betweener == nil {
		if deadman.Base.ID == derefOrEmpty(keeper.Base.NextItemID) {
			return orientationNext
		}
		if deadman.Base.ID == derefOrEmpty(keeper.Base.PreviousItemID) {
			return orientationPrevious
		}
		return orientationNone
	}

	if betweener.Base.ID == derefOrEmpty(keeper.Base.NextItemID) &&
		deadman.Base.ID == derefOrEmpty(betweener.Base.NextItemID) {
		return orientationNext
	}
	if betweener.Base.ID == derefOrEmpty(keeper.Base.PreviousItemID) &&
		deadman.Base.ID == derefOrEmpty(betweener.Base.PreviousItemID) {
		return orientationPrevious
	}
	return orientationNone
}

func derefOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Execute re-checks the candidate's link topology inside one write
// transaction and, if it still holds, splices the keeper's links around
// the deadman (and betweener, if any), reassigns their non-disabled
// samples to the keeper, and marks the swallowed items disabled or
// deleted.
func Execute(ctx context.Context, db *database.DB, repo WriteRepository, list *LinkedList, c Candidate) (*MergeResult, error) {
	var result MergeResult

	err := db.Write(ctx, func(tx *sql.Tx) error {
		keeper, err := repo.ReadItemWithSamples(ctx, c.Keeper.Base.ID)
		if err != nil {
			return err
		}
		deadman, err := repo.ReadItemWithSamples(ctx, c.Deadman.Base.ID)
		if err != nil {
			return err
		}
		var betweener *models.Item
		if c.Betweener != nil {
			b, err := repo.ReadItemWithSamples(ctx, c.Betweener.Base.ID)
			if err != nil {
				return err
			}
			betweener = &b
		}

		if keeper.Base.Deleted || deadman.Base.Deleted || (betweener != nil && betweener.Base.Deleted) {
			return fmt.Errorf("timeline: merge candidate references a deleted item: %w", models.ErrTopologyInvariant)
		}

		orient := detectOrientation(keeper, deadman, betweener)
		if orient == orientationNone {
			return models.ErrTopologyInvariant
		}

		victims := []models.Item{}
		if betweener != nil {
			victims = append(victims, *betweener)
		}
		victims = append(victims, deadman)

		// Step 1: splice keeper's link past the victim chain.
		var farEnd *string
		if orient == orientationPrevious {
			farEnd = deadman.Base.PreviousItemID
			keeper.Base.PreviousItemID = farEnd
		} else {
			farEnd = deadman.Base.NextItemID
			keeper.Base.NextItemID = farEnd
		}

		// Step 2: collect samples from each victim, classify disabled vs
		// deleted, and null out its link pointers.
		var samplesToMove []string
		killed := make([]models.Item, 0, len(victims))
		for _, victim := range victims {
			samplesToMove = append(samplesToMove, victim.NonDisabledSampleIDs()...)

			anyDisabled := false
			for _, s := range victim.Samples {
				if s.Disabled {
					anyDisabled = true
					break
				}
			}
			victim.Base.PreviousItemID = nil
			victim.Base.NextItemID = nil
			if anyDisabled {
				victim.Base.Disabled = true
			} else {
				victim.Base.Deleted = true
			}
			killed = append(killed, victim)
		}

		// Step 3: persist keeper, betweener?, deadman, in that order, then
		// move samples. keeper.Base.SamplesChanged must be set before the
		// write so the flag is durable, not just held on the in-memory
		// result - a later hydration needs to see it to recompute.
		keeper.Base.SamplesChanged = true
		writeOrder := append([]models.Item{keeper}, killed...)
		if err := repo.WriteItems(ctx, tx, writeOrder...); err != nil {
			return err
		}
		if err := repo.MoveSamples(ctx, tx, samplesToMove, keeper.Base.ID); err != nil {
			return err
		}

		result = MergeResult{Kept: keeper, Killed: killed}
		return nil
	})
	if err != nil {
		return nil, err
	}

	list.Replace(result.Kept)
	for _, k := range result.Killed {
		list.Remove(k.Base.ID)
	}
	return &result, nil
}
