package timeline

import (
	"context"
	"database/sql"

	"github.com/jengzang/timeline-core/internal/database"
	"github.com/jengzang/timeline-core/internal/mergeability"
	"github.com/jengzang/timeline-core/internal/models"
	"github.com/jengzang/timeline-core/internal/spatial"
)

// edgeMove is one proposed sample reassignment discovered by a cleansing
// test: sampleID currently belongs to fromItemID and should move to
// toItemID.
type edgeMove struct {
	sampleID   string
	fromItemID string
	toItemID   string
}

// Cleanse runs the edge-cleansing fixpoint loop over the window: for
// every same-source, non-deleted, time-adjacent pair of neighbouring
// items it looks for a single boundary sample that belongs on the other
// side, moves it, and repeats until a pass finds nothing new, the total
// moved this call reaches models.MaximumEdgeSteals, or every candidate
// move collides with alreadyMoved (the cycle guard).
func Cleanse(ctx context.Context, db *database.DB, repo WriteRepository, list *LinkedList, alreadyMoved map[string]bool) (int, error) {
	movedCount := 0

	for {
		move, ok, err := findNextEdgeMove(list, alreadyMoved)
		if err != nil {
			return movedCount, err
		}
		if !ok {
			return movedCount, nil
		}

		if err := applyEdgeMove(ctx, db, repo, list, move); err != nil {
			return movedCount, err
		}
		alreadyMoved[move.sampleID] = true
		movedCount++

		if movedCount >= models.MaximumEdgeSteals {
			return movedCount, nil
		}
	}
}

func findNextEdgeMove(list *LinkedList, alreadyMoved map[string]bool) (edgeMove, bool, error) {
	for _, item := range list.Items() {
		if item.Base.Deleted {
			continue
		}
		for _, forward := range []bool{true, false} {
			var neighbour models.Item
			var ok bool
			if forward {
				neighbour, ok = list.Next(item.Base.ID)
			} else {
				neighbour, ok = list.Previous(item.Base.ID)
			}
			if !ok || neighbour.Base.Deleted || neighbour.Base.Source != item.Base.Source {
				continue
			}
			if mergeability.TimeInterval(item, neighbour) >= models.CleansingMaxTimeInterval.Seconds() {
				continue
			}
			within, err := mergeability.IsWithinMergeableDistance(item, neighbour)
			if err != nil {
				return edgeMove{}, false, err
			}
			if !within {
				continue
			}

			var move edgeMove
			var found bool
			if !item.Base.IsVisit && !neighbour.Base.IsVisit {
				move, found, err = tripTripEdgeTest(item, neighbour, forward, alreadyMoved)
			} else if item.Base.IsVisit != neighbour.Base.IsVisit {
				var visit, trip models.Item
				var tripPrecedesVisit bool
				if item.Base.IsVisit {
					visit, trip = item, neighbour
					tripPrecedesVisit = !forward
				} else {
					visit, trip = neighbour, item
					tripPrecedesVisit = forward
				}
				move, found, err = visitTripEdgeTest(visit, trip, tripPrecedesVisit, alreadyMoved)
			}
			if err != nil {
				return edgeMove{}, false, err
			}
			if found {
				return move, true, nil
			}
		}
	}
	return edgeMove{}, false, nil
}

// tripTripEdgeTest implements the Trip<->Trip cleansing test: the edge
// samples nearest each other must differ in activity type and sit on
// the same side of the mode-shift speed threshold; if the neighbour's
// edge sample already carries our activity type, it belongs on our
// side.
func tripTripEdgeTest(mine, theirs models.Item, minePrecedesTheirs bool, excluding map[string]bool) (edgeMove, bool, error) {
	if mine.Trip == nil || theirs.Trip == nil {
		return edgeMove{}, false, nil
	}
	myActivity := mine.Trip.ActivityType()
	theirActivity := theirs.Trip.ActivityType()
	if myActivity == theirActivity {
		return edgeMove{}, false, nil
	}
	if !mine.SamplesLoaded() || !theirs.SamplesLoaded() || len(mine.Samples) == 0 || len(theirs.Samples) == 0 {
		return edgeMove{}, false, nil
	}

	var myEdge, theirEdge models.Sample
	if minePrecedesTheirs {
		myEdge = mine.LastSample()
		theirEdge = theirs.FirstSample()
	} else {
		myEdge = mine.FirstSample()
		theirEdge = theirs.LastSample()
	}

	mySlow := myEdge.Speed >= 0 && myEdge.Speed < models.MaximumModeShiftSpeedMPS
	theirSlow := theirEdge.Speed >= 0 && theirEdge.Speed < models.MaximumModeShiftSpeedMPS
	if mySlow != theirSlow {
		return edgeMove{}, false, nil
	}

	if excluding[theirEdge.ID] {
		return edgeMove{}, false, nil
	}
	if theirEdge.ClassifiedActivityType == myActivity {
		return edgeMove{sampleID: theirEdge.ID, fromItemID: theirs.Base.ID, toItemID: mine.Base.ID}, true, nil
	}
	return edgeMove{}, false, nil
}

// visitTripEdgeTest implements the Visit<->Trip cleansing test.
func visitTripEdgeTest(visit, trip models.Item, tripPrecedesVisit bool, excluding map[string]bool) (edgeMove, bool, error) {
	if visit.Visit == nil || !trip.SamplesLoaded() || len(trip.Samples) < 2 || !visit.SamplesLoaded() || len(visit.Samples) < 2 {
		return edgeMove{}, false, nil
	}

	var tripNear, tripSecond models.Sample
	if tripPrecedesVisit {
		tripNear = trip.LastSample()
		tripSecond = trip.Samples[len(trip.Samples)-2]
	} else {
		tripNear = trip.FirstSample()
		tripSecond = trip.Samples[1]
	}

	circle := spatial.Circle{Center: visit.Visit.Center(), Radius: visit.Visit.Radius}

	if tripNear.HasCoordinate() && tripSecond.HasCoordinate() &&
		circle.Contains(*tripNear.Coordinate) && circle.Contains(*tripSecond.Coordinate) {
		if !excluding[tripNear.ID] {
			return edgeMove{sampleID: tripNear.ID, fromItemID: trip.Base.ID, toItemID: visit.Base.ID}, true, nil
		}
		return edgeMove{}, false, nil
	}

	var visitNear, visitSecond models.Sample
	if tripPrecedesVisit {
		visitNear = visit.FirstSample()
		visitSecond = visit.Samples[1]
	} else {
		visitNear = visit.LastSample()
		visitSecond = visit.Samples[len(visit.Samples)-2]
	}
	if visitSecond.Date.Sub(visitNear.Date) > models.VisitEdgePairDurationCap ||
		visitNear.Date.Sub(visitSecond.Date) > models.VisitEdgePairDurationCap {
		return edgeMove{}, false, nil
	}

	if tripNear.HasCoordinate() && !circle.Contains(*tripNear.Coordinate) {
		if !excluding[visitNear.ID] {
			return edgeMove{sampleID: visitNear.ID, fromItemID: visit.Base.ID, toItemID: trip.Base.ID}, true, nil
		}
	}
	return edgeMove{}, false, nil
}

func applyEdgeMove(ctx context.Context, db *database.DB, repo WriteRepository, list *LinkedList, move edgeMove) error {
	from, fromOK := list.Get(move.fromItemID)
	to, toOK := list.Get(move.toItemID)
	if fromOK {
		from.Base.SamplesChanged = true
	}
	if toOK {
		to.Base.SamplesChanged = true
	}

	err := db.Write(ctx, func(tx *sql.Tx) error {
		var touched []models.Item
		if fromOK {
			touched = append(touched, from)
		}
		if toOK {
			touched = append(touched, to)
		}
		if len(touched) > 0 {
			if err := repo.WriteItems(ctx, tx, touched...); err != nil {
				return err
			}
		}
		return repo.MoveSamples(ctx, tx, []string{move.sampleID}, move.toItemID)
	})
	if err != nil {
		return err
	}

	if fromOK {
		list.Replace(from)
	}
	if toOK {
		list.Replace(to)
	}
	return nil
}
