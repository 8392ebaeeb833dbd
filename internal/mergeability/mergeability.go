// Package mergeability implements the time-gap and
// distance tests that gate whether two timeline items may even be
// considered for a merge.
package mergeability

import (
	"math"

	"github.com/jengzang/timeline-core/internal/models"
	"github.com/jengzang/timeline-core/internal/predicate"
	"github.com/jengzang/timeline-core/internal/spatial"
)

// TimeInterval returns the signed gap between two items' date ranges, in
// seconds: negative is overlap duration, positive is a gap, zero is
// exactly touching.
func TimeInterval(a, b models.Item) float64 {
	aStart, aEnd := a.Base.StartDate, a.Base.EndDate
	bStart, bEnd := b.Base.StartDate, b.Base.EndDate

	if aEnd.Before(bStart) {
		return bStart.Sub(aEnd).Seconds()
	}
	if bEnd.Before(aStart) {
		return aStart.Sub(bEnd).Seconds()
	}

	overlapStart := aStart
	if bStart.After(overlapStart) {
		overlapStart = bStart
	}
	overlapEnd := aEnd
	if bEnd.Before(overlapEnd) {
		overlapEnd = bEnd
	}
	return -overlapEnd.Sub(overlapStart).Seconds()
}

// edgePoint returns the point of it nearest to its neighbour on the given
// side. towardsLater selects the item's end-of-range edge (when it
// precedes the neighbour) versus its start-of-range edge.
func edgePoint(it models.Item, towardsLater bool) (spatial.Point, bool) {
	if it.Base.IsVisit {
		if it.Visit == nil {
			return spatial.Point{}, false
		}
		return it.Visit.Center(), true
	}
	if len(it.Samples) == 0 {
		return spatial.Point{}, false
	}
	var s models.Sample
	if towardsLater {
		s = it.LastSample()
	} else {
		s = it.FirstSample()
	}
	if !s.HasCoordinate() {
		return spatial.Point{}, false
	}
	return *s.Coordinate, true
}

// Distance returns the Haversine distance in metres between the closest
// edge samples of a and b, or between a visit's center and a trip's
// nearest edge sample when the pair is mixed. The second return value is
// false when either item lacks a usable coordinate there.
func Distance(a, b models.Item) (float64, bool) {
	aFirst := !a.Base.StartDate.After(b.Base.StartDate)

	var pa, pb spatial.Point
	var oka, okb bool
	if aFirst {
		pa, oka = edgePoint(a, true)
		pb, okb = edgePoint(b, false)
	} else {
		pa, oka = edgePoint(a, false)
		pb, okb = edgePoint(b, true)
	}
	if !oka || !okb {
		return 0, false
	}
	return spatial.HaversineDistance(pa.Lat, pa.Lon, pb.Lat, pb.Lon), true
}

// MaximumMergeableDistance caps the distance two items may be apart and
// still be considered mergeable.
func MaximumMergeableDistance(a, b models.Item) float64 {
	if a.Base.IsVisit && b.Base.IsVisit {
		return math.Inf(1)
	}

	gap := math.Abs(TimeInterval(a, b))

	if a.Base.IsVisit != b.Base.IsVisit {
		trip := a
		if a.Base.IsVisit {
			trip = b
		}
		speed := 0.0
		if trip.Trip != nil {
			speed = trip.Trip.Speed
		}
		return math.Max(models.VisitTripMinMergeableDistance, models.VisitTripMergeableDistanceSlope*speed*gap)
	}

	speeds := make([]float64, 0, 2)
	if a.Trip != nil && a.Trip.Speed > 0 {
		speeds = append(speeds, a.Trip.Speed)
	}
	if b.Trip != nil && b.Trip.Speed > 0 {
		speeds = append(speeds, b.Trip.Speed)
	}
	mean := 0.0
	if len(speeds) > 0 {
		sum := 0.0
		for _, s := range speeds {
			sum += s
		}
		mean = sum / float64(len(speeds))
	}
	return models.TripTripMergeableDistanceSlope * mean * gap
}

// IsWithinMergeableDistance is the top-level gate: either item being nolo,
// or the pair overlapping in time, is always mergeable; otherwise the
// edge-to-edge distance must fall within MaximumMergeableDistance.
func IsWithinMergeableDistance(a, b models.Item) (bool, error) {
	aNolo, err := predicate.IsNolo(a)
	if err != nil {
		return false, err
	}
	if aNolo {
		return true, nil
	}
	bNolo, err := predicate.IsNolo(b)
	if err != nil {
		return false, err
	}
	if bNolo {
		return true, nil
	}

	if TimeInterval(a, b) < 0 {
		return true, nil
	}

	dist, ok := Distance(a, b)
	if !ok {
		return false, nil
	}
	return dist <= MaximumMergeableDistance(a, b), nil
}
