// Package predicate implements the validity/keepness predicates of
// the item-level predicates: isDataGap, isNolo, isValid, isWorthKeeping, and
// keepnessScore.
package predicate

import "github.com/jengzang/timeline-core/internal/models"

// IsDataGap reports whether a trip's samples are non-empty and every one
// of them was recorded while off. Visits are never data gaps.
func IsDataGap(it models.Item) (bool, error) {
	if !it.SamplesLoaded() {
		return false, models.ErrSamplesNotLoaded
	}
	if it.Base.IsVisit {
		return false, nil
	}
	if len(it.Samples) == 0 {
		return false, nil
	}
	for _, s := range it.Samples {
		if s.RecordingState != models.RecordingOff {
			return false, nil
		}
	}
	return true, nil
}

// IsNolo ("no location") reports whether the item has samples but none of
// them carries a usable coordinate, and it is not a data gap.
func IsNolo(it models.Item) (bool, error) {
	if !it.SamplesLoaded() {
		return false, models.ErrSamplesNotLoaded
	}
	gap, err := IsDataGap(it)
	if err != nil {
		return false, err
	}
	if gap {
		return false, nil
	}
	if len(it.Samples) == 0 {
		return false, nil
	}
	for _, s := range it.Samples {
		if s.HasCoordinate() {
			return false, nil
		}
	}
	return true, nil
}

// IsValid reports whether the item meets the minimum bar for existing at
// all: a visit needs a non-empty, non-nolo sample set lasting at least
// VisitMinimumValidDuration; a trip needs at least TripMinimumValidSamples
// samples, a duration of at least TripMinimumValidDuration, and (when its
// distance is known) a distance of at least TripMinimumValidDistance.
func IsValid(it models.Item) (bool, error) {
	if !it.SamplesLoaded() {
		return false, models.ErrSamplesNotLoaded
	}
	if it.Base.IsVisit {
		if len(it.Samples) == 0 {
			return false, nil
		}
		nolo, err := IsNolo(it)
		if err != nil {
			return false, err
		}
		if nolo {
			return false, nil
		}
		return it.Base.Duration() >= models.VisitMinimumValidDuration, nil
	}

	if len(it.Samples) < models.TripMinimumValidSamples {
		return false, nil
	}
	if it.Base.Duration() < models.TripMinimumValidDuration {
		return false, nil
	}
	if it.Trip != nil && it.Trip.Distance > 0 {
		if it.Trip.Distance < models.TripMinimumValidDistance {
			return false, nil
		}
	}
	return true, nil
}

// IsWorthKeeping reports whether the item is durable enough to present to
// a user: valid, plus a visit duration floor of VisitMinimumKeeperDuration
// or a trip duration/distance floor of TripMinimumKeeperDuration and
// TripMinimumKeeperDistance.
func IsWorthKeeping(it models.Item) (bool, error) {
	valid, err := IsValid(it)
	if err != nil {
		return false, err
	}
	if !valid {
		return false, nil
	}
	if it.Base.IsVisit {
		return it.Base.Duration() >= models.VisitMinimumKeeperDuration, nil
	}
	if it.Base.Duration() < models.TripMinimumKeeperDuration {
		return false, nil
	}
	if it.Trip != nil && it.Trip.Distance < models.TripMinimumKeeperDistance {
		return false, nil
	}
	return true, nil
}

// KeepnessScore collapses IsValid/IsWorthKeeping into the 0/1/2 lattice
// used throughout the merge candidate collector.
func KeepnessScore(it models.Item) (int, error) {
	keeper, err := IsWorthKeeping(it)
	if err != nil {
		return 0, err
	}
	if keeper {
		return 2, nil
	}
	valid, err := IsValid(it)
	if err != nil {
		return 0, err
	}
	if valid {
		return 1, nil
	}
	return 0, nil
}
