// Package scoring implements the consumption-score lattice: given a
// candidate (consumer, consumee) pair, how good an idea is it for
// consumer to absorb consumee?
package scoring

import (
	"math"

	"github.com/jengzang/timeline-core/internal/mergeability"
	"github.com/jengzang/timeline-core/internal/models"
	"github.com/jengzang/timeline-core/internal/predicate"
	"github.com/jengzang/timeline-core/internal/spatial"
)

// Score is the six-level consumption-score lattice.
type Score int

const (
	Impossible Score = 0
	VeryLow    Score = 1
	Low        Score = 2
	Medium     Score = 3
	High       Score = 4
	Perfect    Score = 5
)

func (s Score) String() string {
	switch s {
	case Impossible:
		return "impossible"
	case VeryLow:
		return "very_low"
	case Low:
		return "low"
	case Medium:
		return "medium"
	case High:
		return "high"
	case Perfect:
		return "perfect"
	default:
		return "unknown"
	}
}

// ClassifierProbabilities is an injectable plug point for the trip-vs-trip
// classifier-probability path left as an extension point. It returns a
// per-activity-type probability distribution for the pair, and whether a
// result is available at all. Nil by default, matching the stated
// current behaviour (no classifier input available, so that path falls
// through to Impossible).
var ClassifierProbabilities func(consumer, consumee models.Item) (map[models.ActivityType]float64, bool)

// classifierScore maps a probability to the documented score bands.
func classifierScore(p float64) Score {
	switch {
	case p >= 0.75:
		return Perfect
	case p >= 0.50:
		return High
	case p >= 0.25:
		return Medium
	case p >= 0.10:
		return Low
	default:
		return VeryLow
	}
}

// Consumption scores whether consumer should absorb consumee, following
// the decision cascade exactly; first match wins.
func Consumption(consumer, consumee models.Item) (Score, error) {
	if !consumer.SamplesLoaded() || !consumee.SamplesLoaded() {
		return Impossible, models.ErrSamplesNotLoaded
	}

	// 1. consumee samples empty -> Perfect.
	if len(consumee.Samples) == 0 {
		return Perfect, nil
	}

	// 2. consumer samples empty, consumer deleted, either disabled, or
	// different source -> Impossible.
	if len(consumer.Samples) == 0 ||
		consumer.Base.Deleted ||
		consumer.Base.Disabled || consumee.Base.Disabled ||
		consumer.Base.Source != consumee.Base.Source {
		return Impossible, nil
	}

	// 3. consumer is a data gap.
	consumerGap, err := predicate.IsDataGap(consumer)
	if err != nil {
		return Impossible, err
	}
	if consumerGap {
		consumeeGap, err := predicate.IsDataGap(consumee)
		if err != nil {
			return Impossible, err
		}
		if consumeeGap {
			return Perfect, nil
		}
		return Impossible, nil
	}

	// 4. consumee is a data gap.
	consumeeGap, err := predicate.IsDataGap(consumee)
	if err != nil {
		return Impossible, err
	}
	if consumeeGap {
		consumeeValid, err := predicate.IsValid(consumee)
		if err != nil {
			return Impossible, err
		}
		if !consumeeValid {
			return Medium, nil
		}
		return Impossible, nil
	}

	// 5. consumer is nolo.
	consumerNolo, err := predicate.IsNolo(consumer)
	if err != nil {
		return Impossible, err
	}
	if consumerNolo {
		consumeeNolo, err := predicate.IsNolo(consumee)
		if err != nil {
			return Impossible, err
		}
		if consumeeNolo {
			return Perfect, nil
		}
		return Impossible, nil
	}

	// 6. consumee is nolo and invalid -> Medium.
	consumeeNolo, err := predicate.IsNolo(consumee)
	if err != nil {
		return Impossible, err
	}
	if consumeeNolo {
		consumeeValid, err := predicate.IsValid(consumee)
		if err != nil {
			return Impossible, err
		}
		if !consumeeValid {
			return Medium, nil
		}
	}

	// 7. geometric/temporal mergeability gate.
	within, err := mergeability.IsWithinMergeableDistance(consumer, consumee)
	if err != nil {
		return Impossible, err
	}
	if !within {
		return Impossible, nil
	}

	// 8. sub-lattices.
	if !consumer.Base.IsVisit {
		return tripConsumer(consumer, consumee)
	}
	return visitConsumer(consumer, consumee)
}

func tripConsumer(consumer, consumee models.Item) (Score, error) {
	consumerValid, err := predicate.IsValid(consumer)
	if err != nil {
		return Impossible, err
	}
	consumeeValid, err := predicate.IsValid(consumee)
	if err != nil {
		return Impossible, err
	}

	if !consumerValid {
		if !consumeeValid {
			return VeryLow, nil
		}
		return Impossible, nil
	}

	if consumee.Base.IsVisit {
		consumeeKeeper, err := predicate.IsWorthKeeping(consumee)
		if err != nil {
			return Impossible, err
		}
		if consumeeKeeper {
			return Impossible, nil
		}

		consumerKeeper, err := predicate.IsWorthKeeping(consumer)
		if err != nil {
			return Impossible, err
		}
		if consumerKeeper {
			if !consumeeValid {
				return Medium, nil
			}
			return Low, nil
		}
		if !consumeeValid {
			return Low, nil
		}
		return VeryLow, nil
	}

	// Trip consumes Trip.
	consumerActivity := models.ActivityNone
	if consumer.Trip != nil {
		consumerActivity = consumer.Trip.ActivityType()
	}
	consumeeActivity := models.ActivityNone
	if consumee.Trip != nil {
		consumeeActivity = consumee.Trip.ActivityType()
	}

	if consumerActivity == models.ActivityNone && consumeeActivity == models.ActivityNone {
		return Medium, nil
	}
	if consumerActivity == consumeeActivity {
		return Perfect, nil
	}

	consumeeKeeper, err := predicate.IsWorthKeeping(consumee)
	if err != nil {
		return Impossible, err
	}
	if consumeeKeeper {
		return Impossible, nil
	}
	if consumerActivity == models.ActivityNone {
		return Impossible, nil
	}

	if ClassifierProbabilities != nil {
		if probs, ok := ClassifierProbabilities(consumer, consumee); ok {
			if p, ok := probs[consumerActivity]; ok {
				return classifierScore(p), nil
			}
		}
	}
	return Impossible, nil
}

func visitConsumer(consumer, consumee models.Item) (Score, error) {
	if consumee.Base.IsVisit {
		if consumer.Visit == nil || consumee.Visit == nil {
			return Impossible, nil
		}
		consumerCircle := spatial.Circle{Center: consumer.Visit.Center(), Radius: consumer.Visit.Radius}
		consumeeCircle := spatial.Circle{Center: consumee.Visit.Center(), Radius: consumee.Visit.Radius}
		overlaps := consumerCircle.Overlaps(consumeeCircle,
			consumer.Base.StartDate, consumer.Base.EndDate,
			consumee.Base.StartDate, consumee.Base.EndDate)
		if overlaps {
			if consumer.Base.Duration() >= consumee.Base.Duration() {
				return Perfect, nil
			}
			return High, nil
		}
		return Impossible, nil
	}

	// Visit consumes Trip.
	consumerValid, err := predicate.IsValid(consumer)
	if err != nil {
		return Impossible, err
	}
	consumeeValid, err := predicate.IsValid(consumee)
	if err != nil {
		return Impossible, err
	}

	if consumerValid && !consumeeValid {
		if consumer.Visit == nil {
			return VeryLow, nil
		}
		circle := spatial.Circle{Center: consumer.Visit.Center(), Radius: consumer.Visit.Radius}
		points := make([]spatial.Point, 0, len(consumee.Samples))
		for _, s := range consumee.Samples {
			if s.HasCoordinate() {
				points = append(points, *s.Coordinate)
			}
		}
		if len(points) == 0 {
			return VeryLow, nil
		}
		pctInside := circle.FractionInside(points)
		if int(math.Floor(pctInside*10)) == 10 {
			return Low, nil
		}
		return VeryLow, nil
	}
	return Impossible, nil
}
