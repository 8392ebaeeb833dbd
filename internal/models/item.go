package models

import (
	"time"

	"github.com/jengzang/timeline-core/internal/spatial"
)

// DateInterval is a closed time range [Start, End].
type DateInterval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Intersects reports whether the two intervals share any instant.
func (d DateInterval) Intersects(other DateInterval) bool {
	return !d.End.Before(other.Start) && !other.End.Before(d.Start)
}

// VisitDetail is the geofence half of a visit item.
type VisitDetail struct {
	Latitude  float64 `json:"latitude" db:"latitude"`
	Longitude float64 `json:"longitude" db:"longitude"`
	Radius    float64 `json:"radius" db:"radius"` // metres
}

// Center returns the visit's geofence center as a spatial.Point.
func (v VisitDetail) Center() spatial.Point {
	return spatial.Point{Lat: v.Latitude, Lon: v.Longitude}
}

// TripDetail is the movement half of a trip item.
type TripDetail struct {
	Distance               float64      `json:"distance" db:"distance"` // metres
	Speed                  float64      `json:"speed" db:"speed"`       // m/s
	ClassifiedActivityType ActivityType `json:"classifiedActivityType,omitempty" db:"classified_activity_type"`
	ConfirmedActivityType  ActivityType `json:"confirmedActivityType,omitempty" db:"confirmed_activity_type"`
}

// ActivityType returns the confirmed activity if present, else the classified one.
func (t TripDetail) ActivityType() ActivityType {
	if t.ConfirmedActivityType != ActivityNone {
		return t.ConfirmedActivityType
	}
	return t.ClassifiedActivityType
}

// ItemBase is the topology node shared by every timeline item
// that every timeline item shares.
type ItemBase struct {
	ID             string    `json:"id" db:"id"`
	IsVisit        bool      `json:"isVisit" db:"is_visit"`
	StartDate      time.Time `json:"startDate" db:"start_date"`
	EndDate        time.Time `json:"endDate" db:"end_date"`
	Source         string    `json:"source" db:"source"`
	PreviousItemID *string   `json:"previousItemId,omitempty" db:"previous_item_id"`
	NextItemID     *string   `json:"nextItemId,omitempty" db:"next_item_id"`
	Disabled       bool      `json:"disabled" db:"disabled"`
	Deleted        bool      `json:"deleted" db:"deleted"`
	SamplesChanged bool      `json:"samplesChanged" db:"samples_changed"`
}

// Duration returns EndDate - StartDate.
func (b ItemBase) Duration() time.Duration {
	return b.EndDate.Sub(b.StartDate)
}

// Interval returns the base's date range as a DateInterval.
func (b ItemBase) Interval() DateInterval {
	return DateInterval{Start: b.StartDate, End: b.EndDate}
}

// Item is the hydrated bundle: base + visit?/trip? + samples?.
// Samples == nil means "not hydrated"; an empty-but-non-nil slice means
// "hydrated, zero samples". Exactly one of Visit/Trip is non-nil.
type Item struct {
	Base    ItemBase
	Visit   *VisitDetail
	Trip    *TripDetail
	Samples []Sample
}

// SamplesLoaded reports whether Samples has been hydrated.
func (it Item) SamplesLoaded() bool {
	return it.Samples != nil
}

// NonDisabledSampleIDs returns the ids of every non-disabled sample.
func (it Item) NonDisabledSampleIDs() []string {
	ids := make([]string, 0, len(it.Samples))
	for _, s := range it.Samples {
		if !s.Disabled {
			ids = append(ids, s.ID)
		}
	}
	return ids
}

// FirstSample and LastSample return the chronologically first/last loaded
// sample. Callers must check SamplesLoaded() and len(Samples) first.
func (it Item) FirstSample() Sample { return it.Samples[0] }
func (it Item) LastSample() Sample  { return it.Samples[len(it.Samples)-1] }
