package models

import (
	"time"

	"github.com/jengzang/timeline-core/internal/spatial"
)

// RecordingState mirrors the acquisition layer's sample lifecycle state.
type RecordingState string

const (
	RecordingOff         RecordingState = "off"
	RecordingRecording   RecordingState = "recording"
	RecordingSleeping    RecordingState = "sleeping"
	RecordingDeepSleeping RecordingState = "deepSleeping"
	RecordingWakeup      RecordingState = "wakeup"
	RecordingStandby     RecordingState = "standby"
)

// ActivityType is the classifier's (or user's) label for a sample's motion.
type ActivityType string

const (
	ActivityNone       ActivityType = ""
	ActivityStationary ActivityType = "stationary"
	ActivityWalking    ActivityType = "walking"
	ActivityRunning    ActivityType = "running"
	ActivityCycling    ActivityType = "cycling"
	ActivityCar        ActivityType = "car"
	ActivityTrain      ActivityType = "train"
	ActivityFlight     ActivityType = "flight"
	ActivityUnknown    ActivityType = "unknown"
)

// Sample is a single timestamped location/recording-state observation.
// It is the atomic recorded location fix.
type Sample struct {
	ID                      string         `json:"id" db:"id"`
	Date                    time.Time      `json:"date" db:"date"`
	Coordinate              *spatial.Point `json:"coordinate,omitempty" db:"-"`
	Latitude                *float64       `json:"-" db:"latitude"`
	Longitude               *float64       `json:"-" db:"longitude"`
	HorizontalAccuracy      float64        `json:"horizontalAccuracy" db:"horizontal_accuracy"`
	Speed                   float64        `json:"speed" db:"speed"`
	Course                  float64        `json:"course" db:"course"`
	Altitude                float64        `json:"altitude" db:"altitude"`
	RecordingState          RecordingState `json:"recordingState" db:"recording_state"`
	ClassifiedActivityType  ActivityType   `json:"classifiedActivityType,omitempty" db:"classified_activity_type"`
	ConfirmedActivityType   ActivityType   `json:"confirmedActivityType,omitempty" db:"confirmed_activity_type"`
	TimelineItemID          string         `json:"timelineItemId" db:"timeline_item_id"`
	Disabled                bool           `json:"disabled" db:"disabled"`
}

// HasCoordinate reports whether the sample carries a usable GPS fix.
func (s Sample) HasCoordinate() bool {
	return s.Coordinate != nil
}

// ActivityType returns the sample's effective activity: the confirmed
// label if present, else the classifier's label.
func (s Sample) ActivityType() ActivityType {
	if s.ConfirmedActivityType != ActivityNone {
		return s.ConfirmedActivityType
	}
	return s.ClassifiedActivityType
}
