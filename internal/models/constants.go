package models

import "time"

// Thresholds governing validity, keepness, and mergeability. These are
// user-visible and must stay bit-exact across releases.
const (
	// Visit
	VisitMinimumValidDuration   = 10 * time.Second
	VisitMinimumKeeperDuration  = 60 * time.Second

	// Trip
	TripMinimumValidDuration  = 10 * time.Second
	TripMinimumValidDistance  = 10.0 // metres
	TripMinimumValidSamples   = 2
	TripMinimumKeeperDuration = 60 * time.Second
	TripMinimumKeeperDistance = 20.0 // metres

	// Processor
	MaxProcessingListSize                  = 21
	MaximumPotentialMergesInProcessingLoop = 10
	MaximumEdgeSteals                      = 30
	MaximumModeShiftSpeedKMH               = 2.0

	// Cleansing gate
	CleansingMaxTimeInterval       = 10 * time.Minute
	VisitEdgePairDurationCap       = 120 * time.Second
	VisitTripMinMergeableDistance  = 150.0 // metres floor
	VisitTripMergeableDistanceSlope = 4.0
	TripTripMergeableDistanceSlope  = 4.0
)

// MaximumModeShiftSpeedMPS is MaximumModeShiftSpeedKMH converted to m/s.
const MaximumModeShiftSpeedMPS = MaximumModeShiftSpeedKMH / 3.6
