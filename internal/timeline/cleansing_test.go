package timeline

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jengzang/timeline-core/internal/database"
	"github.com/jengzang/timeline-core/internal/models"
	"github.com/jengzang/timeline-core/internal/spatial"
)

func openCleansingTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "cleansing_test.db")})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCleanse_TripTripStealsMatchingEdgeSample(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	walking := models.Item{
		Base: models.ItemBase{ID: "walk", IsVisit: false, StartDate: start, EndDate: start.Add(2 * time.Minute), Source: "gps"},
		Trip: &models.TripDetail{ClassifiedActivityType: models.ActivityWalking},
		Samples: []models.Sample{
			{ID: "walk-s1", Date: start, Speed: 0.5},
			{ID: "walk-s2", Date: start.Add(time.Minute), Speed: 0.5},
		},
	}
	driving := models.Item{
		Base: models.ItemBase{ID: "drive", IsVisit: false, StartDate: start.Add(2 * time.Minute), EndDate: start.Add(4 * time.Minute), Source: "gps"},
		Trip: &models.TripDetail{ClassifiedActivityType: models.ActivityCar},
		Samples: []models.Sample{
			// the sample nearest "walk" is misclassified as walking speed
			// and carries the walking activity label, so it belongs on
			// walk's side of the boundary.
			{ID: "drive-s1", Date: start.Add(2 * time.Minute), Speed: 0.4, ClassifiedActivityType: models.ActivityWalking},
			{ID: "drive-s2", Date: start.Add(3 * time.Minute), Speed: 10},
		},
	}
	walking.Base.NextItemID = strp("drive")
	driving.Base.PreviousItemID = strp("walk")

	repo := newFakeRepo(walking, driving)
	list, err := NewLinkedList(context.Background(), repo, "walk")
	if err != nil {
		t.Fatal(err)
	}

	db := openCleansingTestDB(t)
	moved, err := Cleanse(context.Background(), db, repo, list, map[string]bool{})
	if err != nil {
		t.Fatal(err)
	}
	if moved == 0 {
		t.Fatal("expected at least one sample to move across the trip/trip boundary")
	}

	kept := repo.items["walk"]
	found := false
	for _, s := range kept.Samples {
		if s.ID == "drive-s1" {
			found = true
		}
	}
	if !found {
		t.Error("expected drive-s1 to have moved onto the walking trip")
	}
	if !kept.Base.SamplesChanged {
		t.Error("walk's persisted SamplesChanged flag should be set by the edge steal")
	}
	if !repo.items["drive"].Base.SamplesChanged {
		t.Error("drive's persisted SamplesChanged flag should be set by the edge steal")
	}
}

func TestCleanse_NoMoveWhenActivitiesMatch(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	a := models.Item{
		Base: models.ItemBase{ID: "a", IsVisit: false, StartDate: start, EndDate: start.Add(2 * time.Minute), Source: "gps"},
		Trip: &models.TripDetail{ClassifiedActivityType: models.ActivityWalking},
		Samples: []models.Sample{
			{ID: "a-s1", Date: start, Speed: 0.5},
			{ID: "a-s2", Date: start.Add(time.Minute), Speed: 0.5},
		},
	}
	b := models.Item{
		Base: models.ItemBase{ID: "b", IsVisit: false, StartDate: start.Add(2 * time.Minute), EndDate: start.Add(4 * time.Minute), Source: "gps"},
		Trip: &models.TripDetail{ClassifiedActivityType: models.ActivityWalking},
		Samples: []models.Sample{
			{ID: "b-s1", Date: start.Add(2 * time.Minute), Speed: 0.5},
			{ID: "b-s2", Date: start.Add(3 * time.Minute), Speed: 0.5},
		},
	}
	a.Base.NextItemID = strp("b")
	b.Base.PreviousItemID = strp("a")

	repo := newFakeRepo(a, b)
	list, err := NewLinkedList(context.Background(), repo, "a")
	if err != nil {
		t.Fatal(err)
	}

	db := openCleansingTestDB(t)
	moved, err := Cleanse(context.Background(), db, repo, list, map[string]bool{})
	if err != nil {
		t.Fatal(err)
	}
	if moved != 0 {
		t.Errorf("moved = %d, want 0 when both trips share an activity type", moved)
	}
}

func TestCleanse_VisitAbsorbsTripEdgeSampleInsideGeofence(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	trip := models.Item{
		Base: models.ItemBase{ID: "trip", IsVisit: false, StartDate: start, EndDate: start.Add(3 * time.Minute), Source: "gps"},
		Trip: &models.TripDetail{},
		Samples: []models.Sample{
			{ID: "trip-s1", Date: start, Coordinate: &spatial.Point{Lat: 10, Lon: 10}},
			{ID: "trip-s2", Date: start.Add(time.Minute), Coordinate: &spatial.Point{Lat: 10.0001, Lon: 10}},
			{ID: "trip-s3", Date: start.Add(2 * time.Minute), Coordinate: &spatial.Point{Lat: 10.0001, Lon: 10}},
		},
	}
	visit := models.Item{
		Base:  models.ItemBase{ID: "visit", IsVisit: true, StartDate: start.Add(3 * time.Minute), EndDate: start.Add(10 * time.Minute), Source: "gps"},
		Visit: &models.VisitDetail{Latitude: 10, Longitude: 10, Radius: 50},
		Samples: []models.Sample{
			{ID: "visit-s1", Date: start.Add(3 * time.Minute), Coordinate: &spatial.Point{Lat: 10, Lon: 10}},
			{ID: "visit-s2", Date: start.Add(4 * time.Minute), Coordinate: &spatial.Point{Lat: 10, Lon: 10}},
		},
	}
	trip.Base.NextItemID = strp("visit")
	visit.Base.PreviousItemID = strp("trip")

	repo := newFakeRepo(trip, visit)
	list, err := NewLinkedList(context.Background(), repo, "trip")
	if err != nil {
		t.Fatal(err)
	}

	db := openCleansingTestDB(t)
	moved, err := Cleanse(context.Background(), db, repo, list, map[string]bool{})
	if err != nil {
		t.Fatal(err)
	}
	if moved == 0 {
		t.Fatal("expected the trip's nearest two samples (both inside the geofence) to move onto the visit")
	}

	keptVisit := repo.items["visit"]
	found := false
	for _, s := range keptVisit.Samples {
		if s.ID == "trip-s3" {
			found = true
		}
	}
	if !found {
		t.Error("expected trip-s3 (nearest the visit, inside the geofence) to have moved onto the visit")
	}
}

func TestCleanse_StopsAtMaximumEdgeSteals(t *testing.T) {
	// Build a long chain of alternating walk/drive trips whose boundary
	// samples keep qualifying for a steal, and confirm the fixpoint loop
	// caps out rather than running forever.
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	n := 40
	items := make([]models.Item, n)
	cursor := start
	for i := 0; i < n; i++ {
		activity, other := models.ActivityWalking, models.ActivityCar
		if i%2 == 1 {
			activity, other = models.ActivityCar, models.ActivityWalking
		}
		id := "trip" + string(rune('a'+i))
		// Both edge samples carry the neighbours' label, so every boundary
		// offers a steal in each direction.
		samples := []models.Sample{
			{ID: id + "-s1", Date: cursor, Speed: 0.5, ClassifiedActivityType: other},
			{ID: id + "-s2", Date: cursor.Add(30 * time.Second), Speed: 0.5, ClassifiedActivityType: other},
		}
		items[i] = models.Item{
			Base:    models.ItemBase{ID: id, IsVisit: false, StartDate: cursor, EndDate: cursor.Add(time.Minute), Source: "gps"},
			Trip:    &models.TripDetail{ClassifiedActivityType: activity},
			Samples: samples,
		}
		cursor = cursor.Add(time.Minute)
	}
	for i := 0; i < n; i++ {
		if i > 0 {
			items[i].Base.PreviousItemID = strp(items[i-1].Base.ID)
		}
		if i < n-1 {
			items[i].Base.NextItemID = strp(items[i+1].Base.ID)
		}
	}

	repo := newFakeRepo(items...)
	list, err := NewLinkedList(context.Background(), repo, items[n/2].Base.ID)
	if err != nil {
		t.Fatal(err)
	}

	db := openCleansingTestDB(t)
	moved, err := Cleanse(context.Background(), db, repo, list, map[string]bool{})
	if err != nil {
		t.Fatal(err)
	}
	if moved > models.MaximumEdgeSteals {
		t.Errorf("moved = %d, want <= %d", moved, models.MaximumEdgeSteals)
	}
}
