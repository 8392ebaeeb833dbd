package timeline

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jengzang/timeline-core/internal/changebus"
	"github.com/jengzang/timeline-core/internal/database"
	"github.com/jengzang/timeline-core/internal/models"
	"github.com/jengzang/timeline-core/internal/spatial"
)

func openProcessorTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "processor_test.db")})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestProcessor_MergesOverlappingVisitsAndPublishesTheUnion(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	long := models.Item{
		Base:    models.ItemBase{ID: "long", IsVisit: true, StartDate: start, EndDate: start.Add(10 * time.Minute), Source: "gps"},
		Visit:   &models.VisitDetail{Latitude: 1, Longitude: 1, Radius: 40},
		Samples: []models.Sample{{ID: "long-s1"}},
	}
	short := models.Item{
		Base:    models.ItemBase{ID: "short", IsVisit: true, StartDate: start.Add(2 * time.Minute), EndDate: start.Add(5 * time.Minute), Source: "gps"},
		Visit:   &models.VisitDetail{Latitude: 1, Longitude: 1, Radius: 40},
		Samples: []models.Sample{{ID: "short-s1"}},
	}
	long.Base.NextItemID = strp("short")
	short.Base.PreviousItemID = strp("long")
	repo := newFakeRepo(long, short)

	bus := changebus.New(4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	notifications := bus.Subscribe(ctx)

	db := openProcessorTestDB(t)
	p := NewProcessor(db, repo, bus)

	if err := p.ProcessFrom(context.Background(), "long"); err != nil {
		t.Fatal(err)
	}

	remaining := 0
	for _, it := range repo.items {
		if !it.Base.Deleted && !it.Base.Disabled {
			remaining++
		}
	}
	if remaining != 1 {
		t.Errorf("remaining live items = %d, want 1 after the pair merges", remaining)
	}

	select {
	case interval := <-notifications:
		if interval.Start.After(start) {
			t.Errorf("published interval start = %v, want <= %v", interval.Start, start)
		}
	default:
		t.Error("expected the processor to publish a change notification for the merge")
	}
}

func TestProcessor_NoMergeableCandidatesLeavesWindowUntouched(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	solo := models.Item{
		Base:    models.ItemBase{ID: "solo", IsVisit: true, StartDate: start, EndDate: start.Add(time.Minute), Source: "gps"},
		Visit:   &models.VisitDetail{Latitude: 1, Longitude: 1, Radius: 10},
		Samples: []models.Sample{{ID: "solo-s1"}},
	}
	repo := newFakeRepo(solo)
	db := openProcessorTestDB(t)
	p := NewProcessor(db, repo, nil)

	if err := p.ProcessFrom(context.Background(), "solo"); err != nil {
		t.Fatal(err)
	}
	if repo.items["solo"].Base.Deleted {
		t.Error("a lone item should never be merged away")
	}
}

// TestProcessor_RecursesPastItemsOutsideTheOriginalWindow builds a chain
// where the first window walked from the seed never reaches "far", yet a
// single top-level merge splices the keeper directly onto it. A processor
// that kept recursing on the original window's arena would silently treat
// "far" as absent (LinkedList.Next/Previous report ok=false for ids never
// loaded) and stop one merge short; reseeding the window on the survivor's
// id, as process does, discovers it.
func TestProcessor_RecursesPastItemsOutsideTheOriginalWindow(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	// "seed" is too short to count as a keeper, so walk's keepersSeen
	// counter only reaches 2 once it has loaded "mid" and "deadman" - it
	// stops there and never loads "far", even though "far" already exists
	// in the repository, linked off "deadman".
	// Every sample carries a coordinate so none of these visits count as
	// nolo - nolo pairs short-circuit to a Perfect score regardless of
	// overlap, which would mask the very distinction this test needs.
	seed := models.Item{
		Base:    models.ItemBase{ID: "seed", IsVisit: true, StartDate: start, EndDate: start.Add(30 * time.Second), Source: "gps"},
		Visit:   &models.VisitDetail{Latitude: 1, Longitude: 1, Radius: 10},
		Samples: []models.Sample{{ID: "seed-s1", Coordinate: &spatial.Point{Lat: 1, Lon: 1}}},
	}
	mid := models.Item{
		Base:    models.ItemBase{ID: "mid", IsVisit: true, StartDate: start.Add(5 * time.Minute), EndDate: start.Add(15 * time.Minute), Source: "gps"},
		Visit:   &models.VisitDetail{Latitude: 1, Longitude: 1, Radius: 10},
		Samples: []models.Sample{{ID: "mid-s1", Coordinate: &spatial.Point{Lat: 1, Lon: 1}}},
	}
	deadman := models.Item{
		Base:    models.ItemBase{ID: "deadman", IsVisit: true, StartDate: start.Add(7 * time.Minute), EndDate: start.Add(13 * time.Minute), Source: "gps"},
		Visit:   &models.VisitDetail{Latitude: 1, Longitude: 1, Radius: 10},
		Samples: []models.Sample{{ID: "deadman-s1", Coordinate: &spatial.Point{Lat: 1, Lon: 1}}},
	}
	far := models.Item{
		Base:    models.ItemBase{ID: "far", IsVisit: true, StartDate: start.Add(14 * time.Minute), EndDate: start.Add(22 * time.Minute), Source: "gps"},
		Visit:   &models.VisitDetail{Latitude: 1, Longitude: 1, Radius: 10},
		Samples: []models.Sample{{ID: "far-s1", Coordinate: &spatial.Point{Lat: 1, Lon: 1}}},
	}

	seed.Base.NextItemID = strp("mid")
	mid.Base.PreviousItemID = strp("seed")
	mid.Base.NextItemID = strp("deadman")
	deadman.Base.PreviousItemID = strp("mid")
	deadman.Base.NextItemID = strp("far")
	far.Base.PreviousItemID = strp("deadman")

	repo := newFakeRepo(seed, mid, deadman, far)
	db := openProcessorTestDB(t)
	p := NewProcessor(db, repo, nil)

	if err := p.ProcessFrom(context.Background(), "seed"); err != nil {
		t.Fatal(err)
	}

	if !repo.items["deadman"].Base.Deleted && !repo.items["deadman"].Base.Disabled {
		t.Error("mid should have absorbed deadman (overlapping, mid the longer of the pair)")
	}
	if !repo.items["far"].Base.Deleted && !repo.items["far"].Base.Disabled {
		t.Error("far was never loaded into the original window but is still reachable off the surviving item " +
			"after the first merge; a stale-window recursion would have missed it")
	}
	if repo.items["seed"].Base.Deleted || repo.items["seed"].Base.Disabled {
		t.Error("seed never overlaps another item in this chain and should survive untouched")
	}
}

func TestProcessor_AlreadyMovedSamplesResetsBetweenTopLevelCalls(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	solo := models.Item{
		Base:    models.ItemBase{ID: "solo", IsVisit: true, StartDate: start, EndDate: start.Add(time.Minute), Source: "gps"},
		Visit:   &models.VisitDetail{Latitude: 1, Longitude: 1, Radius: 10},
		Samples: []models.Sample{{ID: "solo-s1"}},
	}
	repo := newFakeRepo(solo)
	db := openProcessorTestDB(t)
	p := NewProcessor(db, repo, nil)

	if err := p.ProcessFrom(context.Background(), "solo"); err != nil {
		t.Fatal(err)
	}
	p.mu.Lock()
	firstLen := len(p.alreadyMovedSamples)
	p.alreadyMovedSamples["left-over-sample"] = true
	p.mu.Unlock()

	if err := p.ProcessFrom(context.Background(), "solo"); err != nil {
		t.Fatal(err)
	}
	p.mu.Lock()
	secondLen := len(p.alreadyMovedSamples)
	p.mu.Unlock()

	if firstLen != 0 || secondLen != 0 {
		t.Errorf("alreadyMovedSamples should be empty after each top-level call with nothing to cleanse, got %d then %d", firstLen, secondLen)
	}
}
