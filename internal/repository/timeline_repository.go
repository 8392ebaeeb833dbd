// Package repository implements the persistence surface the timeline
// engine is built against: loading items (with or without their
// samples hydrated), writing a batch of items inside a caller-supplied
// transaction, and reassigning samples when a merge steals them across
// an item boundary.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jengzang/timeline-core/internal/models"
	"github.com/jengzang/timeline-core/internal/spatial"
)

// TimelineRepository handles database operations for timeline items and
// their samples.
type TimelineRepository struct {
	db *sql.DB
}

// NewTimelineRepository creates a new timeline repository.
func NewTimelineRepository(db *sql.DB) *TimelineRepository {
	return &TimelineRepository{db: db}
}

const baseColumns = `id, isVisit, startDate, endDate, source, previousItemId, nextItemId, disabled, deleted, samplesChanged`

func scanBase(row interface{ Scan(...interface{}) error }) (models.ItemBase, error) {
	var b models.ItemBase
	var isVisit int
	var prev, next sql.NullString
	if err := row.Scan(&b.ID, &isVisit, &b.StartDate, &b.EndDate, &b.Source, &prev, &next, &b.Disabled, &b.Deleted, &b.SamplesChanged); err != nil {
		return b, err
	}
	b.IsVisit = isVisit != 0
	if prev.Valid {
		b.PreviousItemID = &prev.String
	}
	if next.Valid {
		b.NextItemID = &next.String
	}
	return b, nil
}

func (r *TimelineRepository) loadDetails(ctx context.Context, item *models.Item) error {
	if item.Base.IsVisit {
		var v models.VisitDetail
		err := r.db.QueryRowContext(ctx, `SELECT latitude, longitude, radius FROM timelineItemVisit WHERE itemId = ?`, item.Base.ID).
			Scan(&v.Latitude, &v.Longitude, &v.Radius)
		if err == sql.ErrNoRows {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to load visit detail for %s: %w", item.Base.ID, err)
		}
		item.Visit = &v
		return nil
	}

	var t models.TripDetail
	var classified, confirmed string
	err := r.db.QueryRowContext(ctx, `SELECT distance, speed, classifiedActivityType, confirmedActivityType FROM timelineItemTrip WHERE itemId = ?`, item.Base.ID).
		Scan(&t.Distance, &t.Speed, &classified, &confirmed)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load trip detail for %s: %w", item.Base.ID, err)
	}
	t.ClassifiedActivityType = models.ActivityType(classified)
	t.ConfirmedActivityType = models.ActivityType(confirmed)
	item.Trip = &t
	return nil
}

// ReadItem loads an item's base record and type-specific detail, but
// leaves Samples nil — callers that only need topology should prefer
// this over ReadItemWithSamples.
func (r *TimelineRepository) ReadItem(ctx context.Context, id string) (models.Item, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+baseColumns+` FROM timelineItemBase WHERE id = ?`, id)
	base, err := scanBase(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.Item{}, models.NewPersistenceError("ReadItem", fmt.Errorf("item not found: %s", id))
		}
		return models.Item{}, models.NewPersistenceError("ReadItem", err)
	}

	item := models.Item{Base: base}
	if err := r.loadDetails(ctx, &item); err != nil {
		return models.Item{}, models.NewPersistenceError("ReadItem", err)
	}
	return item, nil
}

// ReadItemWithSamples loads an item and hydrates every sample assigned
// to it (disabled ones included), ordered by date.
func (r *TimelineRepository) ReadItemWithSamples(ctx context.Context, id string) (models.Item, error) {
	item, err := r.ReadItem(ctx, id)
	if err != nil {
		return models.Item{}, err
	}

	samples, err := r.samplesForItem(ctx, id)
	if err != nil {
		return models.Item{}, models.NewPersistenceError("ReadItemWithSamples", err)
	}
	item.Samples = samples
	return item, nil
}

func (r *TimelineRepository) samplesForItem(ctx context.Context, itemID string) ([]models.Sample, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+sampleColumns+` FROM samples WHERE timelineItemId = ? ORDER BY date ASC`, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to query samples: %w", err)
	}
	defer rows.Close()

	samples := []models.Sample{}
	for rows.Next() {
		s, err := scanSample(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sample: %w", err)
		}
		samples = append(samples, s)
	}
	return samples, rows.Err()
}

const sampleColumns = `id, date, latitude, longitude, horizontalAccuracy, speed, course, altitude, recordingState, classifiedActivityType, confirmedActivityType, timelineItemId, disabled`

func scanSample(row interface{ Scan(...interface{}) error }) (models.Sample, error) {
	var s models.Sample
	var lat, lon sql.NullFloat64
	var itemID sql.NullString
	var confirmed sql.NullString
	if err := row.Scan(&s.ID, &s.Date, &lat, &lon, &s.HorizontalAccuracy, &s.Speed, &s.Course, &s.Altitude,
		&s.RecordingState, &s.ClassifiedActivityType, &confirmed, &itemID, &s.Disabled); err != nil {
		return s, err
	}
	if lat.Valid && lon.Valid {
		s.Latitude = &lat.Float64
		s.Longitude = &lon.Float64
		point := spatial.Point{Lat: lat.Float64, Lon: lon.Float64}
		s.Coordinate = &point
	}
	if confirmed.Valid {
		s.ConfirmedActivityType = models.ActivityType(confirmed.String)
	}
	if itemID.Valid {
		s.TimelineItemID = itemID.String
	}
	return s, nil
}

// WriteItems upserts the base record plus type-specific detail for every
// item, inside the caller's transaction. Topology (previous/next) is
// written exactly as set on each item's Base — callers must have already
// resolved the splice before calling this.
func (r *TimelineRepository) WriteItems(ctx context.Context, tx *sql.Tx, items ...models.Item) error {
	for _, it := range items {
		isVisit := 0
		if it.Base.IsVisit {
			isVisit = 1
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO timelineItemBase (id, isVisit, startDate, endDate, source, previousItemId, nextItemId, disabled, deleted, samplesChanged)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				isVisit=excluded.isVisit, startDate=excluded.startDate, endDate=excluded.endDate,
				source=excluded.source, previousItemId=excluded.previousItemId, nextItemId=excluded.nextItemId,
				disabled=excluded.disabled, deleted=excluded.deleted, samplesChanged=excluded.samplesChanged
		`, it.Base.ID, isVisit, it.Base.StartDate, it.Base.EndDate, it.Base.Source,
			it.Base.PreviousItemID, it.Base.NextItemID, it.Base.Disabled, it.Base.Deleted, it.Base.SamplesChanged)
		if err != nil {
			return fmt.Errorf("failed to write item base %s: %w", it.Base.ID, err)
		}

		if it.Base.IsVisit && it.Visit != nil {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO timelineItemVisit (itemId, latitude, longitude, radius) VALUES (?, ?, ?, ?)
				ON CONFLICT(itemId) DO UPDATE SET latitude=excluded.latitude, longitude=excluded.longitude, radius=excluded.radius
			`, it.Base.ID, it.Visit.Latitude, it.Visit.Longitude, it.Visit.Radius)
			if err != nil {
				return fmt.Errorf("failed to write visit detail %s: %w", it.Base.ID, err)
			}
		}
		if !it.Base.IsVisit && it.Trip != nil {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO timelineItemTrip (itemId, distance, speed, classifiedActivityType, confirmedActivityType) VALUES (?, ?, ?, ?, ?)
				ON CONFLICT(itemId) DO UPDATE SET distance=excluded.distance, speed=excluded.speed,
					classifiedActivityType=excluded.classifiedActivityType, confirmedActivityType=excluded.confirmedActivityType
			`, it.Base.ID, it.Trip.Distance, it.Trip.Speed, string(it.Trip.ClassifiedActivityType), string(it.Trip.ConfirmedActivityType))
			if err != nil {
				return fmt.Errorf("failed to write trip detail %s: %w", it.Base.ID, err)
			}
		}
	}
	return nil
}

// MoveSamples reassigns the given samples to a new owning item, inside the
// caller's transaction. This is how the merge executor and edge cleansing
// steal samples across an item boundary.
func (r *TimelineRepository) MoveSamples(ctx context.Context, tx *sql.Tx, sampleIDs []string, newItemID string) error {
	if len(sampleIDs) == 0 {
		return nil
	}
	placeholders := make([]string, len(sampleIDs))
	args := make([]interface{}, 0, len(sampleIDs)+1)
	args = append(args, newItemID)
	for i, id := range sampleIDs {
		placeholders[i] = "?"
		args = append(args, id)
	}
	query := fmt.Sprintf(`UPDATE samples SET timelineItemId = ? WHERE id IN (%s)`, strings.Join(placeholders, ","))
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to move samples to %s: %w", newItemID, err)
	}
	return nil
}

// ItemsOverlapping returns every non-deleted item whose date range
// intersects interval, ordered by start date.
func (r *TimelineRepository) ItemsOverlapping(ctx context.Context, interval models.DateInterval) ([]models.Item, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+baseColumns+` FROM timelineItemBase
		WHERE deleted = 0 AND startDate < ? AND endDate > ?
		ORDER BY startDate ASC
	`, interval.End, interval.Start)
	if err != nil {
		return nil, models.NewPersistenceError("ItemsOverlapping", err)
	}
	defer rows.Close()

	var items []models.Item
	for rows.Next() {
		base, err := scanBase(rows)
		if err != nil {
			return nil, models.NewPersistenceError("ItemsOverlapping", err)
		}
		items = append(items, models.Item{Base: base})
	}
	if err := rows.Err(); err != nil {
		return nil, models.NewPersistenceError("ItemsOverlapping", err)
	}

	for i := range items {
		if err := r.loadDetails(ctx, &items[i]); err != nil {
			return nil, models.NewPersistenceError("ItemsOverlapping", err)
		}
	}
	return items, nil
}
