package service

import (
	"context"

	"github.com/jengzang/timeline-core/internal/models"
	"github.com/jengzang/timeline-core/internal/repository"
	"github.com/jengzang/timeline-core/internal/timeline"
)

// TimelineService handles business logic for reconstructed timeline
// items.
type TimelineService struct {
	repo      *repository.TimelineRepository
	processor *timeline.Processor
}

// NewTimelineService creates a new timeline service.
func NewTimelineService(repo *repository.TimelineRepository, processor *timeline.Processor) *TimelineService {
	return &TimelineService{repo: repo, processor: processor}
}

// GetItemsInRange retrieves every non-deleted item overlapping interval.
func (s *TimelineService) GetItemsInRange(ctx context.Context, interval models.DateInterval) ([]models.Item, error) {
	return s.repo.ItemsOverlapping(ctx, interval)
}

// Reprocess triggers the processor for the given seed item.
func (s *TimelineService) Reprocess(ctx context.Context, seedItemID string) error {
	return s.processor.ProcessFrom(ctx, seedItemID)
}
