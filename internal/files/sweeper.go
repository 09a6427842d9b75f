package files

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type SweepRecorder interface {
	OrphansSwept(n int)
}

// Sweeper removes blobs that no file record points at. Blobs younger than grace
// are skipped so an upload whose record is not inserted yet is never taken.
type Sweeper struct {
	repo     Repository
	blobs    BlobStore
	grace    time.Duration
	recorder SweepRecorder
	log      *zap.Logger
	now      func() time.Time
}

func NewSweeper(repo Repository, blobs BlobStore, grace time.Duration, recorder SweepRecorder, log *zap.Logger) *Sweeper {
	return &Sweeper{
		repo:     repo,
		blobs:    blobs,
		grace:    grace,
		recorder: recorder,
		log:      log,
		now:      time.Now,
	}
}

func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.grace)
	removed := 0

	err := s.blobs.Walk(ctx, func(b BlobInfo) error {
		if b.ModTime.After(cutoff) {
			return nil
		}
		referenced, err := s.repo.PathExists(ctx, b.Path)
		if err != nil {
			return err
		}
		if referenced {
			return nil
		}
		if err := s.blobs.Remove(ctx, b.Path); err != nil {
			s.log.Warn("could not remove orphaned blob", zap.String("path", b.Path), zap.Error(err))
			return nil
		}
		removed++
		return nil
	})

	if removed > 0 && s.recorder != nil {
		s.recorder.OrphansSwept(removed)
	}
	if err != nil {
		return removed, fmt.Errorf("sweep blobs: %w", err)
	}
	return removed, nil
}

// Start schedules Sweep on a cron spec such as "@every 1h". Stop the returned
// cron to end the schedule.
func (s *Sweeper) Start(ctx context.Context, schedule string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		removed, err := s.Sweep(ctx)
		if err != nil {
			s.log.Error("Error sweeping orphaned blobs", zap.Error(err))
			return
		}
		s.log.Info("Orphaned blobs swept", zap.Int("removed", removed))
	})
	if err != nil {
		return nil, fmt.Errorf("schedule sweeper: %w", err)
	}
	c.Start()
	return c, nil
}
