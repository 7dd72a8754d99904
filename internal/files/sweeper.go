package files

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DefaultSweepInterval is the default tick of the background sweeper.
const DefaultSweepInterval = 5 * time.Minute

// RunSweeper sweeps expired files and orphaned blobs on every tick until ctx
// is cancelled.
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("Sweeper started", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Sweeper stopped")
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *Service) tick() {
	deleted, err := s.Sweep()
	if err != nil {
		s.logger.Error("Automatic cleanup failed", zap.Error(err))
	} else if deleted > 0 {
		s.logger.Info("Cleaned up expired files", zap.Int("deleted", deleted))
	}

	orphans, err := s.CollectOrphans()
	if err != nil {
		s.logger.Error("Orphan collection failed", zap.Error(err))
	} else if orphans > 0 {
		s.logger.Info("Removed orphaned blobs", zap.Int("removed", orphans))
	}
}
