package app

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"chess-moves/api/internal/obslog"
)

type Purger interface {
	PurgeOlderThan(ctx context.Context, olderThan time.Duration) (int64, error)
}

// PurgeScheduler periodically deletes history rows older than the retention window.
type PurgeScheduler struct {
	c         *cron.Cron
	purger    Purger
	retention time.Duration
}

// NewPurgeScheduler accepts standard 5-field specs and descriptors such as @daily.
func NewPurgeScheduler(spec string, retention time.Duration, p Purger) (*PurgeScheduler, error) {
	if retention <= 0 {
		return nil, fmt.Errorf("history retention must be > 0, got %s", retention)
	}
	s := &PurgeScheduler{c: cron.New(), purger: p, retention: retention}
	if _, err := s.c.AddFunc(spec, s.RunOnce); err != nil {
		return nil, fmt.Errorf("purge schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *PurgeScheduler) Start() {
	s.c.Start()
	obslog.L().Info("history purge scheduled", zap.Duration("retention", s.retention))
}

// Stop waits for a running purge to finish.
func (s *PurgeScheduler) Stop() {
	<-s.c.Stop().Done()
}

func (s *PurgeScheduler) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	n, err := s.purger.PurgeOlderThan(ctx, s.retention)
	if err != nil {
		obslog.L().Error("history purge failed", zap.Error(err))
		return
	}
	obslog.L().Info("history purged", zap.Int64("rows", n))
}
