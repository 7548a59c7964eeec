package service

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
)

// StartRateScheduler refreshes the stored rate on the given cron spec.
// The returned cron must be stopped by the caller.
func (s *Service) StartRateScheduler(ctx context.Context, spec string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		runCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if _, err := s.RefreshRate(runCtx); err != nil {
			s.log.Errorf("Scheduled rate refresh failed: %v", err)
		}
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	s.log.Infof("Rate refresh scheduled: %s", spec)
	return c, nil
}
