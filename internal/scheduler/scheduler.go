package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/liondevhq/weather-tomorrow/internal/logger"
	"github.com/liondevhq/weather-tomorrow/internal/weather"
)

// Refresher runs the forecast pipeline for every tracked city.
type Refresher interface {
	Refresh(ctx context.Context) (weather.RunResult, error)
}

// Scheduler periodically refreshes forecasts for the tracked cities.
type Scheduler struct {
	scheduler *gocron.Scheduler
	refresher Refresher
	interval  time.Duration
	timeout   time.Duration
}

// New creates a new Scheduler. Each run is bounded by timeout.
func New(interval, timeout time.Duration, refresher Refresher) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		refresher: refresher,
		interval:  interval,
		timeout:   timeout,
	}
}

// Start schedules the periodic job and starts the underlying scheduler. The
// first run happens immediately.
func (s *Scheduler) Start() error {
	interval := s.interval
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	_, err := s.scheduler.Every(interval).Do(s.runOnce)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

func (s *Scheduler) runOnce() {
	logger.Infof("scheduler: running forecast refresh")

	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	run, err := s.refresher.Refresh(ctx)
	if err != nil {
		logger.Errorf("scheduler: refresh failed: %v", err)
		return
	}
	logger.Infof("scheduler: refresh %s completed, %d of %d cities unavailable", run.ID, run.Failed(), len(run.Results))
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
