package backup

import (
	"context"
	"log"
	"time"

	"github.com/camden-git/photoframebackend/schedule"
)

// fireGraceMinutes is how long past the scheduled time a missed run may
// still start. A restart or stalled tick spanning the scheduled minute must
// not skip the whole day.
const fireGraceMinutes = 60

// Scheduler fires one backup per day at the configured wall-clock time. It
// polls rather than arming a timer so config edits take effect on the next
// tick without a restart.
type Scheduler struct {
	Orchestrator *Orchestrator
	Clock        schedule.Clock
	// Interval defaults to 30 seconds.
	Interval time.Duration

	lastFired string // date of the last fire, "2006-01-02"
	cancel    context.CancelFunc
	done      chan struct{}
}

// Start launches the polling loop.
func (s *Scheduler) Start(ctx context.Context) {
	if s.Interval <= 0 {
		s.Interval = 30 * time.Second
	}
	if s.Clock == nil {
		s.Clock = schedule.SystemClock{}
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.loop(ctx)
	log.Printf("backup: scheduler started (interval %s)", s.Interval)
}

// Stop terminates the polling loop and waits for it to exit.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
	log.Printf("backup: scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick checks whether the scheduled time has arrived (or was missed within
// the grace window) and runs the backup if it has not already fired today.
// Exported so tests can drive the scheduler without the timer.
func (s *Scheduler) Tick(ctx context.Context) {
	cfg, err := s.Orchestrator.Config()
	if err != nil {
		log.Printf("backup: scheduler cannot read config: %v", err)
		return
	}
	if !cfg.Enabled {
		return
	}

	target, err := schedule.ParseClock(cfg.ScheduleTime)
	if err != nil {
		log.Printf("backup: invalid schedule time %q: %v", cfg.ScheduleTime, err)
		return
	}

	now := s.Clock.Now()
	today := now.Format("2006-01-02")
	if s.lastFired == today {
		return
	}
	minutes := now.Hour()*60 + now.Minute()
	if minutes < target || minutes >= target+fireGraceMinutes {
		return
	}

	s.lastFired = today
	log.Printf("backup: scheduled run starting")
	if _, err := s.Orchestrator.Run(ctx); err != nil {
		log.Printf("backup: scheduled run failed: %v", err)
	}
}
