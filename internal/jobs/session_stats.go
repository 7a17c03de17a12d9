package jobs

import (
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"

	"solace/internal/session"
)

// StatsReporter periodically logs session store occupancy. It is the
// operational heartbeat for long-running deployments where the metrics
// endpoint is not scraped.
type StatsReporter struct {
	scheduler gocron.Scheduler
	store     *session.Store
	interval  time.Duration
}

// NewStatsReporter creates the stats job. interval <= 0 disables it.
func NewStatsReporter(store *session.Store, interval time.Duration) (*StatsReporter, error) {
	if interval <= 0 {
		return &StatsReporter{store: store}, nil
	}

	scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	r := &StatsReporter{
		scheduler: scheduler,
		store:     store,
		interval:  interval,
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(r.report),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register stats job: %w", err)
	}
	return r, nil
}

// Start starts the reporting schedule.
func (r *StatsReporter) Start() {
	if r.scheduler == nil {
		log.Println("⚠️  [STATS] Stats reporting disabled")
		return
	}
	r.scheduler.Start()
	log.Printf("⏰ [STATS] Reporting session stats every %v", r.interval)
}

// Stop shuts the scheduler down.
func (r *StatsReporter) Stop() {
	if r.scheduler == nil {
		return
	}
	if err := r.scheduler.Shutdown(); err != nil {
		log.Printf("⚠️  [STATS] Scheduler shutdown failed: %v", err)
	}
}

func (r *StatsReporter) report() {
	log.Printf("📊 [STATS] Live sessions: %d", r.store.Count())
}
