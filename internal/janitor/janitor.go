package janitor

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/nordveil/site-api/internal/metrics"
)

const timeoutDuration = 30 * time.Second

type subscriberPurger interface {
	PurgeExpiredPending(ctx context.Context, cutoff time.Time) (int64, error)
}

// Janitor periodically removes pending subscribers whose confirmation token
// has expired. Confirmed rows are never touched.
type Janitor struct {
	repo   subscriberPurger
	log    *zap.Logger
	cron   *cron.Cron
	cancel context.CancelFunc
	spec   string
	maxAge time.Duration
	m      *metrics.Metrics
}

func New(
	repo subscriberPurger,
	log *zap.Logger,
	spec string,
	maxAge time.Duration,
	m *metrics.Metrics,
) *Janitor {
	return &Janitor{
		repo:   repo,
		log:    log.With(zap.String("component", "Janitor")),
		cron:   cron.New(),
		spec:   spec,
		maxAge: maxAge,
		m:      m,
	}
}

// Start schedules the purge job.
func (j *Janitor) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	j.cancel = cancel

	if _, err := j.cron.AddFunc(j.spec, func() { j.Run(ctx) }); err != nil {
		j.log.Error("failed to schedule janitor job", zap.Error(err))
		return
	}

	j.cron.Start()
	j.log.Info("janitor started", zap.String("schedule", j.spec))
}

// Stop cancels the schedule and waits for a running job to finish.
func (j *Janitor) Stop() {
	if j.cancel != nil {
		j.cancel()
	}
	stopCtx := j.cron.Stop()
	<-stopCtx.Done()
	j.log.Info("janitor stopped")
}

// Run purges pending rows older than the token lifetime.
func (j *Janitor) Run(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, timeoutDuration)
	defer cancel()

	j.m.JanitorRuns.Inc()

	cutoff := time.Now().Add(-j.maxAge)
	count, err := j.repo.PurgeExpiredPending(ctx, cutoff)
	if err != nil {
		j.log.Error("janitor purge failed", zap.Error(err))
		return
	}
	j.m.JanitorPurged.Add(float64(count))
	j.log.Info("janitor run complete", zap.Int64("purged", count))
}
