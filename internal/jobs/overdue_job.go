package jobs

import (
	"context"
	"time"

	"dispatch/internal/core/domain/model/delivery"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const DefaultOverdueSpec = "0 * * * * *"

// OverdueFinder lists moving deliveries past their estimate.
type OverdueFinder interface {
	OverdueDeliveries(ctx context.Context, now time.Time) ([]*delivery.Delivery, error)
}

// OverdueJob logs deliveries that are running late. The service updates the
// overdue gauge on every sweep.
type OverdueJob struct {
	finder OverdueFinder
	spec   string
	now    func() time.Time
	cron   *cron.Cron
	logger zerolog.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func NewOverdueJob(finder OverdueFinder, spec string, logger zerolog.Logger) *OverdueJob {
	if spec == "" {
		spec = DefaultOverdueSpec
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &OverdueJob{
		finder: finder,
		spec:   spec,
		now:    time.Now,
		cron:   newCron(),
		logger: logger.With().Str("component", "overdue_job").Logger(),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (j *OverdueJob) Start() error {
	if _, err := j.cron.AddFunc(j.spec, func() { j.Run(j.ctx) }); err != nil {
		return err
	}

	j.cron.Start()
	j.logger.Info().Str("spec", j.spec).Msg("overdue job started")
	return nil
}

// Run performs one sweep and returns the number of overdue deliveries found.
func (j *OverdueJob) Run(ctx context.Context) int {
	now := j.now()
	overdue, err := j.finder.OverdueDeliveries(ctx, now)
	if err != nil {
		j.logger.Error().Err(err).Msg("overdue sweep failed")
		return 0
	}

	for _, d := range overdue {
		ev := j.logger.Warn().
			Str("delivery_id", d.ID().String()).
			Str("order_id", d.OrderID()).
			Str("status", d.Status().String()).
			Dur("late_by", now.Sub(d.EstimatedCompletionAt()))
		if id := d.DriverID(); id != nil {
			ev = ev.Str("driver_id", id.String())
		}
		ev.Msg("delivery overdue")
	}
	return len(overdue)
}

func (j *OverdueJob) Stop() {
	j.cancel()
	<-j.cron.Stop().Done()
	j.logger.Info().Msg("overdue job stopped")
}
