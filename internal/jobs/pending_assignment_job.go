package jobs

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// DefaultPendingAssignmentSpec retries pending deliveries every 15 seconds.
const DefaultPendingAssignmentSpec = "*/15 * * * * *"

// PendingAssigner retries automatic assignment of deliveries still awaiting a driver.
type PendingAssigner interface {
	ProcessPendingAssignments(ctx context.Context) (int, error)
}

// PendingAssignmentJob periodically retries automatic assignment for
// deliveries that found no driver when they were created.
type PendingAssignmentJob struct {
	assigner PendingAssigner
	spec     string
	cron     *cron.Cron
	logger   zerolog.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewPendingAssignmentJob schedules assigner with a seconds-resolution cron spec.
func NewPendingAssignmentJob(assigner PendingAssigner, spec string, logger zerolog.Logger) *PendingAssignmentJob {
	if spec == "" {
		spec = DefaultPendingAssignmentSpec
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &PendingAssignmentJob{
		assigner: assigner,
		spec:     spec,
		cron:     newCron(),
		logger:   logger.With().Str("component", "pending_assignment_job").Logger(),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (j *PendingAssignmentJob) Start() error {
	if _, err := j.cron.AddFunc(j.spec, func() { j.Run(j.ctx) }); err != nil {
		return err
	}

	j.cron.Start()
	j.logger.Info().Str("spec", j.spec).Msg("pending assignment job started")
	return nil
}

// Run performs one pass.
func (j *PendingAssignmentJob) Run(ctx context.Context) {
	assigned, err := j.assigner.ProcessPendingAssignments(ctx)
	if err != nil {
		j.logger.Error().Err(err).Msg("pending assignment job failed")
		return
	}
	if assigned > 0 {
		j.logger.Info().Int("assigned", assigned).Msg("pending deliveries assigned")
	}
}

// Stop waits for a running pass to finish.
func (j *PendingAssignmentJob) Stop() {
	j.cancel()
	<-j.cron.Stop().Done()
	j.logger.Info().Msg("pending assignment job stopped")
}

func newCron() *cron.Cron {
	return cron.New(
		cron.WithSeconds(),
		cron.WithChain(cron.Recover(cron.DiscardLogger), cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
}
