package jobs

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Schedules holds the cron specs of the scheduled jobs. Empty specs fall back
// to the job defaults.
type Schedules struct {
	PendingAssignment string
	Overdue           string
}

// JobManager coordinates all scheduled jobs in the application.
type JobManager struct {
	pendingAssignmentJob *PendingAssignmentJob
	overdueJob           *OverdueJob
}

func NewJobManager(
	assigner PendingAssigner,
	finder OverdueFinder,
	schedules Schedules,
	logger zerolog.Logger,
) *JobManager {
	return &JobManager{
		pendingAssignmentJob: NewPendingAssignmentJob(assigner, schedules.PendingAssignment, logger),
		overdueJob:           NewOverdueJob(finder, schedules.Overdue, logger),
	}
}

// StartAll starts all scheduled jobs.
// Returns an error if any job fails to start.
func (jm *JobManager) StartAll() error {
	if err := jm.pendingAssignmentJob.Start(); err != nil {
		return fmt.Errorf("failed to start pending assignment job: %w", err)
	}

	if err := jm.overdueJob.Start(); err != nil {
		// Stop already started jobs if this one fails
		jm.pendingAssignmentJob.Stop()
		return fmt.Errorf("failed to start overdue job: %w", err)
	}

	return nil
}

// StopAll stops all scheduled jobs gracefully.
func (jm *JobManager) StopAll() {
	jm.overdueJob.Stop()
	jm.pendingAssignmentJob.Stop()
}
