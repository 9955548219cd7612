// Package jobs provides scheduled background tasks for the dispatch service.
//
// Jobs are built on github.com/robfig/cron/v3 with seconds-resolution specs.
// A pass that is still running when the next tick fires is skipped.
//
// # Available Jobs
//
//  1. PendingAssignmentJob - retries automatic assignment of deliveries still awaiting a driver
//  2. OverdueJob - logs moving deliveries past their estimated completion
//
// # Usage
//
//	jobManager := jobs.NewJobManager(service, service, jobs.Schedules{}, logger)
//	if err := jobManager.StartAll(); err != nil {
//		return err
//	}
//	defer jobManager.StopAll()
//
// # Error Handling
//
// Failures are logged and the next tick tries again. Failed job starts stop
// any already running jobs.
package jobs
