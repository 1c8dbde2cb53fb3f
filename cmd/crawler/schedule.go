package main

import (
	"fmt"

	"github.com/robfig/cron/v3"
)

// newScheduler registers run on spec and returns the guarded job as well, so
// the caller can trigger an immediate run through the same guard. A tick that
// fires while a run is still in progress is skipped.
func newScheduler(spec string, run func()) (*cron.Cron, cron.Job, error) {
	c := cron.New(
		cron.WithLogger(cron.DefaultLogger),
		cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
	)
	id, err := c.AddFunc(spec, run)
	if err != nil {
		return nil, nil, fmt.Errorf("add schedule %q: %w", spec, err)
	}
	return c, c.Entry(id).WrappedJob, nil
}
