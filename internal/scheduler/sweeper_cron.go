package cron

import (
	"context"
	"time"

	"github.com/ecoleta/ecoleta-api/internal/jobs"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// StartSweeperCron schedules the expiration sweep. The schedule spec comes
// from configuration (hourly by default).
func StartSweeperCron(sweeper *jobs.ExpirationSweeper, spec string) {
	c := cron.New()

	_, err := c.AddFunc(spec, func() {
		if _, err := sweeper.Sweep(context.Background(), time.Now()); err != nil {
			logrus.WithError(err).Error("Scheduled expiration sweep failed")
		}
	})
	if err != nil {
		logrus.WithError(err).WithField("spec", spec).Error("Invalid sweep schedule, sweeper not started")
		return
	}

	c.Start()
}
