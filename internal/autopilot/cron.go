package autopilot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// NextAutostart returns the first fire time of expr after now.
func NextAutostart(expr string, now time.Time) (time.Time, error) {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("autopilot: parse schedule %q: %w", expr, err)
	}
	return sched.Next(now), nil
}

// RunAutostart starts a session with the configured defaults every time expr
// fires while the engine is idle. It blocks until ctx is done.
func (e *Engine) RunAutostart(ctx context.Context, expr string) error {
	c := cron.New(cron.WithParser(cronParser))
	_, err := c.AddFunc(expr, func() {
		err := e.Start(StartRequest{})
		switch {
		case err == nil:
			log.Printf("autopilot: autostart fired")
		case errors.Is(err, ErrAlreadyRunning):
		default:
			log.Printf("autopilot: autostart: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("autopilot: parse schedule %q: %w", expr, err)
	}
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}
