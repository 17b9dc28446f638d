/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package cronschedule implements C7: one-shot execution, or a cron-driven
// loop that validates its schedule up front, fires in a configured IANA
// zone, coalesces overlapping firings, and shuts down cleanly on signal.
package cronschedule

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/postpwn/postpwn/internal/logging"
)

// Run is one planner invocation. A Run handles (logs) its own errors;
// nothing is returned up through the scheduler - a failed cron firing must
// not stop the scheduler (spec.md §7).
type Run func(ctx context.Context)

// ValidateExpression checks a five-field cron expression (minute, hour,
// day-of-month, month, day-of-week) without registering anything.
func ValidateExpression(expr string) error {
	_, err := cron.ParseStandard(expr)
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return nil
}

// RunOnce executes run synchronously and returns. This is the one-shot
// mode (spec.md §4.7).
func RunOnce(ctx context.Context, run Run) {
	run(ctx)
}

// RunCron validates expr, registers a single recurring trigger in zone, and
// blocks until ctx is canceled or a terminal signal arrives. Only one
// planner run may be active at a time; a firing that lands while a run is
// still active is coalesced (skipped), not queued.
func RunCron(ctx context.Context, expr string, zone string, run Run) error {
	if err := ValidateExpression(expr); err != nil {
		return err
	}

	loc, err := time.LoadLocation(zone)
	if err != nil {
		return fmt.Errorf("invalid time zone %q: %w", zone, err)
	}

	log := logging.FromContext(ctx)

	c := cron.New(cron.WithLocation(loc))

	var active atomic.Bool
	_, err = c.AddFunc(expr, func() {
		if !active.CompareAndSwap(false, true) {
			log.Infow("skipping firing, previous run still active", "schedule", expr)
			return
		}
		defer active.Store(false)
		run(ctx)
	})
	if err != nil {
		return fmt.Errorf("registering cron trigger: %w", err)
	}

	log.Infow("starting scheduler", "schedule", expr, "time_zone", zone)
	c.Start()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case <-sigCh:
		log.Infow("received shutdown signal")
	case <-ctx.Done():
		log.Infow("context canceled")
	}

	stopCtx := c.Stop()
	<-stopCtx.Done()
	log.Infow("scheduler stopped")

	return nil
}
