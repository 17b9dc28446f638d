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

// Command postpwn optimally reschedules your tasks according to your
// filters and rules (C9: configuration & entrypoint).
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/postpwn/postpwn/internal/config"
	"github.com/postpwn/postpwn/internal/cronschedule"
	"github.com/postpwn/postpwn/internal/logging"
	"github.com/postpwn/postpwn/internal/metrics"
	"github.com/postpwn/postpwn/internal/reschedule"
	"github.com/postpwn/postpwn/internal/retry"
	"github.com/postpwn/postpwn/internal/rules"
	"github.com/postpwn/postpwn/internal/todoist"
)

func main() {
	// Loaded before flag parsing, matching original_source's load_dotenv()
	// call at import time. A missing .env is not an error.
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts config.Options

	cmd := &cobra.Command{
		Use:   "postpwn",
		Short: "Optimally reschedules your tasks according to your filters and rules.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.Filter, "filter", config.DefaultFilter, "Filter query to select tasks to reschedule.")
	flags.StringVar(&opts.RulesPath, "rules", "", "Path to JSON file containing rules for rescheduling.")
	flags.BoolVar(&opts.DryRun, "dry-run", false, "Simulate rescheduling without making changes.")
	flags.StringVar(&opts.Token, "token", os.Getenv(config.EnvToken), "API token for the remote service. Fetched from "+config.EnvToken+".")
	flags.StringVar(&opts.TimeZone, "time-zone", config.DefaultTimeZone, "Time zone identifier for rescheduling.")
	flags.StringVar(&opts.Schedule, "schedule", "", "Cron schedule for rescheduling to run on a cadence.")
	flags.StringVar(&opts.MetricsAddr, "metrics-addr", os.Getenv(config.EnvMetricsAddr), "Address to serve Prometheus metrics on in cron mode. Empty disables it.")
	flags.BoolVar(&opts.Debug, "debug", false, "Enable verbose debug logging.")

	return cmd
}

func run(ctx context.Context, rawOpts config.Options) error {
	opts, err := config.WithDefaults(rawOpts)
	if err != nil {
		return fmt.Errorf("assembling configuration: %w", err)
	}

	zapLog, err := logging.NewZap(opts.Debug)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer zapLog.Sync() //nolint:errcheck
	ctx = logging.NewContext(ctx, zapLog.Sugar())
	log := logging.FromContext(ctx)

	cfg, err := rules.Load(ctx, opts.RulesPath)
	if err != nil {
		return fmt.Errorf("loading rules: %w", err)
	}

	api := todoist.NewClient(opts.Token)
	retrier := retry.New()

	runOnce := func(ctx context.Context) error {
		return reschedule.Run(ctx, api, api, retrier, reschedule.Params{
			Filter:   opts.Filter,
			Rules:    cfg,
			TimeZone: opts.TimeZone,
			DryRun:   opts.DryRun,
		})
	}

	if opts.Schedule == "" {
		return runFatalOnce(ctx, log, runOnce)
	}

	if opts.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		metrics.Register(reg)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: opts.MetricsAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Errorw("metrics server stopped", "err", err)
			}
		}()
		defer srv.Close() //nolint:errcheck
	}

	return cronschedule.RunCron(ctx, opts.Schedule, opts.TimeZone, logAndContinue(log, runOnce))
}

// runFatalOnce executes fn exactly once and surfaces its error to the
// caller: one-shot mode's "a fatal error terminates the process"
// (spec.md §7), unlike a cron firing which only logs.
func runFatalOnce(ctx context.Context, log *zap.SugaredLogger, fn func(ctx context.Context) error) error {
	var runErr error
	cronschedule.RunOnce(ctx, func(ctx context.Context) {
		runErr = fn(ctx)
		if runErr != nil {
			log.Errorw("run failed", "err", runErr)
		}
	})
	return runErr
}

// logAndContinue adapts fn to cronschedule.Run's error-less signature: a
// firing that fails is logged but never stops the scheduler (spec.md §7).
func logAndContinue(log *zap.SugaredLogger, fn func(ctx context.Context) error) cronschedule.Run {
	return func(ctx context.Context) {
		if err := fn(ctx); err != nil {
			log.Errorw("run failed", "err", err)
		}
	}
}
