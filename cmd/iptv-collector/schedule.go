package main

import (
	"context"
	"flag"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/plextuner/iptv-collector/internal/config"
	"github.com/plextuner/iptv-collector/internal/log"
)

func scheduleCmd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("schedule", flag.ExitOnError)
	var g globalFlags
	g.register(fs)
	spec := fs.String("spec", "", "Cron spec with seconds, or a descriptor like @hourly (default: SCHEDULE)")
	now := fs.Bool("now", false, "Also run once at startup")
	_ = fs.Parse(args)

	cfg, err := g.load()
	if err != nil {
		return err
	}
	if *spec == "" {
		*spec = cfg.Schedule
	}
	sched, err := config.CronParser.Parse(*spec)
	if err != nil {
		return fmt.Errorf("schedule %q: %w", *spec, err)
	}

	logger := log.WithComponent("schedule")
	cl := cronLogger{logger}
	c := cron.New(
		cron.WithParser(config.CronParser),
		cron.WithLocation(cfg.Location()),
		cron.WithLogger(cl),
	)
	// one wrapped job serves both the schedule and -now, so they never overlap
	job := cron.NewChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)).Then(cron.FuncJob(func() {
		runScheduled(ctx, &g, logger)
	}))
	c.Schedule(sched, job)
	c.Start()
	logger.Info().
		Str("spec", *spec).
		Time("next", sched.Next(time.Now().In(cfg.Location()))).
		Msg("scheduler started")

	var wg sync.WaitGroup
	if *now {
		wg.Add(1)
		go func() {
			defer wg.Done()
			job.Run()
		}()
	}
	<-ctx.Done()
	logger.Info().Msg("stopping scheduler, waiting for a running collection")
	<-c.Stop().Done()
	wg.Wait()
	return nil
}

// runScheduled reloads the configuration so edits apply to the next run, then
// collects once. Failures are logged; the scheduler keeps going.
func runScheduled(ctx context.Context, g *globalFlags, logger zerolog.Logger) {
	if ctx.Err() != nil {
		return
	}
	cfg, err := g.loadConfig()
	if err != nil {
		logger.Error().Err(err).Msg("load config")
		return
	}
	rep, err := collect(ctx, g, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("scheduled collection failed")
		return
	}
	logger.Info().
		Str(log.FieldRunID, rep.RunID).
		Int(log.FieldChannels, rep.Channels).
		Dur("elapsed", rep.Elapsed()).
		Msg("scheduled collection finished")
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct{ l zerolog.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug().Fields(keysAndValues).Msg(msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
