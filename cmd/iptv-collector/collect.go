package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/plextuner/iptv-collector/internal/collector"
	"github.com/plextuner/iptv-collector/internal/config"
	"github.com/plextuner/iptv-collector/internal/log"
	"github.com/plextuner/iptv-collector/internal/store"
)

func collectCmd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("collect", flag.ExitOnError)
	var g globalFlags
	g.register(fs)
	noSpeedTest := fs.Bool("no-speedtest", false, "Skip stream probing for this run (ENABLE_SPEED_TEST=false)")
	_ = fs.Parse(args)

	cfg, err := g.load()
	if err != nil {
		return err
	}
	if *noSpeedTest {
		cfg.EnableSpeedTest = false
	}
	rep, err := collect(ctx, &g, cfg)
	if rep != nil {
		printReport(os.Stdout, rep)
	}
	return err
}

// collect performs one run with the files named by cfg, resolved against -dir.
func collect(ctx context.Context, g *globalFlags, cfg config.Config) (*collector.Report, error) {
	logger := log.WithComponent("main")
	sources, warns, err := loadSources(g, cfg.SourcesFile)
	if err != nil {
		return nil, err
	}
	for _, w := range warns {
		logger.Warn().Int(log.FieldLine, w.Line).Str("value", w.Value).Msg(w.Reason)
	}
	rules, err := config.LoadRules(g.path(cfg.RulesFile))
	if err != nil {
		return nil, err
	}
	var st *store.Store
	if cfg.StorePath != "" {
		st, err = store.Open(g.path(cfg.StorePath))
		if err != nil {
			return nil, err
		}
		defer st.Close()
	}
	return collector.Run(ctx, collector.Options{
		Config:  cfg,
		Sources: sources,
		Rules:   rules,
		Dir:     g.dir,
		Store:   st,
	})
}

func loadSources(g *globalFlags, path string) ([]string, []config.Warning, error) {
	return config.LoadSources(g.path(path))
}

func printReport(w io.Writer, r *collector.Report) {
	fmt.Fprintf(w, "run %s finished in %s\n", r.RunID, r.Elapsed().Round(time.Millisecond))
	fmt.Fprintf(w, "  sources:   %d ok, %d failed of %d\n", r.SuccessSources, len(r.FailedSources), r.Sources)
	for _, u := range r.FailedSources {
		fmt.Fprintf(w, "    failed:  %s\n", u)
	}
	fmt.Fprintf(w, "  entries:   %d parsed (%d from whitelist), %d kept, %d blacklisted\n",
		r.OriginalEntries, r.WhitelistEntries, r.FilteredEntries, r.Blacklisted)
	fmt.Fprintf(w, "  probes:    %d live, %d cached, %d skipped, %d slow (%d newly blacklisted)\n",
		r.Probed, r.CachedProbes, r.SkippedProbes, r.SlowURLs, r.NewlyBlacklisted)
	fmt.Fprintf(w, "  channels:  %d\n", r.Channels)
	if len(r.Files) > 0 {
		fmt.Fprintf(w, "  files:     %s\n", strings.Join(r.Files, "\n             "))
	}
	for _, msg := range r.Warnings {
		fmt.Fprintf(w, "  warning:   %s\n", msg)
	}
}
