// Command iptv-collector aggregates IPTV M3U playlists into merged, categorized,
// speed-ranked playlists.
//
//	collect   One run: fetch sources, probe streams, update the blacklist, write outputs
//	schedule  Run collect on a cron schedule until interrupted
//	probe     Probe stream URLs and print their scores
//	check     Check that every source playlist answers
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/plextuner/iptv-collector/internal/config"
	"github.com/plextuner/iptv-collector/internal/log"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	dir       string
	config    string
	logLevel  string
	logFormat string
}

func (g *globalFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&g.dir, "dir", ".", "Working directory for config, lists and outputs")
	fs.StringVar(&g.config, "config", "", "Config file (default: <dir>/config.txt)")
	fs.StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn, error (default: LOG_LEVEL or info)")
	fs.StringVar(&g.logFormat, "log-format", "console", "Log format: console or json")
}

func (g *globalFlags) configPath() string {
	if g.config != "" {
		return g.config
	}
	return filepath.Join(g.dir, "config.txt")
}

// path anchors a relative config path at -dir.
func (g *globalFlags) path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(g.dir, p)
}

// load sets up logging and reads the configuration.
func (g *globalFlags) load() (config.Config, error) {
	log.Reconfigure(log.Config{Level: g.logLevel, Format: g.logFormat})
	return g.loadConfig()
}

// loadConfig reads .env, the config file and IPTV_COLLECTOR_* overrides,
// logging every warning.
func (g *globalFlags) loadConfig() (config.Config, error) {
	logger := log.WithComponent("config")
	if err := config.LoadEnvFile(filepath.Join(g.dir, ".env")); err != nil {
		logger.Warn().Err(err).Msg("load .env")
	}
	cfg, warns, err := config.Load(g.configPath())
	if err != nil {
		return cfg, err
	}
	warns = append(warns, config.ApplyEnv(&cfg)...)
	for _, w := range warns {
		logger.Warn().
			Int(log.FieldLine, w.Line).
			Str(log.FieldKey, w.Key).
			Str("value", w.Value).
			Msg(w.Reason)
	}
	return cfg, nil
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <collect|schedule|probe|check> [flags]\n", filepath.Base(os.Args[0]))
	fmt.Fprintf(os.Stderr, "  collect   One run: fetch, probe, filter, merge, write playlists\n")
	fmt.Fprintf(os.Stderr, "  schedule  Run collect on the SCHEDULE cron spec until SIGINT/SIGTERM\n")
	fmt.Fprintf(os.Stderr, "  probe     Probe the given stream URLs and print scores\n")
	fmt.Fprintf(os.Stderr, "  check     Check every source in the sources file\n")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "collect":
		err = collectCmd(ctx, os.Args[2:])
	case "schedule":
		err = scheduleCmd(ctx, os.Args[2:])
	case "probe":
		err = probeCmd(ctx, os.Args[2:])
	case "check":
		err = checkCmd(ctx, os.Args[2:])
	case "-h", "-help", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n", os.Args[1])
		usage()
		os.Exit(2)
	}
	if err != nil {
		if !errors.Is(err, errSilent) {
			l := log.Base()
			l.Error().Err(err).Msg(os.Args[1] + " failed")
		}
		stop()
		os.Exit(1)
	}
}

// errSilent signals a failure that was already reported.
var errSilent = errors.New("failed")
