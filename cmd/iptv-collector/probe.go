package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/plextuner/iptv-collector/internal/output"
	"github.com/plextuner/iptv-collector/internal/safeurl"
	"github.com/plextuner/iptv-collector/internal/speedtest"
	"github.com/plextuner/iptv-collector/internal/store"
)

func probeCmd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("probe", flag.ExitOnError)
	var g globalFlags
	g.register(fs)
	history := fs.Int("history", 0, "Also print the last N stored probes per URL (needs STORE_PATH)")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: probe [flags] URL...\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(args)
	urls := fs.Args()
	if len(urls) == 0 {
		fs.Usage()
		return errSilent
	}
	for _, u := range urls {
		if !safeurl.IsHTTPOrHTTPS(u) {
			return fmt.Errorf("probe %s: not an http(s) URL", u)
		}
	}

	cfg, err := g.load()
	if err != nil {
		return err
	}
	prober := speedtest.New(cfg.Probe())
	results := prober.ProbeAll(ctx, urls, nil)
	printProbes(os.Stdout, results, cfg.MinSpeedScore)

	if *history > 0 && cfg.StorePath != "" {
		st, err := store.Open(g.path(cfg.StorePath))
		if err != nil {
			return err
		}
		defer st.Close()
		for _, u := range urls {
			entries, err := st.History(ctx, u, *history)
			if err != nil {
				return err
			}
			printHistory(os.Stdout, u, entries, cfg.Location())
		}
	}
	return nil
}

func printProbes(w io.Writer, results []speedtest.Result, minScore float64) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RESULT\tSCORE\tSTATUS\tTIME\tPLAYLIST\tURL\tERROR")
	for _, r := range results {
		verdict := "ok"
		switch {
		case !r.Success:
			verdict = "fail"
		case r.Score < minScore:
			verdict = "slow"
		}
		fmt.Fprintf(tw, "%s\t%.2f\t%d\t%s\t%s\t%s\t%s\n",
			verdict, r.Score, r.Status, r.Total.Round(time.Millisecond), dash(r.Playlist), r.URL, dash(r.Err))
	}
	_ = tw.Flush()
}

func printHistory(w io.Writer, u string, entries []store.Entry, loc *time.Location) {
	fmt.Fprintf(w, "\nhistory %s\n", u)
	if len(entries) == 0 {
		fmt.Fprintln(w, "  (none)")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, e := range entries {
		fmt.Fprintf(tw, "  %s\t%t\t%.2f\t%s\n",
			e.ProbedAt.In(loc).Format(output.TimeLayout), e.Result.Success, e.Result.Score, dash(e.Result.Err))
	}
	_ = tw.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
