package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/plextuner/iptv-collector/internal/health"
	"github.com/plextuner/iptv-collector/internal/httpclient"
	"github.com/plextuner/iptv-collector/internal/log"
)

func checkCmd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	var g globalFlags
	g.register(fs)
	_ = fs.Parse(args)

	cfg, err := g.load()
	if err != nil {
		return err
	}
	sources, warns, err := loadSources(&g, cfg.SourcesFile)
	if err != nil {
		return err
	}
	logger := log.WithComponent("main")
	for _, w := range warns {
		logger.Warn().Int(log.FieldLine, w.Line).Str("value", w.Value).Msg(w.Reason)
	}
	client := httpclient.WithTimeout(cfg.FetchTimeout)
	statuses := health.CheckSources(ctx, client, sources, cfg.FetchConcurrency)
	if failed := printStatuses(os.Stdout, statuses); failed > 0 {
		fmt.Fprintf(os.Stdout, "%d of %d sources failed\n", failed, len(statuses))
		return errSilent
	}
	return nil
}

func printStatuses(w io.Writer, statuses []health.Status) (failed int) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, st := range statuses {
		verdict, detail := "OK", ""
		if !st.OK() {
			verdict, detail = "FAIL", st.Err.Error()
			failed++
		} else if !st.Playlist {
			detail = "answered, but does not look like a playlist"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", verdict, st.Elapsed.Round(time.Millisecond), st.URL, detail)
	}
	_ = tw.Flush()
	return failed
}
