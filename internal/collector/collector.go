// Package collector runs one end-to-end collection: fetch the source playlists,
// probe the streams, update the blacklist, filter, merge and render.
package collector

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/plextuner/iptv-collector/internal/catalog"
	"github.com/plextuner/iptv-collector/internal/category"
	"github.com/plextuner/iptv-collector/internal/config"
	"github.com/plextuner/iptv-collector/internal/filter"
	"github.com/plextuner/iptv-collector/internal/indexer"
	"github.com/plextuner/iptv-collector/internal/log"
	"github.com/plextuner/iptv-collector/internal/metrics"
	"github.com/plextuner/iptv-collector/internal/output"
	"github.com/plextuner/iptv-collector/internal/speedtest"
	"github.com/plextuner/iptv-collector/internal/store"
)

var (
	// ErrNoSources means the sources file listed nothing to fetch.
	ErrNoSources = errors.New("no sources configured")
	// ErrAllSourcesFailed means not one source playlist could be fetched.
	ErrAllSourcesFailed = errors.New("every source failed")
	// ErrAllFiltered means the filter removed every entry.
	ErrAllFiltered = errors.New("every entry was filtered out")
)

const (
	defaultBlacklistReason = "评分过低或连接失败"
	lowScoreReason         = "评分过低"
	historyRetention       = 30 * 24 * time.Hour
	progressEvery          = 5
)

// Options is everything one run needs besides the network.
type Options struct {
	Config  config.Config
	Sources []string
	Rules   []category.Rule
	// Dir anchors the relative file paths in Config. Empty means the working directory.
	Dir string
	// Store keeps probe history and serves fresh results. Nil disables both.
	Store *store.Store
	// Prober overrides the one built from Config.
	Prober *speedtest.Prober
	// Fetch overrides Config.Fetch() when its Client is set.
	Fetch indexer.Options
	Now   func() time.Time
}

// Report summarizes a run, successful or not.
type Report struct {
	RunID    string
	Started  time.Time
	Finished time.Time

	Sources        int
	SuccessSources int
	FailedSources  []string

	OriginalEntries  int
	WhitelistEntries int // entries added from the whitelist, included in OriginalEntries
	UniqueURLs       int
	SkippedProbes    int // blacklisted URLs not probed
	Probed           int
	CachedProbes     int
	SlowURLs         int
	NewlyBlacklisted int

	FilteredEntries int
	Blacklisted     int
	Whitelisted     int
	Channels        int
	Files           []string

	Warnings []string
}

// Elapsed is the wall time of the run.
func (r *Report) Elapsed() time.Duration {
	return r.Finished.Sub(r.Started)
}

func (r *Report) warn(logger zerolog.Logger, err error, msg string) {
	logger.Warn().Err(err).Msg(msg)
	r.Warnings = append(r.Warnings, fmt.Sprintf("%s: %v", msg, err))
}

type run struct {
	opts    Options
	cfg     config.Config
	report  *Report
	metrics *metrics.Run
	logger  zerolog.Logger
	now     func() time.Time
}

// Run performs one collection. The returned Report is never nil; on a hard
// stop it describes how far the run got.
func Run(ctx context.Context, opts Options) (*Report, error) {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	rep := &Report{RunID: store.NewRunID(), Started: now(), Sources: len(opts.Sources)}
	r := &run{
		opts:    opts,
		cfg:     opts.Config,
		report:  rep,
		metrics: metrics.New(),
		logger:  log.WithComponent("collector").With().Str(log.FieldRunID, rep.RunID).Logger(),
		now:     now,
	}
	if opts.Store != nil {
		if err := opts.Store.BeginRun(ctx, rep.RunID, rep.Started); err != nil {
			rep.warn(r.logger, err, "record run start")
		}
	}
	err := r.collect(ctx)
	r.finish(err)
	return rep, err
}

func (r *run) path(p string) string {
	if p == "" || filepath.IsAbs(p) || r.opts.Dir == "" {
		return p
	}
	return filepath.Join(r.opts.Dir, p)
}

func (r *run) stamp() string {
	return r.report.Started.In(r.cfg.Location()).Format(output.TimeLayout)
}

func (r *run) fetchOptions() indexer.Options {
	if r.opts.Fetch.Client != nil {
		return r.opts.Fetch
	}
	return r.cfg.Fetch()
}

func (r *run) collect(ctx context.Context) error {
	rep := r.report
	if len(r.opts.Sources) == 0 {
		return ErrNoSources
	}
	r.logger.Info().Int("sources", len(r.opts.Sources)).Msg("run started")

	black, white := r.loadLists()
	policy := filter.Policy{Config: r.cfg.Filter(), Whitelist: white, Blacklist: black}
	if r.cfg.EnableWhitelist && r.cfg.EnableBlacklist {
		r.logger.Info().Bool("whitelist_overrides_blacklist", r.cfg.WhitelistOverrideBlacklist).Msg("list precedence")
	}

	entries := r.fetchSources(ctx)
	if err := ctx.Err(); err != nil {
		return err
	}
	if rep.SuccessSources == 0 {
		return fmt.Errorf("%w (%d tried)", ErrAllSourcesFailed, len(r.opts.Sources))
	}
	entries = append(entries, r.whitelistEntries(ctx, white)...)
	rep.OriginalEntries = len(entries)

	probes, slow, err := r.speedTest(ctx, entries, policy)
	if err != nil {
		return err
	}
	rep.SlowURLs = len(slow)
	previous := black.Len()
	r.updateBlacklist(black, slow, probes)

	policy.Blacklist = black.Union(slow...)
	kept, st := policy.Apply(entries)
	rep.FilteredEntries, rep.Blacklisted, rep.Whitelisted = st.Kept, st.Blacklisted, st.Whitelisted
	r.metrics.EntriesDropped.WithLabelValues("blacklist").Add(float64(st.Blacklisted))
	r.logger.Info().
		Int("kept", st.Kept).
		Int("blacklisted", st.Blacklisted).
		Int("rescued", st.Rescued).
		Int("whitelisted", st.Whitelisted).
		Msg("entries filtered")
	if len(kept) == 0 {
		return ErrAllFiltered
	}

	channels := catalog.NewMerger(r.categorizer()).Merge(kept, details(probes))
	rep.Channels = len(channels)
	for key, ch := range channels {
		r.metrics.Channels.WithLabelValues(ch.Category).Inc()
		if seen := ch.ObservedCategories(); len(seen) > 1 {
			r.logger.Debug().Str(log.FieldKey, key).Str("category", ch.Category).Strs("seen", seen).Msg("channel spans categories")
		}
	}

	meta := output.Meta{
		RunID:             rep.RunID,
		Generated:         rep.Started,
		Config:            r.cfg,
		Sources:           rep.Sources,
		SuccessSources:    rep.SuccessSources,
		FailedSources:     rep.FailedSources,
		OriginalEntries:   rep.OriginalEntries,
		FilteredEntries:   rep.FilteredEntries,
		Blacklisted:       rep.Blacklisted,
		Whitelisted:       rep.Whitelisted,
		PreviousBlacklist: previous,
		NewlyBlacklisted:  rep.NewlyBlacklisted,
		Whitelist:         white,
	}
	files, err := output.WriteAll(r.path(r.cfg.OutputDir), channels, meta)
	rep.Files = files
	if err != nil {
		return fmt.Errorf("write outputs: %w", err)
	}
	return nil
}

// loadLists reads the blacklist and whitelist when enabled. A list that cannot
// be read is replaced by an empty one and reported as a warning.
func (r *run) loadLists() (*filter.Blacklist, *filter.Whitelist) {
	black, white := filter.NewBlacklist(), filter.NewWhitelist()
	if r.cfg.EnableBlacklist {
		b, err := filter.LoadBlacklist(r.path(r.cfg.BlacklistFile))
		if err != nil {
			r.report.warn(r.logger, err, "load blacklist")
		} else {
			black = b
		}
	}
	if r.cfg.EnableWhitelist {
		path := r.path(r.cfg.WhitelistFile)
		w, created, err := filter.LoadWhitelist(path, r.stamp())
		if err != nil {
			r.report.warn(r.logger, err, "load whitelist")
		} else {
			white = w
		}
		for _, raw := range white.Invalid {
			r.report.warn(r.logger, errors.New("invalid regular expression "+raw), "whitelist pattern ignored")
		}
		if created {
			r.logger.Info().Str(log.FieldPath, path).Msg("whitelist template created")
		}
	}
	r.metrics.BlacklistSize.Set(float64(black.Len()))
	r.logger.Info().
		Int("blacklist", black.Len()).
		Int("whitelist_urls", len(white.URLs())).
		Int("whitelist_patterns", len(white.Patterns())).
		Int("whitelist_channels", len(white.Channels)).
		Msg("lists loaded")
	return black, white
}

func (r *run) fetchSources(ctx context.Context) []catalog.RawEntry {
	var entries []catalog.RawEntry
	for _, res := range indexer.FetchAll(ctx, r.opts.Sources, r.fetchOptions()) {
		if !res.OK() {
			r.report.FailedSources = append(r.report.FailedSources, res.URL)
			r.metrics.SourcesFailed.Inc()
			continue
		}
		r.report.SuccessSources++
		r.metrics.SourcesFetched.Inc()
		r.metrics.EntriesParsed.Add(float64(len(res.Entries)))
		entries = append(entries, res.Entries...)
	}
	return entries
}

// whitelistEntries returns the whitelist's own channels plus the entries of any
// whitelisted playlist, all flagged whitelisted, when auto-add is on.
func (r *run) whitelistEntries(ctx context.Context, white *filter.Whitelist) []catalog.RawEntry {
	if !r.cfg.EnableWhitelist || !r.cfg.WhitelistAutoAdd {
		return nil
	}
	out := white.Entries()
	playlists := white.PlaylistURLs()
	for _, res := range indexer.FetchAll(ctx, playlists, r.fetchOptions()) {
		if !res.OK() {
			r.report.warn(r.logger, res.Err, "whitelist playlist "+res.URL)
			continue
		}
		for _, e := range res.Entries {
			e.Origin = filter.OriginWhitelist + ":" + res.URL
			e.Whitelisted = true
			out = append(out, e)
		}
	}
	r.report.WhitelistEntries = len(out)
	if len(out) > 0 {
		r.logger.Info().Int(log.FieldEntries, len(out)).Int("playlists", len(playlists)).Msg("whitelist entries added")
	}
	return out
}

// speedTest probes every unique URL the filter would keep and returns the
// results by URL together with the URLs judged slow, in probe order.
func (r *run) speedTest(ctx context.Context, entries []catalog.RawEntry, policy filter.Policy) (map[string]speedtest.Result, []string, error) {
	if !r.cfg.EnableSpeedTest {
		r.logger.Info().Msg("speed test disabled")
		return nil, nil, nil
	}
	rep := r.report
	seen := make(map[string]bool, len(entries))
	var urls []string
	for _, e := range entries {
		if seen[e.URL] {
			continue
		}
		seen[e.URL] = true
		if !policy.IsAllowed(e.URL) {
			rep.SkippedProbes++
			continue
		}
		urls = append(urls, e.URL)
	}
	rep.UniqueURLs = len(seen)

	results := make(map[string]speedtest.Result, len(urls))
	if st := r.opts.Store; st != nil && r.cfg.ProbeCacheTTL > 0 {
		fresh, err := st.Fresh(ctx, urls, rep.Started, r.cfg.ProbeCacheTTL)
		if err != nil {
			rep.warn(r.logger, err, "read probe cache")
		}
		for u, res := range fresh {
			results[u] = res
		}
		rep.CachedProbes = len(fresh)
	}
	pending := make([]string, 0, len(urls))
	for _, u := range urls {
		if _, ok := results[u]; !ok {
			pending = append(pending, u)
		}
	}

	prober := r.opts.Prober
	if prober == nil {
		prober = speedtest.New(r.cfg.Probe())
	}
	ordered := speedtest.Order(pending, policy.Whitelisted)
	r.logger.Info().
		Int("unique_urls", len(seen)).
		Int("skipped", rep.SkippedProbes).
		Int("cached", rep.CachedProbes).
		Int("probing", len(ordered)).
		Msg("speed test started")
	live := prober.ProbeAll(ctx, ordered, r.progress(policy))
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	rep.Probed = len(live)
	if st := r.opts.Store; st != nil {
		if err := st.RecordProbes(ctx, rep.RunID, r.now(), live); err != nil {
			rep.warn(r.logger, err, "record probes")
		}
	}
	for _, res := range live {
		results[res.URL] = res
	}

	var slow []string
	for _, u := range urls {
		res := results[u]
		r.metrics.ObserveProbe(res.Success, res.Cached, res.Score, r.cfg.MinSpeedScore)
		if policy.Slow(u, res.Success, res.Score) {
			slow = append(slow, u)
		}
	}
	r.logger.Info().Int("slow", len(slow)).Int("fast", len(urls)-len(slow)).Msg("speed test finished")
	return results, slow, nil
}

func (r *run) progress(policy filter.Policy) speedtest.Progress {
	return func(done, total int, res speedtest.Result) {
		if done%progressEvery != 0 && done != total {
			return
		}
		r.logger.Info().
			Int("done", done).
			Int("total", total).
			Str(log.FieldURL, res.URL).
			Float64(log.FieldScore, res.Score).
			Bool("whitelisted", policy.Whitelisted(res.URL)).
			Msg("probe progress")
	}
}

// updateBlacklist adds slow URLs to black and saves it when both blacklisting
// and speed testing are on. A failed save is a warning only.
func (r *run) updateBlacklist(black *filter.Blacklist, slow []string, results map[string]speedtest.Result) {
	if len(slow) == 0 {
		return
	}
	if !r.cfg.EnableBlacklist || !r.cfg.EnableSpeedTest {
		r.logger.Info().Int("slow", len(slow)).Msg("slow urls not saved, blacklist disabled")
		return
	}
	r.report.NewlyBlacklisted = black.Add(slow...)
	r.metrics.BlacklistSize.Set(float64(black.Len()))
	reason := FailureReason(slow, results)
	path := r.path(r.cfg.BlacklistFile)
	if err := filter.SaveBlacklist(path, black, filter.Header{
		Generated: r.stamp(),
		Reason:    reason,
		Enabled:   r.cfg.EnableBlacklist,
	}); err != nil {
		r.report.warn(r.logger, err, "save blacklist")
		return
	}
	r.logger.Info().
		Str(log.FieldPath, path).
		Int("added", r.report.NewlyBlacklisted).
		Int("total", black.Len()).
		Str("reason", reason).
		Msg("blacklist saved")
}

// FailureReason names the most common error among the slow URLs. A URL that
// probed fine but scored low counts as a low score. Ties go to the error that
// sorts first.
func FailureReason(slow []string, results map[string]speedtest.Result) string {
	counts := make(map[string]int)
	for _, u := range slow {
		msg := results[u].Err
		if msg == "" {
			msg = lowScoreReason
		}
		counts[msg]++
	}
	if len(counts) == 0 {
		return defaultBlacklistReason
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return "主要失败原因: " + keys[0]
}

func (r *run) categorizer() catalog.Categorizer {
	if len(r.opts.Rules) == 0 {
		return category.Default()
	}
	c := category.WithRules(r.opts.Rules)
	for _, err := range c.Degraded() {
		r.report.warn(r.logger, err, "category rule matched as substring")
	}
	r.logger.Debug().Strs("labels", c.Labels()).Msg("category rules loaded")
	return c
}

func details(results map[string]speedtest.Result) map[string]catalog.ProbeDetail {
	out := make(map[string]catalog.ProbeDetail, len(results))
	for u, res := range results {
		out[u] = res.Detail()
	}
	return out
}

// finish stamps the report, exports metrics and closes the run record.
func (r *run) finish(runErr error) {
	rep := r.report
	rep.Finished = r.now()
	r.metrics.Finish(rep.Started, rep.Finished, runErr == nil)
	if p := r.cfg.MetricsFile; p != "" {
		if err := r.metrics.WriteTextfile(r.path(p)); err != nil {
			rep.warn(r.logger, err, "write metrics")
		}
	}
	if st := r.opts.Store; st != nil {
		// the run's own context may already be canceled
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		row := store.Run{
			ID:            rep.RunID,
			StartedAt:     rep.Started,
			FinishedAt:    rep.Finished,
			Sources:       rep.Sources,
			FailedSources: len(rep.FailedSources),
			Channels:      rep.Channels,
			SlowURLs:      rep.SlowURLs,
		}
		if runErr != nil {
			row.Err = runErr.Error()
		}
		if err := st.FinishRun(ctx, row); err != nil {
			rep.warn(r.logger, err, "record run finish")
		}
		if n, err := st.Prune(ctx, rep.Finished.Add(-historyRetention)); err != nil {
			rep.warn(r.logger, err, "prune probe history")
		} else if n > 0 {
			r.logger.Debug().Int64("pruned", n).Msg("probe history pruned")
		}
	}
	ev := r.logger.Info()
	if runErr != nil {
		ev = r.logger.Error().Err(runErr)
	}
	ev.Int("sources_ok", rep.SuccessSources).
		Int("sources_failed", len(rep.FailedSources)).
		Int(log.FieldChannels, rep.Channels).
		Int("warnings", len(rep.Warnings)).
		Dur("elapsed", rep.Elapsed()).
		Msg("run finished")
}
