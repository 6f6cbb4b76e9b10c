package speedtest

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/plextuner/iptv-collector/internal/log"
)

// Order returns urls arranged so the most valuable probes start first:
// whitelisted HLS, other HLS, whitelisted others, then the rest. Order within
// a class is preserved. whitelisted may be nil.
func Order(urls []string, whitelisted func(string) bool) []string {
	var classes [4][]string
	for _, u := range urls {
		c := 1
		if IsHLS(u) {
			c = 0
		}
		if whitelisted == nil || !whitelisted(u) {
			c += 2
		}
		// whitelisted HLS 0, whitelisted other 1, HLS 2, other 3
		classes[c] = append(classes[c], u)
	}
	out := make([]string, 0, len(urls))
	out = append(out, classes[0]...)
	out = append(out, classes[2]...)
	out = append(out, classes[1]...)
	out = append(out, classes[3]...)
	return out
}

// Progress is called after each probe with the number done so far.
type Progress func(done, total int, r Result)

// ProbeAll probes each URL once with a fixed set of workers and returns the
// results in input order. Duplicate URLs are probed once. If ctx is canceled,
// unprobed URLs get a failed result.
func (p *Prober) ProbeAll(ctx context.Context, urls []string, progress Progress) []Result {
	logger := log.WithComponent("speedtest")
	results := make([]Result, len(urls))
	first := make(map[string]int, len(urls))
	jobs := make(chan int)

	workers := p.cfg.Workers
	if workers > len(urls) {
		workers = len(urls)
	}
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		done int
	)
	total := len(urls)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				// Each index is owned by exactly one worker.
				results[i] = p.probeLimited(ctx, urls[i])
				if progress != nil {
					mu.Lock()
					done++
					n := done
					mu.Unlock()
					progress(n, total, results[i])
				}
			}
		}()
	}

	var dups []int
feed:
	for i, u := range urls {
		if _, ok := first[u]; ok {
			dups = append(dups, i)
			continue
		}
		first[u] = i
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	for i, u := range urls {
		if results[i].URL == "" {
			results[i] = Result{URL: u, Err: "canceled"}
		}
	}
	for _, i := range dups {
		results[i] = results[first[urls[i]]]
	}

	if e := logger.Debug(); e.Enabled() {
		ok := 0
		for _, r := range results {
			if r.Success {
				ok++
			}
		}
		e.Int("probed", len(first)).Int("ok", ok).Msg("probe pool finished")
	}
	return results
}

func (p *Prober) probeLimited(ctx context.Context, u string) Result {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return Result{URL: u, Err: "canceled"}
		}
	}
	release, err := p.hosts.AcquireContext(ctx, u)
	if err != nil {
		return Result{URL: u, Err: "canceled"}
	}
	defer release()
	r := p.Probe(ctx, u)
	logProbe(log.WithComponent("speedtest"), r)
	return r
}

func logProbe(logger zerolog.Logger, r Result) {
	if r.Success {
		logger.Debug().Str(log.FieldURL, r.URL).Float64(log.FieldScore, r.Score).
			Int64(log.FieldLatency, r.Total.Milliseconds()).Msg("probe ok")
		return
	}
	logger.Debug().Str(log.FieldURL, r.URL).Str("error", r.Err).Msg("probe failed")
}
