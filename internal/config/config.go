// Package config loads the collector settings from config.txt, the environment,
// sources.txt and an optional YAML rules file.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/plextuner/iptv-collector/internal/filter"
	"github.com/plextuner/iptv-collector/internal/indexer"
	"github.com/plextuner/iptv-collector/internal/speedtest"
)

// EnvPrefix is prepended to a config key to override it from the environment.
const EnvPrefix = "IPTV_COLLECTOR_"

// Config holds every collector setting. The zero value is not useful; start from Default.
type Config struct {
	EnableBlacklist bool
	EnableWhitelist bool
	EnableSpeedTest bool

	ConnectTimeout time.Duration
	StreamTimeout  time.Duration
	MinSpeedScore  float64 // 0..1; probes scoring below it are slow
	MaxWorkers     int

	WhitelistFile              string
	WhitelistOverrideBlacklist bool
	WhitelistIgnoreSpeedTest   bool
	WhitelistAutoAdd           bool

	BlacklistFile string
	SourcesFile   string
	OutputDir     string
	RulesFile     string // "" = built-in categories only
	StorePath     string // "" = no probe history

	ProbeCacheTTL time.Duration // 0 = always re-probe
	ProbeRate     float64       // probes started per second; 0 = unlimited
	ProbesPerHost int

	FetchTimeout     time.Duration
	FetchRetries     int
	FetchConcurrency int

	TimezoneOffsetHours int
	MetricsFile         string
	Schedule            string
}

// Default returns the settings used when config.txt is absent.
func Default() Config {
	return Config{
		EnableBlacklist:            true,
		EnableWhitelist:            true,
		EnableSpeedTest:            true,
		ConnectTimeout:             3 * time.Second,
		StreamTimeout:              10 * time.Second,
		MinSpeedScore:              0.5,
		MaxWorkers:                 20,
		WhitelistFile:              "whitelist.txt",
		WhitelistOverrideBlacklist: true,
		WhitelistIgnoreSpeedTest:   true,
		WhitelistAutoAdd:           true,
		BlacklistFile:              "blacklist.txt",
		SourcesFile:                "sources.txt",
		OutputDir:                  ".",
		ProbesPerHost:              4,
		FetchTimeout:               15 * time.Second,
		FetchRetries:               2,
		FetchConcurrency:           4,
		TimezoneOffsetHours:        8,
		Schedule:                   "0 0 */6 * * *",
	}
}

// Warning describes a config line that was ignored or kept at its default.
// Line is 0 for values that came from the environment.
type Warning struct {
	Line   int
	Key    string
	Value  string
	Reason string
}

func (w Warning) String() string {
	if w.Line == 0 {
		return fmt.Sprintf("%s%s=%q: %s", EnvPrefix, w.Key, w.Value, w.Reason)
	}
	if w.Key == "" {
		return fmt.Sprintf("line %d: %s", w.Line, w.Reason)
	}
	return fmt.Sprintf("line %d: %s=%q: %s", w.Line, w.Key, w.Value, w.Reason)
}

type field struct {
	key string
	set func(c *Config, v string) error
}

// fields lists the recognized keys in documentation order.
var fields = []field{
	{"ENABLE_BLACKLIST", boolVar(func(c *Config) *bool { return &c.EnableBlacklist })},
	{"ENABLE_WHITELIST", boolVar(func(c *Config) *bool { return &c.EnableWhitelist })},
	{"ENABLE_SPEED_TEST", boolVar(func(c *Config) *bool { return &c.EnableSpeedTest })},
	{"CONNECT_TIMEOUT", secondsVar(func(c *Config) *time.Duration { return &c.ConnectTimeout })},
	{"STREAM_TIMEOUT", secondsVar(func(c *Config) *time.Duration { return &c.StreamTimeout })},
	{"MIN_SPEED_SCORE", setMinScore},
	{"MAX_WORKERS", intVar(1, func(c *Config) *int { return &c.MaxWorkers })},
	{"WHITELIST_FILE", stringVar(func(c *Config) *string { return &c.WhitelistFile })},
	{"WHITELIST_OVERRIDE_BLACKLIST", boolVar(func(c *Config) *bool { return &c.WhitelistOverrideBlacklist })},
	{"WHITELIST_IGNORE_SPEED_TEST", boolVar(func(c *Config) *bool { return &c.WhitelistIgnoreSpeedTest })},
	{"WHITELIST_AUTO_ADD", boolVar(func(c *Config) *bool { return &c.WhitelistAutoAdd })},
	{"BLACKLIST_FILE", stringVar(func(c *Config) *string { return &c.BlacklistFile })},
	{"SOURCES_FILE", stringVar(func(c *Config) *string { return &c.SourcesFile })},
	{"OUTPUT_DIR", stringVar(func(c *Config) *string { return &c.OutputDir })},
	{"RULES_FILE", optionalStringVar(func(c *Config) *string { return &c.RulesFile })},
	{"STORE_PATH", optionalStringVar(func(c *Config) *string { return &c.StorePath })},
	{"PROBE_CACHE_TTL", durationVar(func(c *Config) *time.Duration { return &c.ProbeCacheTTL })},
	{"PROBE_RATE", setProbeRate},
	{"PROBES_PER_HOST", intVar(1, func(c *Config) *int { return &c.ProbesPerHost })},
	{"FETCH_TIMEOUT", durationVar(func(c *Config) *time.Duration { return &c.FetchTimeout })},
	{"FETCH_RETRIES", intVar(0, func(c *Config) *int { return &c.FetchRetries })},
	{"FETCH_CONCURRENCY", intVar(1, func(c *Config) *int { return &c.FetchConcurrency })},
	{"TIMEZONE_OFFSET_HOURS", setTimezone},
	{"METRICS_FILE", optionalStringVar(func(c *Config) *string { return &c.MetricsFile })},
	{"SCHEDULE", setSchedule},
}

func lookup(key string) (field, bool) {
	for _, f := range fields {
		if f.key == key {
			return f, true
		}
	}
	return field{}, false
}

// Keys returns the recognized config keys.
func Keys() []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.key
	}
	return out
}

// Parse reads KEY=VALUE lines over the defaults. Blank lines and lines starting
// with # are skipped. A bad value keeps the default and adds a Warning, as does
// an unknown key.
func Parse(r io.Reader) (Config, []Warning, error) {
	c := Default()
	var warns []Warning
	sc := bufio.NewScanner(r)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			warns = append(warns, Warning{Line: n, Value: line, Reason: "expected KEY=VALUE"})
			continue
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if w, bad := c.set(key, value); bad {
			w.Line = n
			warns = append(warns, w)
		}
	}
	if err := sc.Err(); err != nil {
		return c, warns, err
	}
	return c, warns, nil
}

// Load reads path. A missing file yields the defaults without error.
func Load(path string) (Config, []Warning, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil, nil
		}
		return Default(), nil, fmt.Errorf("config %s: %w", path, err)
	}
	defer f.Close()
	c, warns, err := Parse(f)
	if err != nil {
		return c, warns, fmt.Errorf("config %s: %w", path, err)
	}
	return c, warns, nil
}

// Set applies one KEY=VALUE pair. An unknown key or bad value returns an error
// and leaves c unchanged.
func (c *Config) Set(key, value string) error {
	if w, bad := c.set(key, value); bad {
		return errors.New(w.String())
	}
	return nil
}

func (c *Config) set(key, value string) (Warning, bool) {
	f, ok := lookup(key)
	if !ok {
		return Warning{Key: key, Value: value, Reason: "unknown key, skipped"}, true
	}
	if err := f.set(c, value); err != nil {
		return Warning{Key: key, Value: value, Reason: err.Error() + ", keeping default"}, true
	}
	return Warning{}, false
}

// Location is the fixed zone output timestamps are rendered in.
func (c Config) Location() *time.Location {
	return time.FixedZone(fmt.Sprintf("UTC%+d", c.TimezoneOffsetHours), c.TimezoneOffsetHours*3600)
}

// Filter returns the allow/block policy switches.
func (c Config) Filter() filter.Config {
	return filter.Config{
		EnableBlacklist:           c.EnableBlacklist,
		EnableWhitelist:           c.EnableWhitelist,
		WhitelistOverridesBlack:   c.WhitelistOverrideBlacklist,
		WhitelistIgnoresSpeedTest: c.WhitelistIgnoreSpeedTest,
		MinSpeedScore:             c.MinSpeedScore,
	}
}

// Probe returns the prober settings.
func (c Config) Probe() speedtest.Config {
	return speedtest.Config{
		ConnectTimeout: c.ConnectTimeout,
		StreamTimeout:  c.StreamTimeout,
		Workers:        c.MaxWorkers,
		PerHost:        c.ProbesPerHost,
		Rate:           c.ProbeRate,
	}
}

// Fetch returns the playlist download settings.
func (c Config) Fetch() indexer.Options {
	return indexer.Options{
		Timeout:     c.FetchTimeout,
		Retries:     c.FetchRetries,
		RetryPause:  2 * time.Second,
		Concurrency: c.FetchConcurrency,
	}
}

// CronParser parses SCHEDULE specs: six fields with seconds, or a descriptor like @hourly.
var CronParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

func parseBool(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "true", "yes", "1", "on":
		return true, nil
	case "false", "no", "0", "off":
		return false, nil
	}
	return false, errors.New("not a boolean")
}

func boolVar(ptr func(*Config) *bool) func(*Config, string) error {
	return func(c *Config, v string) error {
		b, err := parseBool(v)
		if err != nil {
			return err
		}
		*ptr(c) = b
		return nil
	}
}

func intVar(min int, ptr func(*Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.New("not an integer")
		}
		if n < min {
			return fmt.Errorf("must be at least %d", min)
		}
		*ptr(c) = n
		return nil
	}
}

// secondsVar accepts whole seconds, as config.txt has always used, or a Go duration.
func secondsVar(ptr func(*Config) *time.Duration) func(*Config, string) error {
	return func(c *Config, v string) error {
		d, err := parseDuration(v)
		if err != nil {
			return err
		}
		if d <= 0 {
			return errors.New("must be positive")
		}
		*ptr(c) = d
		return nil
	}
}

func durationVar(ptr func(*Config) *time.Duration) func(*Config, string) error {
	return func(c *Config, v string) error {
		d, err := parseDuration(v)
		if err != nil {
			return err
		}
		if d < 0 {
			return errors.New("must not be negative")
		}
		*ptr(c) = d
		return nil
	}
}

func parseDuration(v string) (time.Duration, error) {
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, errors.New("not a duration")
	}
	return d, nil
}

func stringVar(ptr func(*Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error {
		if v == "" {
			return errors.New("must not be empty")
		}
		*ptr(c) = v
		return nil
	}
}

func optionalStringVar(ptr func(*Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error {
		*ptr(c) = v
		return nil
	}
}

func setMinScore(c *Config, v string) error {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return errors.New("not a number")
	}
	if f < 0 || f > 1 {
		return errors.New("out of range 0-1")
	}
	c.MinSpeedScore = f
	return nil
}

func setProbeRate(c *Config, v string) error {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return errors.New("not a number")
	}
	if f < 0 {
		return errors.New("must not be negative")
	}
	c.ProbeRate = f
	return nil
}

func setTimezone(c *Config, v string) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return errors.New("not an integer")
	}
	if n < -12 || n > 14 {
		return errors.New("out of range -12..14")
	}
	c.TimezoneOffsetHours = n
	return nil
}

func setSchedule(c *Config, v string) error {
	if _, err := CronParser.Parse(v); err != nil {
		return fmt.Errorf("bad cron spec: %v", err)
	}
	c.Schedule = v
	return nil
}
