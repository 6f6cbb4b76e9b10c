package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// LoadEnvFile reads path and sets environment variables for each line "KEY=value".
// Skips empty lines, lines starting with # and an optional "export " prefix.
// Variables already present in the environment win over the file.
// A missing file is not an error.
func LoadEnvFile(path string) error {
	path = filepath.Clean(path)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		key, value, ok := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		if _, set := os.LookupEnv(key); set {
			continue
		}
		os.Setenv(key, unquoteEnv(strings.TrimSpace(value)))
	}
	return sc.Err()
}

// ApplyEnv overrides c with every IPTV_COLLECTOR_<KEY> variable that is set.
// Bad values keep the current setting and are returned as warnings with Line 0.
func ApplyEnv(c *Config) []Warning {
	var warns []Warning
	for _, f := range fields {
		v, ok := os.LookupEnv(EnvPrefix + f.key)
		if !ok {
			continue
		}
		v = strings.TrimSpace(v)
		if err := f.set(c, v); err != nil {
			warns = append(warns, Warning{Key: f.key, Value: v, Reason: err.Error() + ", keeping current value"})
		}
	}
	return warns
}

func unquoteEnv(s string) string {
	if len(s) < 2 {
		return s
	}
	if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
		return s[1 : len(s)-1]
	}
	return s
}
