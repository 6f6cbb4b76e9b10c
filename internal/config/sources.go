package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ParseSources reads one playlist URL per line. Blank and # lines are skipped;
// lines that are not http(s) URLs become warnings. Duplicates are dropped.
func ParseSources(r io.Reader) ([]string, []Warning, error) {
	var (
		out   []string
		warns []Warning
	)
	seen := make(map[string]bool)
	sc := bufio.NewScanner(r)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !strings.HasPrefix(line, "http://") && !strings.HasPrefix(line, "https://") {
			warns = append(warns, Warning{Line: n, Value: line, Reason: "not an http(s) URL, skipped"})
			continue
		}
		if seen[line] {
			continue
		}
		seen[line] = true
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, warns, err
	}
	return out, warns, nil
}

// LoadSources reads the sources file at path. A missing file is an error
// wrapping os.ErrNotExist.
func LoadSources(path string) ([]string, []Warning, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, nil, fmt.Errorf("sources %s: %w", path, err)
	}
	defer f.Close()
	urls, warns, err := ParseSources(f)
	if err != nil {
		return nil, warns, fmt.Errorf("sources %s: %w", path, err)
	}
	return urls, warns, nil
}
