package output

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/plextuner/iptv-collector/internal/atomicfile"
	"github.com/plextuner/iptv-collector/internal/catalog"
	"github.com/plextuner/iptv-collector/internal/log"
)

// Output file names, relative to the output directory.
const (
	MultiFile    = "live_sources.m3u"
	SeparateFile = "merged/多源分离版.m3u"
	SingleFile   = "merged/精简版.m3u"
	JSONFile     = "channels.json"
	CategoryDir  = "categories"
)

// CategoryFile returns the per-category playlist path for label.
func CategoryFile(label string) string {
	safe := strings.NewReplacer("/", "_", `\`, "_").Replace(label)
	return filepath.Join(CategoryDir, safe+".m3u")
}

// WriteAll renders every output under dir and returns the paths written.
// Each file is replaced atomically; the first failure stops the run.
func WriteAll(dir string, channels map[string]*catalog.LogicalChannel, meta Meta) ([]string, error) {
	logger := log.WithComponent("output")
	sections := Group(channels)
	var written []string
	write := func(rel string, fn func(w io.Writer) error) error {
		path := filepath.Join(dir, rel)
		if err := atomicfile.Write(path, fn); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		logger.Debug().Str(log.FieldPath, path).Msg("output written")
		written = append(written, path)
		return nil
	}

	playlists := []struct {
		rel  string
		mode Mode
	}{
		{MultiFile, Multi},
		{SeparateFile, Separate},
		{SingleFile, Single},
	}
	for _, p := range playlists {
		mode := p.mode
		if err := write(p.rel, func(w io.Writer) error { return WritePlaylist(w, mode, sections, meta) }); err != nil {
			return written, err
		}
	}
	for _, s := range sections {
		if len(s.Channels) == 0 {
			continue
		}
		sec := s
		if err := write(CategoryFile(s.Label), func(w io.Writer) error { return WriteCategory(w, sec, meta) }); err != nil {
			return written, err
		}
	}
	summary := BuildSummary(channels, meta)
	if err := write(JSONFile, func(w io.Writer) error { return WriteJSON(w, summary) }); err != nil {
		return written, err
	}
	logger.Info().Int(log.FieldChannels, len(channels)).Int("files", len(written)).Str(log.FieldPath, dir).Msg("outputs written")
	return written, nil
}
