// Package atomicfile replaces files in one step so readers never see a partial write.
package atomicfile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"

	"github.com/plextuner/iptv-collector/internal/log"
)

// Write creates the parent directory if needed, streams fn's output into a pending
// file next to path and renames it over path after fsync. On error the pending file
// is removed and path is left untouched.
func Write(path string, fn func(w io.Writer) error) error {
	if dir := filepath.Dir(filepath.Clean(path)); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	pending, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("create pending %s: %w", path, err)
	}
	defer func() {
		if err := pending.Cleanup(); err != nil {
			l := log.WithComponent("atomicfile")
			l.Debug().Err(err).Str(log.FieldPath, path).Msg("cleanup pending file")
		}
	}()
	bw := bufio.NewWriter(pending)
	if err := fn(bw); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// WriteBytes is Write for an in-memory payload.
func WriteBytes(path string, data []byte) error {
	return Write(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}
