package inventory

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/afero"

	"medstore/m/domain"
	"medstore/m/internal/fieldcodec"
	"medstore/m/internal/metrics"
)

const maxLineBytes = 1 << 20

// SkippedLine describes a stock file line that was not loaded.
type SkippedLine struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// LoadStats summarizes one pass over the stock file.
type LoadStats struct {
	Decoded int           `json:"decoded"`
	Skipped []SkippedLine `json:"skipped,omitempty"`
}

// Store is the only writer of the stock file. Every change rewrites the file
// into a temporary sibling and renames it over the original, so readers see
// either the old file or the new one.
type Store struct {
	fs      afero.Fs
	path    string
	lock    *flock.Flock
	log     *slog.Logger
	metrics *metrics.Metrics
}

func NewStore(fs afero.Fs, path string, log *slog.Logger, m *metrics.Metrics) *Store {
	return &Store{fs: fs, path: path, log: log, metrics: m}
}

func (s *Store) Path() string { return s.path }

// Lock takes an exclusive advisory lock next to the stock file so a second
// process cannot load and rewrite the same file. It fails instead of waiting.
func (s *Store) Lock() error {
	s.lock = flock.New(s.path + ".lock")
	locked, err := s.lock.TryLock()
	if err != nil {
		return fmt.Errorf("%w: lock %s: %v", domain.ErrPersistence, s.lock.Path(), err)
	}
	if !locked {
		return fmt.Errorf("%w: %s is locked by another process", domain.ErrPersistence, s.path)
	}
	return nil
}

func (s *Store) Unlock() error {
	if s.lock == nil {
		return nil
	}
	return s.lock.Unlock()
}

// Load passes every well formed line to visit in file order. A missing file
// is an empty inventory; any other open or read failure is returned.
// Malformed lines are skipped and reported, never fatal.
func (s *Store) Load(visit func(domain.Medicine)) (LoadStats, error) {
	var stats LoadStats
	f, err := s.fs.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.log.Info("stock file not found, starting empty", "path", s.path)
		return stats, nil
	}
	if err != nil {
		return stats, fmt.Errorf("%w: open %s: %v", domain.ErrPersistence, s.path, err)
	}
	defer f.Close()

	sc := newScanner(f)
	ln := 0
	for sc.Scan() {
		ln++
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		m, warnings, err := fieldcodec.DecodeMedicine(line)
		for _, w := range warnings {
			s.log.Warn("stock line diagnostic", "line", ln, "detail", w)
		}
		if err != nil {
			s.log.Warn("skipping malformed stock line", "path", s.path, "line", ln, "err", err)
			stats.Skipped = append(stats.Skipped, SkippedLine{Line: ln, Reason: err.Error()})
			continue
		}
		stats.Decoded++
		visit(m)
	}
	if err := sc.Err(); err != nil {
		return stats, fmt.Errorf("%w: read %s: %v", domain.ErrPersistence, s.path, err)
	}
	return stats, nil
}

// Commit rewrites the stock file with new quantities for the codes in
// changes and the added records appended at the end. All lines are written
// in one pass and the file is replaced once.
//
// Failures before the replace leave the stock file untouched and wrap
// domain.ErrPersistence. A failed replace wraps domain.ErrCriticalConsistency;
// the temporary file is then kept because it may hold the only copy of the
// new state.
func (s *Store) Commit(changes map[int]int, added ...domain.Medicine) (err error) {
	start := time.Now()
	defer func() {
		result := "committed"
		switch {
		case errors.Is(err, domain.ErrCriticalConsistency):
			result = "critical"
		case err != nil:
			result = "aborted"
		}
		s.metrics.Commit(result, time.Since(start))
	}()

	dir := filepath.Dir(s.path)
	tmp, err := afero.TempFile(s.fs, dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %v", domain.ErrPersistence, err)
	}
	tmpName := tmp.Name()
	closed, keep := false, false
	defer func() {
		if !closed {
			_ = tmp.Close()
		}
		if !keep {
			if rmErr := s.fs.Remove(tmpName); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				s.log.Warn("could not remove temp stock file", "path", tmpName, "err", rmErr)
			}
		}
	}()

	if err := s.rewrite(tmp, changes, added); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("%w: sync %s: %v", domain.ErrPersistence, tmpName, err)
	}
	closed = true
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", domain.ErrPersistence, tmpName, err)
	}

	if err := s.fs.Rename(tmpName, s.path); err != nil {
		keep = true
		s.log.Error("stock file replace failed", "path", s.path, "temp", tmpName, "err", err)
		return fmt.Errorf("%w: rename %s to %s: %v", domain.ErrCriticalConsistency, tmpName, s.path, err)
	}
	keep = true
	s.syncDir(dir)
	s.log.Debug("stock file committed", "path", s.path, "changes", len(changes), "added", len(added))
	return nil
}

func (s *Store) rewrite(w io.Writer, changes map[int]int, added []domain.Medicine) error {
	bw := bufio.NewWriter(w)
	applied := make(map[int]bool, len(changes))

	in, err := s.fs.Open(s.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return fmt.Errorf("%w: open %s: %v", domain.ErrPersistence, s.path, err)
	default:
		defer in.Close()
		sc := newScanner(in)
		ln := 0
		for sc.Scan() {
			ln++
			line := sc.Text()
			out := line
			if code, ok := fieldcodec.LineCode(line); ok {
				if qty, want := changes[code]; want && !applied[code] {
					rec, _, err := fieldcodec.DecodeMedicine(line)
					if err != nil {
						return fmt.Errorf("%w: line %d for code %d: %v", domain.ErrPersistence, ln, code, err)
					}
					rec.Quantity = qty
					if out, err = encodeChecked(rec); err != nil {
						return err
					}
					applied[code] = true
				}
			}
			if _, err := bw.WriteString(out + "\n"); err != nil {
				return fmt.Errorf("%w: write temp file: %v", domain.ErrPersistence, err)
			}
		}
		if err := sc.Err(); err != nil {
			return fmt.Errorf("%w: read %s: %v", domain.ErrPersistence, s.path, err)
		}
	}

	for code := range changes {
		if !applied[code] {
			return fmt.Errorf("%w: code %d is not in %s", domain.ErrPersistence, code, s.path)
		}
	}
	for _, m := range added {
		line, err := encodeChecked(m)
		if err != nil {
			return err
		}
		if _, err := bw.WriteString(line + "\n"); err != nil {
			return fmt.Errorf("%w: write temp file: %v", domain.ErrPersistence, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("%w: flush temp file: %v", domain.ErrPersistence, err)
	}
	return nil
}

// encodeChecked refuses to write a line that would not load back as m.
func encodeChecked(m domain.Medicine) (string, error) {
	line := fieldcodec.EncodeMedicine(m)
	if strings.ContainsAny(line, "\r\n") {
		return "", fmt.Errorf("%w: code %d would span more than one line", domain.ErrPersistence, m.Code)
	}
	back, _, err := fieldcodec.DecodeMedicine(line)
	if err != nil || !back.Equal(m) {
		return "", fmt.Errorf("%w: code %d does not round trip as %q", domain.ErrPersistence, m.Code, line)
	}
	return line, nil
}

func (s *Store) syncDir(dir string) {
	d, err := s.fs.Open(dir)
	if err != nil {
		return
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		s.log.Debug("directory sync not supported", "dir", dir, "err", err)
	}
}

func newScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return sc
}
