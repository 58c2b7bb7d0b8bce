// Package scanner discovers .rsx templates on disk.
//
// The scanner walks directories for template files, skipping excluded
// patterns, and reads them concurrently with a small worker pool. It keeps
// a CRC32 hash per file so repeated scans can report which templates were
// added, changed or removed since the previous scan.
package scanner

import (
	"context"
	"fmt"
	"hash/crc32"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"

	"github.com/conneroisu/gorsx/internal/engine"
	"github.com/conneroisu/gorsx/internal/errors"
)

// Extension is the file extension of templates.
const Extension = ".rsx"

// Result is the outcome of one scan.
type Result struct {
	// Sources holds every template found, sorted by path.
	Sources []engine.Source
	// Added, Changed and Removed list paths relative to the previous scan.
	Added   []string
	Changed []string
	Removed []string
}

// Dirty reports whether anything differs from the previous scan.
func (r *Result) Dirty() bool {
	return len(r.Added)+len(r.Changed)+len(r.Removed) > 0
}

// ComponentScanner finds and reads templates. It is safe for concurrent use.
type ComponentScanner struct {
	excludes []string
	workers  int

	mu     sync.Mutex
	hashes map[string]string
}

// NewComponentScanner creates a scanner that skips paths matching any of
// the exclude patterns. Patterns are matched with filepath.Match against
// both the base name and the slash-separated path.
func NewComponentScanner(excludes []string) *ComponentScanner {
	workers := runtime.NumCPU()
	if workers > 8 {
		workers = 8
	}
	return &ComponentScanner{
		excludes: excludes,
		workers:  workers,
		hashes:   make(map[string]string),
	}
}

// Hash returns the CRC32 checksum of content as eight hex digits.
func Hash(content []byte) string {
	return fmt.Sprintf("%08x", crc32.ChecksumIEEE(content))
}

// Excluded reports whether path matches one of the scanner's exclude
// patterns.
func (s *ComponentScanner) Excluded(path string) bool {
	slashed := filepath.ToSlash(path)
	base := filepath.Base(path)
	for _, pattern := range s.excludes {
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
		if ok, _ := filepath.Match(pattern, slashed); ok {
			return true
		}
		if strings.HasPrefix(slashed, strings.TrimSuffix(pattern, "/")+"/") {
			return true
		}
	}
	return false
}

// Find returns the template files under dirs, sorted and without
// duplicates. A dir may also name a single file.
func (s *ComponentScanner) Find(dirs []string) ([]string, error) {
	var files []string
	for _, dir := range dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != dir && (strings.HasPrefix(d.Name(), ".") || s.Excluded(path)) {
					return filepath.SkipDir
				}
				return nil
			}
			if filepath.Ext(path) != Extension || s.Excluded(path) {
				return nil
			}
			files = append(files, filepath.Clean(path))
			return nil
		})
		if err != nil {
			if os.IsNotExist(err) {
				return nil, errors.WrapIO(err, errors.ErrCodeFileNotFound, "component directory not found").
					WithContext("dir", dir)
			}
			return nil, errors.WrapIO(err, errors.ErrCodeInvalidPath, "scanning "+dir)
		}
	}
	slices.Sort(files)
	return slices.Compact(files), nil
}

// ScanFile reads a single template.
func (s *ComponentScanner) ScanFile(path string) (engine.Source, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return engine.Source{}, errors.WrapIO(err, errors.ErrCodeFileNotFound, "template not found").
				WithLocation(path, 0, 0)
		}
		return engine.Source{}, errors.WrapIO(err, errors.ErrCodeInvalidPath, "reading template").
			WithLocation(path, 0, 0)
	}
	return engine.Source{Path: filepath.Clean(path), Content: content}, nil
}

type scanJob struct {
	index int
	path  string
}

type scanResult struct {
	index  int
	source engine.Source
	err    error
}

// Scan finds and reads every template under dirs and records their
// hashes. Files that cannot be read are reported together in the error,
// alongside a Result holding the files that could.
func (s *ComponentScanner) Scan(ctx context.Context, dirs []string) (*Result, error) {
	files, err := s.Find(dirs)
	if err != nil {
		return nil, err
	}

	sources, err := s.read(ctx, files)
	if sources == nil && err != nil {
		return nil, err
	}
	return s.diff(sources), err
}

// read loads files with the worker pool. Small batches are read inline.
func (s *ComponentScanner) read(ctx context.Context, files []string) ([]engine.Source, error) {
	sources := make([]engine.Source, len(files))
	errs := make([]error, len(files))

	if len(files) <= 5 || s.workers < 2 {
		for i, path := range files {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			sources[i], errs[i] = s.ScanFile(path)
		}
		return compact(sources), errors.CombineErrors(errs...)
	}

	jobs := make(chan scanJob)
	results := make(chan scanResult, len(files))
	var wg sync.WaitGroup
	for range s.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				src, err := s.ScanFile(job.path)
				results <- scanResult{index: job.index, source: src, err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, path := range files {
			select {
			case jobs <- scanJob{index: i, path: path}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	for r := range results {
		sources[r.index], errs[r.index] = r.source, r.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return compact(sources), errors.CombineErrors(errs...)
}

// compact drops the slots of files that failed to read.
func compact(sources []engine.Source) []engine.Source {
	return slices.DeleteFunc(sources, func(s engine.Source) bool { return s.Path == "" })
}

func (s *ComponentScanner) diff(sources []engine.Source) *Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := &Result{Sources: sources}
	seen := make(map[string]bool, len(sources))
	for _, src := range sources {
		seen[src.Path] = true
		hash := Hash(src.Content)
		old, ok := s.hashes[src.Path]
		switch {
		case !ok:
			res.Added = append(res.Added, src.Path)
		case old != hash:
			res.Changed = append(res.Changed, src.Path)
		}
		s.hashes[src.Path] = hash
	}
	for path := range s.hashes {
		if !seen[path] {
			res.Removed = append(res.Removed, path)
			delete(s.hashes, path)
		}
	}
	slices.Sort(res.Removed)
	return res
}

// Forget drops the recorded hashes, so the next scan reports every
// template as added.
func (s *ComponentScanner) Forget() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.hashes)
}

// ExistingPaths splits paths into those present on disk and those that
// are not.
func ExistingPaths(paths []string) (existing, missing []string) {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			missing = append(missing, p)
			continue
		}
		existing = append(existing, p)
	}
	return existing, missing
}
