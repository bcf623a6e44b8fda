// Package scan walks a project tree and extracts the set of external
// packages its source files reference, recording per-package usage sites.
package scan

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/autodd/autodd/internal/refset"
	"github.com/autodd/autodd/internal/safeio"
)

var (
	ErrInvalidPattern = errors.New("invalid extraction pattern")
	ErrWalkFailed     = errors.New("source walk failed")
)

// DefaultStdCrates are standard-distribution package names that never map to
// a registry dependency. A candidate is dropped when it equals one of these
// or starts with one followed by a path separator.
var DefaultStdCrates = []string{
	"std", "core", "alloc", "test", "proc_macro",
	"rand", "libc", "collections",
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Scanner extracts package references from every eligible .rs file under a
// project root. Directory pruning, candidate filtering, and the
// test-artifact post-pass live here so every Strategy sees the same policy.
type Scanner struct {
	strategy   Strategy
	stdCrates  map[string]struct{}
	skipTests  bool
	verbose    bool
	verboseLog func(format string, args ...any)
}

type Option func(*Scanner)

// WithStrategy replaces the default statement strategy.
func WithStrategy(strategy Strategy) Option {
	return func(s *Scanner) {
		s.strategy = strategy
	}
}

// WithStdCrates replaces the standard-distribution exclusion list.
func WithStdCrates(names []string) Option {
	return func(s *Scanner) {
		s.stdCrates = make(map[string]struct{}, len(names))
		for _, name := range names {
			s.stdCrates[name] = struct{}{}
		}
	}
}

// WithTestDirs includes tests/ directories in the walk.
func WithTestDirs() Option {
	return func(s *Scanner) {
		s.skipTests = false
	}
}

// WithVerboseLog emits per-file extraction detail through logf.
func WithVerboseLog(logf func(format string, args ...any)) Option {
	return func(s *Scanner) {
		s.verbose = true
		s.verboseLog = logf
	}
}

func New(opts ...Option) (*Scanner, error) {
	statement, err := NewStatementStrategy()
	if err != nil {
		return nil, err
	}
	s := &Scanner{
		strategy:  statement,
		stdCrates: make(map[string]struct{}, len(DefaultStdCrates)),
		skipTests: true,
	}
	for _, name := range DefaultStdCrates {
		s.stdCrates[name] = struct{}{}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Scan walks projectRoot, extracts package candidates from each source file,
// and merges them into refs keyed by package name with usage sites recorded
// as root-relative paths. Any unreadable file or failed extraction aborts
// the scan so the caller never reconciles against a partial picture.
func (s *Scanner) Scan(ctx context.Context, projectRoot string, refs refset.Set) error {
	err := filepath.WalkDir(projectRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if s.skipDir(projectRoot, path, d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), ".rs") || d.Name() == "build.rs" {
			return nil
		}

		relPath, relErr := filepath.Rel(projectRoot, path)
		if relErr != nil {
			relPath = path
		}
		relPath = filepath.ToSlash(relPath)

		content, readErr := safeio.ReadFileUnder(projectRoot, path)
		if readErr != nil {
			return fmt.Errorf("read %s: %w", relPath, readErr)
		}

		candidates, extractErr := s.strategy.Extract(ctx, content)
		if extractErr != nil {
			return fmt.Errorf("extract %s (%s strategy): %w", relPath, s.strategy.Name(), extractErr)
		}

		kept := 0
		for _, candidate := range candidates {
			name, ok := s.filter(candidate)
			if !ok {
				continue
			}
			refs.AddUsage(name, relPath)
			kept++
		}
		if s.verbose && s.verboseLog != nil {
			s.verboseLog("scanned %s: %d candidates, %d kept", relPath, len(candidates), kept)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrWalkFailed, err)
	}

	dropTestArtifacts(refs)
	return nil
}

func (s *Scanner) skipDir(projectRoot, path, name string) bool {
	if path == projectRoot {
		return false
	}
	if strings.HasPrefix(name, ".") {
		return true
	}
	switch name {
	case "target", "vendor":
		return true
	case "tests":
		return s.skipTests
	}
	return false
}

// filter decides whether a raw candidate names an external package. Path
// keywords referring back to the current tree and standard-distribution
// names are rejected.
func (s *Scanner) filter(candidate string) (string, bool) {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return "", false
	}
	switch candidate {
	case "self", "super", "crate":
		return "", false
	}
	if !identPattern.MatchString(candidate) {
		return "", false
	}
	if _, ok := s.stdCrates[candidate]; ok {
		return "", false
	}
	return candidate, true
}

// dropTestArtifacts removes names that are almost always test-harness
// modules rather than registry packages. The extractor cannot tell a
// `mod my_tests` path from a package root, so the fix happens after the
// whole tree has been merged.
func dropTestArtifacts(refs refset.Set) {
	refs.Retain(func(name string, _ *refset.Reference) bool {
		if name == "test" || name == "tempfile" {
			return false
		}
		if strings.HasSuffix(name, "_test") || strings.HasSuffix(name, "_tests") {
			return false
		}
		if strings.HasPrefix(name, "crate") {
			return false
		}
		return true
	})
}
