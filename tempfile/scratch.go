// Package tempfile manages the scratch directory that holds sorted run files
// between the chunk sort and the merge. Run files get deterministic names so
// a failed sort leaves an inspectable set of files behind.
package tempfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Scratch hands out run file paths inside one directory and removes the
// files it handed out.
type Scratch struct {
	dir    string
	prefix string

	mu    sync.Mutex
	paths []string
}

// NewScratch prepares dir (or an automatically chosen directory when dir is
// empty) for run files named with prefix.
func NewScratch(dir, prefix string) (*Scratch, error) {
	dir = GetTempDir(dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Scratch{dir: dir, prefix: prefix}, nil
}

// Dir returns the scratch directory.
func (s *Scratch) Dir() string {
	return s.dir
}

// RunPath returns the path of run i and remembers it for Remove.
func (s *Scratch) RunPath(i int) string {
	p := filepath.Join(s.dir, fmt.Sprintf("%srun-%04d", s.prefix, i))
	s.mu.Lock()
	s.paths = append(s.paths, p)
	s.mu.Unlock()
	return p
}

// Paths returns every path handed out so far.
func (s *Scratch) Paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.paths...)
}

// Remove deletes every run file handed out. Files that were never created
// are ignored.
func (s *Scratch) Remove() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	for _, p := range s.paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
		}
	}
	s.paths = nil
	return errors.Join(errs...)
}
