package repository

import (
	"os"
	"strings"
)

// Option applies a configuration option to the DirStore.
type Option func(*DirStore)

// WithExtension limits intake to files with the given suffix, compared
// case-insensitively. An empty suffix accepts every regular file.
func WithExtension(ext string) Option {
	return func(s *DirStore) { s.ext = strings.ToLower(ext) }
}

// WithFileMode sets the permissions of written files.
func WithFileMode(mode os.FileMode) Option {
	return func(s *DirStore) {
		if mode != 0 {
			s.mode = mode
		}
	}
}
