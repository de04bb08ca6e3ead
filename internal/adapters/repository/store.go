// Package repository moves message files between the intake, archive and
// output directories.
package repository

import (
	"context"
	"time"
)

// File is a message file waiting in the intake directory.
type File struct {
	Name    string
	Path    string
	ModTime time.Time
	Size    int64
}

// Store provides access to the message directories.
type Store interface {
	// Oldest returns the intake file with the earliest modification time.
	// Returns ErrEmptyIntake when no message file is waiting.
	Oldest(ctx context.Context) (File, error)

	// Archive moves f into the archive directory under the same name and
	// returns its new path.
	Archive(ctx context.Context, f File) (string, error)

	// Read returns the content of the file at path.
	Read(ctx context.Context, path string) ([]byte, error)

	// Write stores data as name in the output directory. resend reports
	// that a file of that name already existed and was replaced.
	Write(ctx context.Context, name string, data []byte) (path string, resend bool, err error)

	// Exists reports whether name is present in the output directory.
	Exists(ctx context.Context, name string) (bool, error)
}
