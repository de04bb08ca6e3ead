package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
)

// DirStore is a Store on three local directories.
type DirStore struct {
	intake  string
	archive string
	output  string
	ext     string
	mode    os.FileMode
}

var _ Store = (*DirStore)(nil)

// NewDirStore constructs a DirStore. Intake defaults to ".xml" files.
func NewDirStore(intake, archive, output string, opts ...Option) *DirStore {
	s := &DirStore{
		intake:  intake,
		archive: archive,
		output:  output,
		ext:     ".xml",
		mode:    0o644,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Oldest implements Store. Creation time is not portable, so modification
// time decides; ties go to the lexically smaller name. Hidden files are
// skipped since writers stage them there.
func (s *DirStore) Oldest(ctx context.Context) (File, error) {
	if err := ctx.Err(); err != nil {
		return File{}, err
	}
	entries, err := os.ReadDir(s.intake)
	if err != nil {
		return File{}, fmt.Errorf("%w: list intake: %w", ErrIO, err)
	}

	var files []File
	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() || strings.HasPrefix(name, ".") {
			continue
		}
		if s.ext != "" && !strings.HasSuffix(strings.ToLower(name), s.ext) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return File{}, fmt.Errorf("%w: stat %s: %w", ErrIO, name, err)
		}
		files = append(files, File{
			Name:    name,
			Path:    filepath.Join(s.intake, name),
			ModTime: info.ModTime(),
			Size:    info.Size(),
		})
	}
	if len(files) == 0 {
		return File{}, ErrEmptyIntake
	}
	sort.Slice(files, func(i, j int) bool {
		if !files[i].ModTime.Equal(files[j].ModTime) {
			return files[i].ModTime.Before(files[j].ModTime)
		}
		return files[i].Name < files[j].Name
	})
	return files[0], nil
}

// Archive implements Store. A rename is used when both directories share a
// device, otherwise the file is copied and the original removed.
func (s *DirStore) Archive(ctx context.Context, f File) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dst := filepath.Join(s.archive, f.Name)
	err := os.Rename(f.Path, dst)
	if err == nil {
		return dst, nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return "", fmt.Errorf("%w: archive %s: %w", ErrIO, f.Name, err)
	}
	if err := copyFile(f.Path, dst, s.mode); err != nil {
		return "", fmt.Errorf("%w: archive %s: %w", ErrIO, f.Name, err)
	}
	if err := os.Remove(f.Path); err != nil {
		return "", fmt.Errorf("%w: remove %s after copy: %w", ErrIO, f.Name, err)
	}
	return dst, nil
}

// Read implements Store.
func (s *DirStore) Read(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrIO, filepath.Base(path), err)
	}
	return data, nil
}

// Write implements Store. Data is staged in a hidden temp file of the output
// directory and renamed into place, so readers never see a partial file.
func (s *DirStore) Write(ctx context.Context, name string, data []byte) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	if name == "" || name != filepath.Base(name) {
		return "", false, fmt.Errorf("%w: invalid output name %q", ErrIO, name)
	}
	resend, err := s.Exists(ctx, name)
	if err != nil {
		return "", false, err
	}

	dst := filepath.Join(s.output, name)
	tmp, err := os.CreateTemp(s.output, "."+name+".*.tmp")
	if err != nil {
		return "", false, fmt.Errorf("%w: stage %s: %w", ErrIO, name, err)
	}
	defer os.Remove(tmp.Name()) // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", false, fmt.Errorf("%w: write %s: %w", ErrIO, name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", false, fmt.Errorf("%w: sync %s: %w", ErrIO, name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", false, fmt.Errorf("%w: close %s: %w", ErrIO, name, err)
	}
	if err := os.Chmod(tmp.Name(), s.mode); err != nil {
		return "", false, fmt.Errorf("%w: chmod %s: %w", ErrIO, name, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", false, fmt.Errorf("%w: publish %s: %w", ErrIO, name, err)
	}
	return dst, resend, nil
}

// Exists implements Store.
func (s *DirStore) Exists(_ context.Context, name string) (bool, error) {
	_, err := os.Stat(filepath.Join(s.output, name))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("%w: stat %s: %w", ErrIO, name, err)
	}
}

func copyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
