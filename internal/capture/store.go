// Package capture keeps uploaded capture files in one flat storage directory.
package capture

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

var (
	// ErrInvalidName is returned for names that could escape the storage
	// directory. No filesystem access happens for such names.
	ErrInvalidName = errors.New("capture: invalid file name")

	// ErrNotFound is returned when a capture does not exist.
	ErrNotFound = errors.New("capture: file not found")
)

// Extensions lists the capture container extensions the store lists.
var Extensions = []string{".npy", ".npz"}

// FileInfo describes a stored capture.
type FileInfo struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// Ext returns the extension without the leading dot.
func (f FileInfo) Ext() string {
	return strings.TrimPrefix(filepath.Ext(f.Name), ".")
}

// Store reads and writes captures under a single root directory.
type Store struct {
	dir string
}

// New creates the storage directory if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the storage root.
func (s *Store) Dir() string {
	return s.dir
}

// ValidateName rejects names that are empty or contain a parent reference, a
// path separator of either platform, or a NUL byte.
func ValidateName(name string) error {
	switch {
	case name == "",
		name == ".",
		strings.Contains(name, ".."),
		strings.ContainsAny(name, `/\`),
		strings.ContainsRune(name, 0):
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// Save writes data under name, replacing any existing capture. The data is
// written to a temporary file first and renamed into place.
func (s *Store) Save(name string, data []byte) error {
	if err := ValidateName(name); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", name, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write capture %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close capture %s: %w", name, err)
	}

	if err := os.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to store capture %s: %w", name, err)
	}
	return nil
}

// Read returns the contents of the named capture.
func (s *Store) Read(name string) ([]byte, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read capture %s: %w", name, err)
	}
	return data, nil
}

// Exists reports whether a capture with the given name is stored.
func (s *Store) Exists(name string) bool {
	if ValidateName(name) != nil {
		return false
	}
	info, err := os.Stat(filepath.Join(s.dir, name))
	return err == nil && info.Mode().IsRegular()
}

// List returns the stored captures with a recognized extension, newest first.
func (s *Store) List() ([]FileInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list storage directory: %w", err)
	}

	files := make([]FileInfo, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !hasCaptureExt(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		files = append(files, FileInfo{
			Name:    entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].ModTime.Equal(files[j].ModTime) {
			return files[i].Name > files[j].Name
		}
		return files[i].ModTime.After(files[j].ModTime)
	})
	return files, nil
}

func hasCaptureExt(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, known := range Extensions {
		if ext == known {
			return true
		}
	}
	return false
}

// FileName builds the deterministic capture name for a turbine upload.
func FileName(token string, unixTime int64, ext string) string {
	return fmt.Sprintf("capture_%s_%d.%s", token, unixTime, strings.TrimPrefix(ext, "."))
}
