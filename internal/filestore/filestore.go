package filestore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	ErrInvalidName = errors.New("invalid file name")
	ErrOutsideRoot = errors.New("path escapes storage root")
)

type FileStore struct {
	root string
}

func New(dir string) (*FileStore, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("filestore: resolve %s: %w", dir, err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("filestore: create %s: %w", abs, err)
	}
	return &FileStore{root: abs}, nil
}

func (fs *FileStore) Root() string { return fs.root }

// SanitizeFilename drops any directory part, strips accents and keeps only [A-Za-z0-9._-].
func SanitizeFilename(name string) (string, error) {
	name = strings.ReplaceAll(name, `\`, "/")
	name = path.Base(strings.TrimSpace(name))

	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), name)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidName, err)
	}

	var b strings.Builder
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}

	out := strings.TrimLeft(b.String(), "._")
	if out == "" || strings.Trim(out, ".") == "" {
		return "", ErrInvalidName
	}
	return out, nil
}

func storageName(clean, owner string) string {
	ext := strings.ToLower(filepath.Ext(clean))
	name := strings.TrimSuffix(clean, filepath.Ext(clean))
	if name == "" {
		name = "file"
	}
	if len(name) > 50 {
		name = name[:50]
	}

	user, err := SanitizeFilename(owner)
	if err != nil {
		user = "anon"
	}
	user = strings.ReplaceAll(user, ".", "")
	if len(user) > 20 {
		user = user[:20]
	}

	ts := time.Now().UTC().Format("20060102150405")
	return fmt.Sprintf("%s_%s_%s_%s%s", name, user, ts, uuid.NewString()[:8], ext)
}

// Save writes r under subdir with a unique name and returns the slash-separated path relative
// to the root. The data goes to a temp file first and is renamed into place once synced.
func (fs *FileStore) Save(r io.Reader, subdir, originalName, owner string) (string, error) {
	clean, err := SanitizeFilename(originalName)
	if err != nil {
		return "", err
	}

	rel := path.Join(subdir, storageName(clean, owner))
	full, err := fs.Resolve(rel)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return "", fmt.Errorf("filestore: mkdir: %w", err)
	}

	tmp := full + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("filestore: create temp file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("filestore: write: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("filestore: fsync: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("filestore: close: %w", err)
	}
	if err := os.Rename(tmp, full); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("filestore: rename: %w", err)
	}
	return rel, nil
}

// Resolve maps a stored relative path to an absolute one and refuses anything outside the root.
func (fs *FileStore) Resolve(storagePath string) (string, error) {
	full := filepath.Join(fs.root, filepath.FromSlash(storagePath))
	rel, err := filepath.Rel(fs.root, full)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrOutsideRoot
	}
	return full, nil
}

// Delete ignores files that are already gone.
func (fs *FileStore) Delete(storagePath string) error {
	full, err := fs.Resolve(storagePath)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("filestore: delete %s: %w", storagePath, err)
	}
	return nil
}
