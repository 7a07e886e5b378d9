package files

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// allowedExtensions is the attachment allow-list checked before anything is
// written to disk.
var allowedExtensions = map[string]struct{}{
	"txt": {}, "pdf": {}, "png": {}, "jpg": {}, "jpeg": {}, "gif": {},
	"doc": {}, "docx": {}, "xls": {}, "xlsx": {}, "zip": {}, "rar": {},
}

// AllowedExtension returns the lowercased extension of the given filename and
// whether it is on the allow-list.
func AllowedExtension(filename string) (string, bool) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if ext == "" {
		return "", false
	}
	_, ok := allowedExtensions[ext]
	return ext, ok
}

type Storage interface {
	Save(r io.Reader, ext string) (key string, size int64, err error)
	Open(key string) (io.ReadCloser, error)
	Remove(key string) error
	SniffType(key string) (string, error)
}

// Disk stores attachment bytes on the local filesystem under random keys.
// Callers only ever see the key, never a path.
type Disk struct {
	dir string
}

func NewDisk(dir string) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Disk{dir: dir}, nil
}

func (d *Disk) Save(r io.Reader, ext string) (string, int64, error) {
	key := uuid.NewString() + "." + ext

	f, err := os.Create(filepath.Join(d.dir, key))
	if err != nil {
		log.Printf("Error creating file %s: %v", key, err)
		return "", 0, err
	}

	size, err := io.Copy(f, r)
	if err != nil {
		f.Close()
		os.Remove(f.Name())
		log.Printf("Error writing file %s: %v", key, err)
		return "", 0, err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", 0, err
	}
	return key, size, nil
}

func (d *Disk) Open(key string) (io.ReadCloser, error) {
	// Keys are uuid-based and come from the database, but never follow one
	// that looks like a path.
	if key != filepath.Base(key) {
		return nil, os.ErrNotExist
	}
	return os.Open(filepath.Join(d.dir, key))
}

func (d *Disk) Remove(key string) error {
	if key != filepath.Base(key) {
		return os.ErrNotExist
	}
	return os.Remove(filepath.Join(d.dir, key))
}

// SniffType detects the content type from stored bytes, used when the client
// did not declare one.
func (d *Disk) SniffType(key string) (string, error) {
	if key != filepath.Base(key) {
		return "", os.ErrNotExist
	}
	mtype, err := mimetype.DetectFile(filepath.Join(d.dir, key))
	if err != nil {
		return "", err
	}
	return mtype.String(), nil
}
