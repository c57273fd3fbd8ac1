package partdetection

import (
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/tphakala/partdetect/internal/errors"
)

// MediaStore persists uploaded image bytes.
type MediaStore interface {
	// Save stores r and returns the path to record on the image row.
	Save(r io.Reader) (string, error)
	Remove(path string) error
}

// FileMediaStore writes images as uuid-named .jpg files under Dir.
type FileMediaStore struct {
	Dir string
}

// NewFileMediaStore creates dir if needed.
func NewFileMediaStore(dir string) (*FileMediaStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, errors.New(err).
			Component("partdetection").
			Category(errors.CategoryFileIO).
			Context("media_dir", dir).
			Build()
	}
	return &FileMediaStore{Dir: dir}, nil
}

func (s *FileMediaStore) Save(r io.Reader) (string, error) {
	path := filepath.Join(s.Dir, uuid.NewString()+".jpg")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return "", errors.New(err).
			Component("partdetection").
			Category(errors.CategoryFileIO).
			Context("operation", "create_image_file").
			Build()
	}

	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", errors.New(err).
			Component("partdetection").
			Category(errors.CategoryFileIO).
			Context("operation", "write_image_file").
			Build()
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", errors.New(err).
			Component("partdetection").
			Category(errors.CategoryFileIO).
			Context("operation", "close_image_file").
			Build()
	}
	return path, nil
}

// Remove deletes path. A missing file is not an error.
func (s *FileMediaStore) Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
