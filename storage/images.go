package storage

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ErrNotStored is returned for locators this store did not hand out.
var ErrNotStored = errors.New("image is not managed by this store")

// DiskStore saves uploaded product images in a local directory and hands
// out public URLs of the form <baseURL>/uploads/<uuid><ext>.
type DiskStore struct {
	dir     string
	baseURL string
}

func NewDiskStore(dir, baseURL string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create upload dir %s", dir)
	}
	return &DiskStore{
		dir:     dir,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}, nil
}

// Save writes the image and returns its public locator.
func (s *DiskStore) Save(contentType string, r io.Reader) (string, error) {
	ext := ""
	if m := mimetype.Lookup(contentType); m != nil {
		ext = m.Extension()
	}
	name := fmt.Sprintf("%s%s", uuid.New().String(), ext)

	f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", errors.Wrap(err, "create image file")
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		_ = os.Remove(f.Name())
		return "", errors.Wrap(err, "write image file")
	}
	if err := f.Close(); err != nil {
		return "", errors.Wrap(err, "close image file")
	}

	ref := fmt.Sprintf("%s/uploads/%s", s.baseURL, name)
	zap.L().Info("image stored", zap.String("ref", ref))
	return ref, nil
}

// Delete removes a stored image. Locators from elsewhere return
// ErrNotStored and are left alone.
func (s *DiskStore) Delete(ref string) error {
	name, ok := s.nameOf(ref)
	if !ok {
		return ErrNotStored
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "remove image %s", name)
	}
	zap.L().Info("image removed", zap.String("ref", ref))
	return nil
}

// Handler serves the stored files under /uploads/.
func (s *DiskStore) Handler() http.Handler {
	return http.StripPrefix("/uploads/", http.FileServer(http.Dir(s.dir)))
}

func (s *DiskStore) nameOf(ref string) (string, bool) {
	prefix := s.baseURL + "/uploads/"
	if !strings.HasPrefix(ref, prefix) {
		return "", false
	}
	name := strings.TrimPrefix(ref, prefix)
	if name == "" || name != filepath.Base(name) {
		return "", false
	}
	return name, true
}
