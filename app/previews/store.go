package previews

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/conteo/inventory-admin/app/api"
	"github.com/conteo/inventory-admin/app/form"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrEmptyFile is returned when a preview is requested for a file without
// content.
var ErrEmptyFile = errors.New("preview of an empty file")

type blob struct {
	contentType string
	data        []byte
	createdAt   time.Time
}

// Store keeps the bytes of locally selected images so the admin screen can
// show them before they are uploaded. It implements form.PreviewStore.
type Store struct {
	mu     sync.RWMutex
	prefix string
	blobs  map[string]blob
}

// NewStore returns a store whose URLs look like <prefix><id>.
func NewStore(prefix string) *Store {
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &Store{
		prefix: prefix,
		blobs:  map[string]blob{},
	}
}

var _ form.PreviewStore = (*Store)(nil)

func (s *Store) Acquire(f *form.LocalFile) (string, error) {
	if f == nil || len(f.Data) == 0 {
		return "", ErrEmptyFile
	}
	id := uuid.NewString()

	s.mu.Lock()
	s.blobs[id] = blob{contentType: f.ContentType, data: f.Data, createdAt: time.Now()}
	n := len(s.blobs)
	s.mu.Unlock()

	zap.L().Debug("preview acquired", zap.String("id", id), zap.String("file", f.Name), zap.Int("live", n))
	return s.prefix + id, nil
}

func (s *Store) Release(url string) {
	id := strings.TrimPrefix(url, s.prefix)

	s.mu.Lock()
	_, ok := s.blobs[id]
	delete(s.blobs, id)
	n := len(s.blobs)
	s.mu.Unlock()

	if !ok {
		zap.L().Warn("release of unknown preview", zap.String("url", url))
		return
	}
	zap.L().Debug("preview released", zap.String("id", id), zap.Int("live", n))
}

// Len reports how many previews are alive.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}

// HandleGet serves GET /previews/{id}.
func (s *Store) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	s.mu.RLock()
	b, ok := s.blobs[id]
	s.mu.RUnlock()

	if !ok {
		api.Error(w, http.StatusNotFound, "Preview not found")
		return
	}
	w.Header().Set("Content-Type", b.contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(b.data)))
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Last-Modified", b.createdAt.UTC().Format(http.TimeFormat))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b.data)
}
