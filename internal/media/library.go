// Package media keeps downloaded videos addressable by an opaque id until the
// presentation layer releases them.
package media

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"cinedolly/internal/storage"
)

// ErrNotFound is returned for unknown or released handles.
var ErrNotFound = errors.New("media: not found")

// Handle is a locally resolvable video resource.
type Handle struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	MIMEType  string    `json:"mime_type"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`

	key string
}

// Library tracks live handles on top of a FileStore.
type Library struct {
	store   *storage.FileStore
	urlBase string

	mu      sync.Mutex
	handles map[string]*Handle
}

// NewLibrary creates a library; urlBase prefixes handle URLs, e.g. "/v1/media".
func NewLibrary(store *storage.FileStore, urlBase string) *Library {
	return &Library{store: store, urlBase: urlBase, handles: make(map[string]*Handle)}
}

// Put stores data and returns a handle that stays valid until Release.
func (l *Library) Put(ctx context.Context, data []byte, mimeType string) (*Handle, error) {
	if len(data) == 0 {
		return nil, errors.New("media: empty content")
	}
	id := uuid.NewString()
	key, err := l.store.Write(ctx, fmt.Sprintf("videos/%s%s", id, extensionFor(mimeType)), data)
	if err != nil {
		return nil, err
	}
	h := &Handle{
		ID:        id,
		URL:       l.urlBase + "/" + id,
		MIMEType:  mimeType,
		Size:      int64(len(data)),
		CreatedAt: time.Now().UTC(),
		key:       key,
	}
	l.mu.Lock()
	l.handles[id] = h
	l.mu.Unlock()
	return h, nil
}

// Get returns the handle metadata.
func (l *Library) Get(id string) (*Handle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	h, ok := l.handles[id]
	if !ok {
		return nil, ErrNotFound
	}
	copy := *h
	return &copy, nil
}

// Open returns the file backing id along with its handle.
func (l *Library) Open(id string) (*os.File, *Handle, error) {
	h, err := l.Get(id)
	if err != nil {
		return nil, nil, err
	}
	f, err := l.store.Open(h.key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	return f, h, nil
}

// Release forgets id and deletes its file. Unknown ids are ignored.
func (l *Library) Release(id string) error {
	l.mu.Lock()
	h, ok := l.handles[id]
	delete(l.handles, id)
	l.mu.Unlock()
	if !ok {
		return nil
	}
	return l.store.Delete(h.key)
}

// ReleaseAll drops every live handle.
func (l *Library) ReleaseAll() error {
	l.mu.Lock()
	ids := make([]string, 0, len(l.handles))
	for id := range l.handles {
		ids = append(ids, id)
	}
	l.mu.Unlock()
	var errs []error
	for _, id := range ids {
		if err := l.Release(id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of live handles.
func (l *Library) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.handles)
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "video/mp4", "":
		return ".mp4"
	case "video/webm":
		return ".webm"
	case "video/quicktime":
		return ".mov"
	}
	if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}
