package credentials

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// ErrSelectorUnavailable means the environment cannot select keys
// interactively. Callers surface it as a notice, not a failure.
var ErrSelectorUnavailable = errors.New("API key selection is not available in this environment")

// Selector is the host's key selection mechanism.
type Selector interface {
	HasSelectedKey(ctx context.Context) (bool, error)
	OpenKeySelector(ctx context.Context) error
	APIKey(ctx context.Context) (string, error)
}

// KeySetter is implemented by selectors that accept a key directly.
type KeySetter interface {
	SelectKey(ctx context.Context, key string) error
}

// EnvSelector serves a fixed key from configuration.
type EnvSelector struct {
	key string
}

func NewEnvSelector(key string) *EnvSelector {
	return &EnvSelector{key: strings.TrimSpace(key)}
}

func (e *EnvSelector) HasSelectedKey(context.Context) (bool, error) {
	return e.key != "", nil
}

func (e *EnvSelector) OpenKeySelector(context.Context) error {
	return ErrSelectorUnavailable
}

func (e *EnvSelector) APIKey(context.Context) (string, error) {
	return e.key, nil
}

// StoreSelector keeps the selection in the credential store. Opening the
// selector drops the current key so the next request must provide a new one.
// APIKey serves a cached non-empty key; HasSelectedKey always re-reads the
// store so keys written by other processes take effect.
type StoreSelector struct {
	store *Store

	mu     sync.Mutex
	cached string
}

func NewStoreSelector(store *Store) *StoreSelector {
	return &StoreSelector{store: store}
}

func (s *StoreSelector) HasSelectedKey(ctx context.Context) (bool, error) {
	key, err := s.load(ctx)
	if err != nil {
		return false, err
	}
	return key != "", nil
}

func (s *StoreSelector) OpenKeySelector(ctx context.Context) error {
	if err := s.store.ClearGeminiAPIKey(ctx); err != nil {
		return err
	}
	s.remember("")
	return nil
}

func (s *StoreSelector) SelectKey(ctx context.Context, key string) error {
	if err := s.store.SetGeminiAPIKey(ctx, key); err != nil {
		return err
	}
	s.remember(strings.TrimSpace(key))
	return nil
}

func (s *StoreSelector) APIKey(ctx context.Context) (string, error) {
	s.mu.Lock()
	key := s.cached
	s.mu.Unlock()
	if key != "" {
		return key, nil
	}
	return s.load(ctx)
}

func (s *StoreSelector) load(ctx context.Context) (string, error) {
	key, err := s.store.GeminiAPIKey(ctx)
	if err != nil {
		return "", err
	}
	s.remember(key)
	return key, nil
}

func (s *StoreSelector) remember(key string) {
	s.mu.Lock()
	s.cached = key
	s.mu.Unlock()
}

var (
	_ Selector  = (*EnvSelector)(nil)
	_ Selector  = (*StoreSelector)(nil)
	_ KeySetter = (*StoreSelector)(nil)
)
