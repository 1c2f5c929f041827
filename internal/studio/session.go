// Package studio holds the generation state shown to the user: one generation
// at a time, the current progress, and the resulting video until released.
package studio

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"cinedolly/internal/generation"
	"cinedolly/internal/infra"
	"cinedolly/internal/media"
)

// ErrBusy is returned when a generation is already running.
var ErrBusy = errors.New("studio: a generation is already running")

// Generator is satisfied by *generation.Orchestrator.
type Generator interface {
	Generate(ctx context.Context, img generation.ImagePayload, mood string, onProgress generation.ProgressFunc) (*generation.Video, error)
}

// Resources stores finished videos as releasable handles.
type Resources interface {
	Put(ctx context.Context, data []byte, mimeType string) (*media.Handle, error)
	Release(id string) error
}

// State mirrors what the UI renders.
type State struct {
	ID           string     `json:"id,omitempty"`
	IsGenerating bool       `json:"is_generating"`
	Status       string     `json:"status"`
	Progress     int        `json:"progress"`
	VideoURL     string     `json:"video_url,omitempty"`
	MediaID      string     `json:"media_id,omitempty"`
	Error        string     `json:"error,omitempty"`
	ErrorCode    string     `json:"error_code,omitempty"`
	KeyExpired   bool       `json:"key_expired"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

// Session serializes generations and tracks their state.
type Session struct {
	gen       Generator
	resources Resources
	logger    infra.Logger
	now       func() time.Time

	mu    sync.Mutex
	state State
	wg    sync.WaitGroup
}

func NewSession(gen Generator, resources Resources, logger infra.Logger) *Session {
	return &Session{gen: gen, resources: resources, logger: logger, now: time.Now}
}

// State returns a snapshot of the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start launches a generation in the background. ctx bounds the whole
// generation, not just the call. The previous video, if any, is released.
func (s *Session) Start(ctx context.Context, img generation.ImagePayload, mood string) (State, error) {
	s.mu.Lock()
	if s.state.IsGenerating {
		s.mu.Unlock()
		return State{}, ErrBusy
	}
	previous := s.state.MediaID
	started := s.now().UTC()
	s.state = State{
		ID:           uuid.NewString(),
		IsGenerating: true,
		Status:       "Starting...",
		StartedAt:    &started,
	}
	snapshot := s.state
	s.wg.Add(1)
	s.mu.Unlock()

	s.release(previous)

	go s.run(ctx, snapshot.ID, img, mood)
	return snapshot, nil
}

// Reset releases the current video and clears the state. It returns ErrBusy
// and changes nothing while a generation is running.
func (s *Session) Reset() error {
	s.mu.Lock()
	if s.state.IsGenerating {
		s.mu.Unlock()
		return ErrBusy
	}
	previous := s.state.MediaID
	keyExpired := s.state.KeyExpired
	s.state = State{KeyExpired: keyExpired}
	s.mu.Unlock()
	return s.release(previous)
}

// ClearKeyExpired is called once a new key has been selected.
func (s *Session) ClearKeyExpired() {
	s.mu.Lock()
	s.state.KeyExpired = false
	s.mu.Unlock()
}

// Wait blocks until the running generation, if any, has settled.
func (s *Session) Wait() {
	s.wg.Wait()
}

func (s *Session) run(ctx context.Context, id string, img generation.ImagePayload, mood string) {
	defer s.wg.Done()
	log := s.logger.With().Str("generation", id).Logger()

	video, err := s.gen.Generate(ctx, img, mood, func(p generation.Progress) {
		s.update(id, func(st *State) {
			st.Status = p.Message
			st.Progress = p.Percent
		})
	})
	if err != nil {
		s.fail(id, err)
		log.Warn().Err(err).Str("kind", string(generation.KindOf(err))).Msg("studio: generation failed")
		return
	}

	handle, err := s.resources.Put(ctx, video.Data, video.MIMEType)
	if err != nil {
		s.fail(id, err)
		log.Error().Err(err).Msg("studio: storing video failed")
		return
	}
	finished := s.now().UTC()
	if !s.update(id, func(st *State) {
		st.IsGenerating = false
		st.Status = "Completed"
		st.Progress = 100
		st.VideoURL = handle.URL
		st.MediaID = handle.ID
		st.FinishedAt = &finished
	}) {
		s.release(handle.ID)
		return
	}
	log.Info().Str("media", handle.ID).Int64("bytes", handle.Size).Msg("studio: generation completed")
}

func (s *Session) fail(id string, err error) {
	finished := s.now().UTC()
	kind := generation.KindOf(err)
	s.update(id, func(st *State) {
		st.IsGenerating = false
		st.FinishedAt = &finished
		st.ErrorCode = string(kind)
		st.Error = err.Error()
		if kind == generation.KindCredentialExpired {
			st.KeyExpired = true
		}
	})
}

// update applies fn when id is still the current generation.
func (s *Session) update(id string, fn func(*State)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.ID != id {
		return false
	}
	fn(&s.state)
	return true
}

func (s *Session) release(mediaID string) error {
	if mediaID == "" || s.resources == nil {
		return nil
	}
	if err := s.resources.Release(mediaID); err != nil {
		s.logger.Warn().Err(err).Str("media", mediaID).Msg("studio: release failed")
		return err
	}
	return nil
}
