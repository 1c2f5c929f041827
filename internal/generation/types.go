// Package generation drives a single image-to-video job from submission to a
// downloaded result.
package generation

import (
	"context"
	"time"
)

// ImagePayload is the source photo as uploaded by the user.
type ImagePayload struct {
	Data     []byte
	MIMEType string
}

// OutputConfig is the fixed output shape requested from the provider.
type OutputConfig struct {
	NumberOfVideos int
	Resolution     string
	AspectRatio    string
}

// DefaultOutput requests one vertical 1080p video.
var DefaultOutput = OutputConfig{
	NumberOfVideos: 1,
	Resolution:     "1080p",
	AspectRatio:    "9:16",
}

// Submission is what the orchestrator hands to the provider.
type Submission struct {
	Prompt string
	Image  ImagePayload
	Output OutputConfig
}

// Job is the provider's view of an in-flight generation. Handle is opaque.
// VideoURIs keeps one entry per generated video descriptor, empty when the
// descriptor carried no location.
type Job struct {
	Handle    string
	Done      bool
	VideoURIs []string
}

// Progress is an informational status update.
type Progress struct {
	Message string `json:"message"`
	Percent int    `json:"percent"`
}

// ProgressFunc receives progress updates. It is called from the goroutine
// running Generate.
type ProgressFunc func(Progress)

// Video is the downloaded result.
type Video struct {
	Data     []byte
	MIMEType string
}

// Provider is the remote video generation service.
type Provider interface {
	Submit(ctx context.Context, sub Submission) (Job, error)
	Poll(ctx context.Context, job Job) (Job, error)
	Fetch(ctx context.Context, uri string) ([]byte, string, error)
}

// Sleeper waits between status polls.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type timerSleeper struct{}

func (timerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
