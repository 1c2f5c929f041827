package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cinedolly/internal/infra"
	"cinedolly/internal/prompt"
)

const (
	// DefaultPollInterval is the fixed wait before every status check.
	DefaultPollInterval = 10 * time.Second

	initialPercent  = 10
	percentPerPoll  = 5
	maxPollPercent  = 95
	finalizePercent = 98

	defaultVideoMIME = "video/mp4"
)

// Options tunes the polling loop. A zero MaxPolls polls until the job
// finishes.
type Options struct {
	PollInterval time.Duration
	MaxPolls     int
	Output       OutputConfig
	Sleeper      Sleeper
}

// Orchestrator runs one generation at a time against a Provider. It holds no
// per-call state, so a single value may be reused for sequential calls.
type Orchestrator struct {
	provider Provider
	opts     Options
	logger   infra.Logger
}

// New wires an orchestrator. Zero-valued options fall back to the defaults.
func New(provider Provider, opts Options, logger infra.Logger) *Orchestrator {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.MaxPolls < 0 {
		opts.MaxPolls = 0
	}
	if opts.Output == (OutputConfig{}) {
		opts.Output = DefaultOutput
	}
	if opts.Sleeper == nil {
		opts.Sleeper = timerSleeper{}
	}
	return &Orchestrator{provider: provider, opts: opts, logger: logger}
}

// Generate submits the image, polls until the job is terminal and downloads
// the first generated video. Every failure is returned as *Error.
func (o *Orchestrator) Generate(ctx context.Context, img ImagePayload, mood string, onProgress ProgressFunc) (*Video, error) {
	if o == nil || o.provider == nil {
		return nil, &Error{Kind: KindGeneric, Message: "video provider not configured"}
	}
	if len(img.Data) == 0 {
		return nil, &Error{Kind: KindGeneric, Message: "image payload is required"}
	}
	report := func(message string, percent int) {
		if onProgress != nil {
			onProgress(Progress{Message: message, Percent: percent})
		}
	}

	report("Initializing video generation...", initialPercent)
	job, err := o.provider.Submit(ctx, Submission{
		Prompt: prompt.Compose(mood),
		Image:  img,
		Output: o.opts.Output,
	})
	if err != nil {
		o.logger.Warn().Err(err).Msg("generation: submit failed")
		return nil, failure(KindGeneric, err)
	}
	o.logger.Info().Str("job", job.Handle).Bool("done", job.Done).Msg("generation: job submitted")

	polls := 0
	for !job.Done {
		if o.opts.MaxPolls > 0 && polls >= o.opts.MaxPolls {
			o.logger.Warn().Str("job", job.Handle).Int("polls", polls).Msg("generation: poll limit reached")
			return nil, failure(KindTimeout, ErrTimeout)
		}
		polls++
		percent := pollPercent(polls)
		report(fmt.Sprintf("Processing video frames... (%ds elapsed)", polls*int(o.opts.PollInterval/time.Second)), percent)

		if err := o.opts.Sleeper.Sleep(ctx, o.opts.PollInterval); err != nil {
			return nil, failure(KindGeneric, err)
		}

		next, err := o.provider.Poll(ctx, job)
		if err != nil {
			kind := ClassifyPollError(err)
			o.logger.Warn().Err(err).Str("job", job.Handle).Int("poll", polls).Str("kind", string(kind)).Msg("generation: status poll failed")
			return nil, failure(kind, err)
		}
		if next.Handle == "" {
			next.Handle = job.Handle
		}
		job = next
		o.logger.Debug().Str("job", job.Handle).Int("poll", polls).Int("percent", percent).Bool("done", job.Done).Msg("generation: polled")
	}

	report("Finalizing video file...", finalizePercent)
	uri := firstVideoURI(job)
	if uri == "" {
		o.logger.Warn().Str("job", job.Handle).Msg("generation: job finished without output")
		return nil, failure(KindNoOutput, ErrNoOutput)
	}

	data, mimeType, err := o.provider.Fetch(ctx, uri)
	if err != nil {
		o.logger.Warn().Err(err).Str("job", job.Handle).Msg("generation: download failed")
		return nil, failure(KindGeneric, err)
	}
	if len(data) == 0 {
		return nil, failure(KindNoOutput, ErrNoOutput)
	}
	if mimeType == "" {
		mimeType = defaultVideoMIME
	}
	o.logger.Info().Str("job", job.Handle).Int("polls", polls).Int("bytes", len(data)).Msg("generation: video ready")
	return &Video{Data: data, MIMEType: mimeType}, nil
}

func pollPercent(polls int) int {
	return min(initialPercent+polls*percentPerPoll, maxPollPercent)
}

// firstVideoURI mirrors the provider contract: only the first descriptor is
// considered.
func firstVideoURI(job Job) string {
	if len(job.VideoURIs) == 0 {
		return ""
	}
	return job.VideoURIs[0]
}

// IsCanceled reports whether err ended a generation because its context was
// canceled or timed out.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
