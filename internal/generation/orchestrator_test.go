package generation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"cinedolly/internal/infra"
)

type pollStep struct {
	job Job
	err error
}

type fakeProvider struct {
	submitJob Job
	submitErr error
	steps     []pollStep
	fetchData []byte
	fetchMIME string
	fetchErr  error

	submitted  []Submission
	polled     []Job
	fetchedURI string
}

func (f *fakeProvider) Submit(ctx context.Context, sub Submission) (Job, error) {
	f.submitted = append(f.submitted, sub)
	return f.submitJob, f.submitErr
}

func (f *fakeProvider) Poll(ctx context.Context, job Job) (Job, error) {
	f.polled = append(f.polled, job)
	if len(f.steps) == 0 {
		return Job{}, errors.New("unexpected poll")
	}
	step := f.steps[0]
	f.steps = f.steps[1:]
	return step.job, step.err
}

func (f *fakeProvider) Fetch(ctx context.Context, uri string) ([]byte, string, error) {
	f.fetchedURI = uri
	return f.fetchData, f.fetchMIME, f.fetchErr
}

type fakeSleeper struct {
	slept []time.Duration
	err   error
}

func (s *fakeSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.slept = append(s.slept, d)
	return s.err
}

type progressLog struct {
	items []Progress
}

func (p *progressLog) record(pr Progress) { p.items = append(p.items, pr) }

func (p *progressLog) percents() []int {
	out := make([]int, len(p.items))
	for i, item := range p.items {
		out[i] = item.Percent
	}
	return out
}

func newTestOrchestrator(provider Provider, sleeper Sleeper, maxPolls int) *Orchestrator {
	return New(provider, Options{PollInterval: 10 * time.Second, MaxPolls: maxPolls, Sleeper: sleeper}, infra.NopLogger())
}

var testImage = ImagePayload{Data: []byte("AAAA"), MIMEType: "image/png"}

func TestGenerateHappyPath(t *testing.T) {
	provider := &fakeProvider{
		submitJob: Job{Handle: "H1"},
		steps: []pollStep{
			{job: Job{Handle: "H1"}},
			{job: Job{Handle: "H1", Done: true, VideoURIs: []string{"https://provider/video123"}}},
		},
		fetchData: []byte("VIDEODATA"),
		fetchMIME: "video/mp4",
	}
	sleeper := &fakeSleeper{}
	progress := &progressLog{}

	video, err := newTestOrchestrator(provider, sleeper, 0).Generate(context.Background(), testImage, "cozy evening light", progress.record)
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if string(video.Data) != "VIDEODATA" {
		t.Fatalf("unexpected video data: %q", video.Data)
	}
	if video.MIMEType != "video/mp4" {
		t.Fatalf("unexpected mime: %s", video.MIMEType)
	}
	if provider.fetchedURI != "https://provider/video123" {
		t.Fatalf("unexpected fetch uri: %s", provider.fetchedURI)
	}

	if len(provider.submitted) != 1 {
		t.Fatalf("expected one submission, got %d", len(provider.submitted))
	}
	sub := provider.submitted[0]
	if !strings.Contains(sub.Prompt, "Mood/Style: cozy evening light") {
		t.Fatalf("prompt missing mood: %s", sub.Prompt)
	}
	if sub.Output != DefaultOutput {
		t.Fatalf("unexpected output config: %+v", sub.Output)
	}
	if sub.Image.MIMEType != "image/png" || string(sub.Image.Data) != "AAAA" {
		t.Fatalf("unexpected image: %+v", sub.Image)
	}

	want := []int{10, 15, 20, 98}
	got := progress.percents()
	if len(got) != len(want) {
		t.Fatalf("progress mismatch: got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("progress mismatch: got %v want %v", got, want)
		}
	}
	if progress.items[0].Message != "Initializing video generation..." {
		t.Fatalf("unexpected first message: %q", progress.items[0].Message)
	}
	if progress.items[1].Message != "Processing video frames... (10s elapsed)" {
		t.Fatalf("unexpected poll message: %q", progress.items[1].Message)
	}
	if progress.items[2].Message != "Processing video frames... (20s elapsed)" {
		t.Fatalf("unexpected poll message: %q", progress.items[2].Message)
	}
	if progress.items[3].Message != "Finalizing video file..." {
		t.Fatalf("unexpected final message: %q", progress.items[3].Message)
	}

	if len(sleeper.slept) != 2 {
		t.Fatalf("expected 2 sleeps, got %d", len(sleeper.slept))
	}
	for _, d := range sleeper.slept {
		if d != 10*time.Second {
			t.Fatalf("unexpected sleep interval %s", d)
		}
	}
	for _, job := range provider.polled {
		if job.Handle != "H1" {
			t.Fatalf("poll used wrong handle: %q", job.Handle)
		}
	}
}

func TestGenerateProgressIsMonotonicAndCapped(t *testing.T) {
	const notDone = 30
	steps := make([]pollStep, 0, notDone+1)
	for i := 0; i < notDone; i++ {
		steps = append(steps, pollStep{job: Job{Handle: "H"}})
	}
	steps = append(steps, pollStep{job: Job{Handle: "H", Done: true, VideoURIs: []string{"https://provider/v"}}})
	provider := &fakeProvider{submitJob: Job{Handle: "H"}, steps: steps, fetchData: []byte("x")}
	progress := &progressLog{}

	if _, err := newTestOrchestrator(provider, &fakeSleeper{}, 0).Generate(context.Background(), testImage, "", progress.record); err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	percents := progress.percents()
	if percents[0] > 10 {
		t.Fatalf("first percent should be <= 10, got %d", percents[0])
	}
	for i := 1; i < len(percents)-1; i++ {
		if percents[i] < percents[i-1] {
			t.Fatalf("percent decreased at %d: %v", i, percents)
		}
		if percents[i] > 95 {
			t.Fatalf("percent above cap at %d: %v", i, percents)
		}
	}
	if last := percents[len(percents)-1]; last != 98 {
		t.Fatalf("final percent should be 98, got %d", last)
	}
}

func TestGenerateAlreadyDoneSkipsPolling(t *testing.T) {
	provider := &fakeProvider{
		submitJob: Job{Handle: "H", Done: true, VideoURIs: []string{"https://provider/v"}},
		fetchData: []byte("x"),
	}
	sleeper := &fakeSleeper{}
	if _, err := newTestOrchestrator(provider, sleeper, 0).Generate(context.Background(), testImage, "", nil); err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if len(sleeper.slept) != 0 || len(provider.polled) != 0 {
		t.Fatalf("expected no polling, slept=%d polled=%d", len(sleeper.slept), len(provider.polled))
	}
}

func TestGenerateCredentialExpired(t *testing.T) {
	tests := []struct {
		name  string
		prior int
		err   error
	}{
		{name: "first poll", prior: 0, err: errors.New("gemini status 404: Requested entity was not found.")},
		{name: "after several polls", prior: 4, err: errors.New("Requested entity was not found.")},
		{name: "structured not found", prior: 1, err: ErrJobNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var steps []pollStep
			for i := 0; i < tt.prior; i++ {
				steps = append(steps, pollStep{job: Job{Handle: "H"}})
			}
			steps = append(steps, pollStep{err: tt.err})
			provider := &fakeProvider{submitJob: Job{Handle: "H"}, steps: steps}

			video, err := newTestOrchestrator(provider, &fakeSleeper{}, 0).Generate(context.Background(), testImage, "", nil)
			if video != nil {
				t.Fatalf("expected no video")
			}
			if !errors.Is(err, ErrCredentialExpired) {
				t.Fatalf("expected credential expired, got %v", err)
			}
			if KindOf(err) != KindCredentialExpired {
				t.Fatalf("unexpected kind %q", KindOf(err))
			}
		})
	}
}

func TestGeneratePollFailureIsGeneric(t *testing.T) {
	provider := &fakeProvider{
		submitJob: Job{Handle: "H"},
		steps:     []pollStep{{err: errors.New("gemini status 500: backend error")}},
	}
	_, err := newTestOrchestrator(provider, &fakeSleeper{}, 0).Generate(context.Background(), testImage, "", nil)
	if KindOf(err) != KindGeneric {
		t.Fatalf("expected generic failure, got %v", err)
	}
	if err.Error() != "gemini status 500: backend error" {
		t.Fatalf("provider message should be propagated, got %q", err.Error())
	}
	if len(provider.steps) != 0 {
		t.Fatalf("poll should not be retried")
	}
}

func TestGenerateNoOutput(t *testing.T) {
	tests := []struct {
		name string
		uris []string
	}{
		{name: "no descriptors"},
		{name: "descriptor without uri", uris: []string{""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &fakeProvider{
				submitJob: Job{Handle: "H"},
				steps:     []pollStep{{job: Job{Handle: "H", Done: true, VideoURIs: tt.uris}}},
			}
			video, err := newTestOrchestrator(provider, &fakeSleeper{}, 0).Generate(context.Background(), testImage, "", nil)
			if video != nil {
				t.Fatalf("expected no video")
			}
			if !errors.Is(err, ErrNoOutput) {
				t.Fatalf("expected no output error, got %v", err)
			}
			if provider.fetchedURI != "" {
				t.Fatalf("fetch should not be attempted")
			}
		})
	}
}

func TestGenerateEmptyDownloadIsNoOutput(t *testing.T) {
	provider := &fakeProvider{
		submitJob: Job{Handle: "H", Done: true, VideoURIs: []string{"https://provider/v"}},
	}
	_, err := newTestOrchestrator(provider, &fakeSleeper{}, 0).Generate(context.Background(), testImage, "", nil)
	if !errors.Is(err, ErrNoOutput) {
		t.Fatalf("expected no output error, got %v", err)
	}
}

func TestGenerateSubmitAndFetchFailures(t *testing.T) {
	submitErr := errors.New("gemini status 400: invalid image")
	provider := &fakeProvider{submitErr: submitErr}
	_, err := newTestOrchestrator(provider, &fakeSleeper{}, 0).Generate(context.Background(), testImage, "", nil)
	if !errors.Is(err, submitErr) || KindOf(err) != KindGeneric {
		t.Fatalf("expected wrapped submit error, got %v", err)
	}

	fetchErr := errors.New("download file status 403: forbidden")
	provider = &fakeProvider{
		submitJob: Job{Handle: "H", Done: true, VideoURIs: []string{"https://provider/v"}},
		fetchErr:  fetchErr,
	}
	_, err = newTestOrchestrator(provider, &fakeSleeper{}, 0).Generate(context.Background(), testImage, "", nil)
	if !errors.Is(err, fetchErr) || KindOf(err) != KindGeneric {
		t.Fatalf("expected wrapped fetch error, got %v", err)
	}
}

func TestGenerateRequiresImage(t *testing.T) {
	provider := &fakeProvider{}
	_, err := newTestOrchestrator(provider, &fakeSleeper{}, 0).Generate(context.Background(), ImagePayload{}, "", nil)
	if KindOf(err) != KindGeneric {
		t.Fatalf("expected generic error, got %v", err)
	}
	if len(provider.submitted) != 0 {
		t.Fatalf("nothing should be submitted")
	}
}

func TestGeneratePollLimit(t *testing.T) {
	steps := []pollStep{{job: Job{Handle: "H"}}, {job: Job{Handle: "H"}}, {job: Job{Handle: "H"}}}
	provider := &fakeProvider{submitJob: Job{Handle: "H"}, steps: steps}
	_, err := newTestOrchestrator(provider, &fakeSleeper{}, 2).Generate(context.Background(), testImage, "", nil)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if len(provider.polled) != 2 {
		t.Fatalf("expected exactly 2 polls, got %d", len(provider.polled))
	}
}

func TestGenerateStopsOnCanceledContext(t *testing.T) {
	provider := &fakeProvider{submitJob: Job{Handle: "H"}}
	sleeper := &fakeSleeper{err: context.Canceled}
	_, err := newTestOrchestrator(provider, sleeper, 0).Generate(context.Background(), testImage, "", nil)
	if !IsCanceled(err) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if len(provider.polled) != 0 {
		t.Fatalf("no poll expected after cancellation")
	}
}

func TestTerminalStateExclusivity(t *testing.T) {
	scripts := [][]pollStep{
		{{job: Job{Done: true, VideoURIs: []string{"u"}}}},
		{{job: Job{}}, {job: Job{Done: true}}},
		{{job: Job{}}, {err: errors.New("boom")}},
		{{err: errors.New("Requested entity was not found")}},
	}
	for i, steps := range scripts {
		provider := &fakeProvider{submitJob: Job{Handle: "H"}, steps: steps, fetchData: []byte("v")}
		video, err := newTestOrchestrator(provider, &fakeSleeper{}, 0).Generate(context.Background(), testImage, "", nil)
		if (video == nil) == (err == nil) {
			t.Fatalf("script %d: expected exactly one of video/error, got video=%v err=%v", i, video, err)
		}
	}
}

func TestRealSleeperHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := (timerSleeper{}).Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}
	if err := (timerSleeper{}).Sleep(context.Background(), time.Millisecond); err != nil {
		t.Fatalf("unexpected sleep error: %v", err)
	}
}
