package video

import (
	"context"
	"errors"
	"fmt"

	"cinedolly/internal/generation"
	"cinedolly/internal/providers/genai"
)

// GeminiProvider adapts the Gemini client to the orchestrator's Provider.
type GeminiProvider struct {
	client *genai.Client
}

func NewGeminiProvider(client *genai.Client) *GeminiProvider {
	return &GeminiProvider{client: client}
}

func (g *GeminiProvider) Submit(ctx context.Context, sub generation.Submission) (generation.Job, error) {
	op, err := g.client.SubmitVideo(ctx, genai.VideoRequest{
		Prompt:         sub.Prompt,
		ImageBytes:     sub.Image.Data,
		ImageMIMEType:  sub.Image.MIMEType,
		NumberOfVideos: sub.Output.NumberOfVideos,
		Resolution:     sub.Output.Resolution,
		AspectRatio:    sub.Output.AspectRatio,
	})
	if err != nil {
		return generation.Job{}, err
	}
	return toJob(op)
}

func (g *GeminiProvider) Poll(ctx context.Context, job generation.Job) (generation.Job, error) {
	op, err := g.client.GetOperation(ctx, job.Handle)
	if err != nil {
		var apiErr *genai.APIError
		if errors.As(err, &apiErr) && apiErr.NotFound() {
			return generation.Job{}, fmt.Errorf("%w: %s", generation.ErrJobNotFound, apiErr.Error())
		}
		return generation.Job{}, err
	}
	return toJob(op)
}

func (g *GeminiProvider) Fetch(ctx context.Context, uri string) ([]byte, string, error) {
	return g.client.Download(ctx, uri)
}

func toJob(op *genai.Operation) (generation.Job, error) {
	if op.Done && op.Error != nil {
		if op.Error.Message != "" {
			return generation.Job{}, errors.New(op.Error.Message)
		}
		return generation.Job{}, fmt.Errorf("video operation failed with code %d", op.Error.Code)
	}
	return generation.Job{
		Handle:    op.Name,
		Done:      op.Done,
		VideoURIs: op.VideoURIs(),
	}, nil
}

var _ generation.Provider = (*GeminiProvider)(nil)
