package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"cinedolly/internal/generation"

	"github.com/gabriel-vasile/mimetype"
)

var (
	errImageRequired = errors.New("image required")
	errInvalidImage  = errors.New("not an image")
	errTooLarge      = errors.New("image too large")
)

// readImagePayload reads the "image" form file and sniffs its type from the bytes.
func (a *App) readImagePayload(w http.ResponseWriter, r *http.Request) (generation.ImagePayload, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, a.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(a.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return generation.ImagePayload{}, "", errTooLarge
		}
		return generation.ImagePayload{}, "", errImageRequired
	}
	mood := r.FormValue("mood")

	file, header, err := r.FormFile("image")
	if err != nil {
		return generation.ImagePayload{}, mood, errImageRequired
	}
	defer file.Close()
	if header.Size > a.MaxUploadBytes {
		return generation.ImagePayload{}, mood, errTooLarge
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return generation.ImagePayload{}, mood, err
	}
	if len(data) == 0 {
		return generation.ImagePayload{}, mood, errImageRequired
	}
	mime := mimetype.Detect(data)
	if !strings.HasPrefix(mime.String(), "image/") {
		return generation.ImagePayload{}, mood, errInvalidImage
	}
	return generation.ImagePayload{Data: data, MIMEType: mime.String()}, mood, nil
}
