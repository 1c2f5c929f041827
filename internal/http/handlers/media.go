package handlers

import (
	"errors"
	"net/http"

	"cinedolly/internal/media"

	"github.com/go-chi/chi/v5"
)

const downloadName = "cinematic_dolly.mp4"

// ServeMedia serves a video handle with range support.
func (a *App) ServeMedia(w http.ResponseWriter, r *http.Request) {
	f, h, err := a.Media.Open(chi.URLParam(r, "id"))
	if errors.Is(err, media.ErrNotFound) {
		a.error(w, r, http.StatusNotFound, codeNotFound)
		return
	}
	if err != nil {
		a.Logger.Error().Err(err).Msg("media: open")
		a.error(w, r, http.StatusInternalServerError, codeGeneric)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", h.MIMEType)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	if r.URL.Query().Get("download") == "1" {
		w.Header().Set("Content-Disposition", `attachment; filename="`+downloadName+`"`)
	}
	http.ServeContent(w, r, downloadName, h.CreatedAt, f)
}
