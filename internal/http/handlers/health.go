package handlers

import (
	"net/http"
)

type healthResponse struct {
	Status     string `json:"status"`
	Generating bool   `json:"generating"`
	Videos     int    `json:"videos"`
}

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, healthResponse{
		Status:     "ok",
		Generating: a.Session.State().IsGenerating,
		Videos:     a.Media.Len(),
	})
}
