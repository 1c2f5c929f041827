package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"cinedolly/internal/infra"
	"cinedolly/internal/infra/credentials"
	"cinedolly/internal/media"
	"cinedolly/internal/studio"
)

// App carries the collaborators shared by every handler.
type App struct {
	Session        *studio.Session
	Selector       credentials.Selector
	Media          *media.Library
	Logger         infra.Logger
	MaxUploadBytes int64

	// Background is canceled on shutdown to stop a running generation.
	Background context.Context
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// error writes the error envelope with the message for code in the request locale.
func (a *App) error(w http.ResponseWriter, r *http.Request, status int, code string) {
	a.json(w, status, errorBody{Error: errorDetail{Code: code, Message: localize(r, code)}})
}
