package handlers

import (
	"context"
	"errors"
	"net/http"

	"cinedolly/internal/generation"
	"cinedolly/internal/studio"
)

type videoState struct {
	studio.State
	Message string `json:"message,omitempty"`
}

// background bounds generations, which outlive the request that started them.
func (a *App) background() context.Context {
	if a.Background != nil {
		return a.Background
	}
	return context.Background()
}

func (a *App) view(r *http.Request, st studio.State) videoState {
	out := videoState{State: st}
	switch generation.Kind(st.ErrorCode) {
	case "":
	case generation.KindCredentialExpired:
		out.Message = localize(r, codeCredentialExpired)
	case generation.KindNoOutput:
		out.Message = localize(r, codeNoOutput)
	case generation.KindTimeout:
		out.Message = localize(r, codeTimeout)
	default:
		out.Message = st.Error
		if out.Message == "" {
			out.Message = localize(r, codeGeneric)
		}
	}
	return out
}

func (a *App) GenerateVideo(w http.ResponseWriter, r *http.Request) {
	img, mood, err := a.readImagePayload(w, r)
	switch {
	case errors.Is(err, errTooLarge):
		a.error(w, r, http.StatusRequestEntityTooLarge, codeTooLarge)
		return
	case errors.Is(err, errInvalidImage):
		a.error(w, r, http.StatusBadRequest, codeInvalidImage)
		return
	case err != nil:
		a.error(w, r, http.StatusBadRequest, codeImageRequired)
		return
	}

	ok, err := a.hasKey(r)
	if err != nil {
		a.Logger.Error().Err(err).Msg("videos: key check")
		a.error(w, r, http.StatusInternalServerError, codeGeneric)
		return
	}
	if !ok {
		a.error(w, r, http.StatusPreconditionFailed, codeKeyRequired)
		return
	}

	st, err := a.Session.Start(a.background(), img, mood)
	if errors.Is(err, studio.ErrBusy) {
		a.error(w, r, http.StatusConflict, codeBusy)
		return
	}
	if err != nil {
		a.error(w, r, http.StatusInternalServerError, codeGeneric)
		return
	}
	a.json(w, http.StatusAccepted, a.view(r, st))
}

func (a *App) CurrentVideo(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, a.view(r, a.Session.State()))
}

// ResetVideo releases the displayed video and clears the state.
func (a *App) ResetVideo(w http.ResponseWriter, r *http.Request) {
	err := a.Session.Reset()
	if errors.Is(err, studio.ErrBusy) {
		a.error(w, r, http.StatusConflict, codeBusy)
		return
	}
	if err != nil {
		a.Logger.Warn().Err(err).Msg("videos: reset")
	}
	w.WriteHeader(http.StatusNoContent)
}
