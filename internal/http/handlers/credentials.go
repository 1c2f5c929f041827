package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"cinedolly/internal/infra/credentials"
)

type credentialStatus struct {
	HasKey bool   `json:"has_key"`
	Notice string `json:"notice,omitempty"`
}

type selectKeyRequest struct {
	Key string `json:"key"`
}

// hasKey reports false while the last generation ended with an expired key.
func (a *App) hasKey(r *http.Request) (bool, error) {
	if a.Session.State().KeyExpired {
		return false, nil
	}
	return a.Selector.HasSelectedKey(r.Context())
}

func (a *App) CredentialStatus(w http.ResponseWriter, r *http.Request) {
	ok, err := a.hasKey(r)
	if err != nil {
		a.Logger.Error().Err(err).Msg("credentials: status")
		a.error(w, r, http.StatusInternalServerError, codeGeneric)
		return
	}
	a.json(w, http.StatusOK, credentialStatus{HasKey: ok})
}

// OpenKeySelector asks the environment for a new key. Environments that cannot
// select keys answer with a notice instead of an error. Either way the expiry
// flag is dropped so the next generation checks the selector again.
func (a *App) OpenKeySelector(w http.ResponseWriter, r *http.Request) {
	err := a.Selector.OpenKeySelector(r.Context())
	if err != nil && !errors.Is(err, credentials.ErrSelectorUnavailable) {
		a.Logger.Error().Err(err).Msg("credentials: open selector")
		a.error(w, r, http.StatusInternalServerError, codeGeneric)
		return
	}
	a.Session.ClearKeyExpired()

	status := credentialStatus{}
	if err != nil {
		status.Notice = localize(r, codeSelectorUnavailable)
	}
	ok, keyErr := a.hasKey(r)
	if keyErr != nil {
		a.Logger.Warn().Err(keyErr).Msg("credentials: status after opening selector")
	}
	status.HasKey = ok
	a.json(w, http.StatusOK, status)
}

func (a *App) SelectKey(w http.ResponseWriter, r *http.Request) {
	setter, ok := a.Selector.(credentials.KeySetter)
	if !ok {
		a.error(w, r, http.StatusNotImplemented, codeKeyUnsupported)
		return
	}
	var req selectKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Key) == "" {
		a.error(w, r, http.StatusBadRequest, codeBadRequest)
		return
	}
	if err := setter.SelectKey(r.Context(), strings.TrimSpace(req.Key)); err != nil {
		a.Logger.Error().Err(err).Msg("credentials: select key")
		a.error(w, r, http.StatusInternalServerError, codeGeneric)
		return
	}
	a.Session.ClearKeyExpired()
	a.json(w, http.StatusOK, credentialStatus{HasKey: true})
}
