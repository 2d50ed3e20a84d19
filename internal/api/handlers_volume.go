package api

import (
	"net/http"

	"github.com/micro-nova/amplipi-panel/internal/models"
)

func (h *Handlers) volumeUp(w http.ResponseWriter, r *http.Request) {
	h.stepVolume(w, r, true)
}

func (h *Handlers) volumeDown(w http.ResponseWriter, r *http.Request) {
	h.stepVolume(w, r, false)
}

func (h *Handlers) stepVolume(w http.ResponseWriter, r *http.Request, up bool) {
	state, appErr := h.ctrl.StepVolume(r.Context(), up)
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// setVolume takes {"level": n} or {"delta": n}.
func (h *Handlers) setVolume(w http.ResponseWriter, r *http.Request) {
	var upd models.VolumeUpdate
	if appErr := decodeBody(r, &upd); appErr != nil {
		writeError(w, appErr)
		return
	}
	state, appErr := h.ctrl.UpdateVolume(r.Context(), upd)
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, state)
}
