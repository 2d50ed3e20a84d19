package api

import (
	"net/http"

	"github.com/micro-nova/amplipi-panel/internal/models"
)

func (h *Handlers) getState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ctrl.State())
}

func (h *Handlers) getInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ctrl.Info())
}

// getPins reads the raw expander inputs, for bench bring-up.
func (h *Handlers) getPins(w http.ResponseWriter, r *http.Request) {
	pins, appErr := h.ctrl.Pins(r.Context())
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, pins)
}

func (h *Handlers) setDevice(w http.ResponseWriter, r *http.Request) {
	var upd models.DeviceUpdate
	if appErr := decodeBody(r, &upd); appErr != nil {
		writeError(w, appErr)
		return
	}
	if upd.State == "" {
		writeError(w, models.ErrBadRequest("device_state required"))
		return
	}
	state, appErr := h.ctrl.SetDeviceState(r.Context(), upd.State)
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *Handlers) getDisplay(w http.ResponseWriter, r *http.Request) {
	data, appErr := h.ctrl.DisplayPNG()
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
