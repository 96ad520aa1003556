package http

import (
	"net/http"

	"github.com/mkamenev/memobox/internal/logger"
	"github.com/mkamenev/memobox/internal/utils"
)

type versionResponse struct {
	Version string `json:"version"`
}

func (h *Handler) appVersion(w http.ResponseWriter, r *http.Request) {
	if _, err := utils.WriteJSON(w, versionResponse{Version: h.version}, http.StatusOK); err != nil {
		logger.FromRequest(r).Err(err).Msg("error writing version response")
	}
}
