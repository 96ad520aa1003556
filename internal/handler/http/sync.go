// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Maxim Kamenev

package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/mkamenev/memobox/internal/logger"
	"github.com/mkamenev/memobox/internal/utils"
	"github.com/mkamenev/memobox/models"
)

// pull handles GET /api/sync?since=<RFC3339Nano>. An absent since parameter
// means an initial sync and returns the full live state.
func (h *Handler) pull(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var since time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			log.Err(err).Str("since", raw).Msg("invalid since cursor")
			http.Error(w, ErrInvalidSinceCursor.Error(), http.StatusBadRequest)
			return
		}
		since = parsed
	}

	response, err := h.services.SyncService.Pull(ctx, userID, since)
	if err != nil {
		log.Err(err).Msg("pull failed")
		http.Error(w, http.StatusText(statusFromError(err)), statusFromError(err))
		return
	}

	if _, err = utils.WriteJSON(w, response, http.StatusOK); err != nil {
		log.Err(err).Msg("error writing pull response")
	}
}

// pushBatch handles POST /api/sync/batch. A fully clean batch answers 200;
// any per-change conflict or error downgrades the answer to 207 with the
// details in the body.
func (h *Handler) pushBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var request models.PushRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		log.Err(err).Msg("invalid JSON was passed")
		http.Error(w, ErrInvalidJSONBody.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.services.SyncService.Push(ctx, userID, request)
	if err != nil {
		log.Err(err).Msg("push failed")
		http.Error(w, http.StatusText(statusFromError(err)), statusFromError(err))
		return
	}

	status := http.StatusOK
	if !result.Clean() {
		status = http.StatusMultiStatus
	}

	if _, err = utils.WriteJSON(w, result, status); err != nil {
		log.Err(err).Msg("error writing push result")
	}
}

// resolveConflicts handles POST /api/sync/resolve-conflicts.
func (h *Handler) resolveConflicts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var resolutions []models.ConflictResolution
	if err := json.NewDecoder(r.Body).Decode(&resolutions); err != nil {
		log.Err(err).Msg("invalid JSON was passed")
		http.Error(w, ErrInvalidJSONBody.Error(), http.StatusBadRequest)
		return
	}

	response, err := h.services.SyncService.Resolve(ctx, userID, resolutions)
	if err != nil {
		log.Err(err).Msg("conflict resolution failed")
		http.Error(w, http.StatusText(statusFromError(err)), statusFromError(err))
		return
	}

	if _, err = utils.WriteJSON(w, response, http.StatusOK); err != nil {
		log.Err(err).Msg("error writing resolve response")
	}
}

// autoResolve handles POST /api/sync/auto-resolve.
func (h *Handler) autoResolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	response, err := h.services.SyncService.AutoResolve(ctx, userID)
	if err != nil {
		log.Err(err).Msg("auto-resolve failed")
		http.Error(w, http.StatusText(statusFromError(err)), statusFromError(err))
		return
	}

	if _, err = utils.WriteJSON(w, response, http.StatusOK); err != nil {
		log.Err(err).Msg("error writing auto-resolve response")
	}
}

// syncStatus handles GET /api/sync/status.
func (h *Handler) syncStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	response, err := h.services.SyncService.Status(ctx, userID)
	if err != nil {
		log.Err(err).Msg("status failed")
		http.Error(w, http.StatusText(statusFromError(err)), statusFromError(err))
		return
	}

	if _, err = utils.WriteJSON(w, response, http.StatusOK); err != nil {
		log.Err(err).Msg("error writing status response")
	}
}
