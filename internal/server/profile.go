package server

import (
	"net/http"
	"strings"

	"wastewatch/pkg/types"
)

// displayNameFromEmail uses the local part of an address until the citizen
// sets a name.
func displayNameFromEmail(email string) string {
	local, _, _ := strings.Cut(strings.TrimSpace(email), "@")
	return local
}

func (s *Service) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity := identityFromContext(ctx)

	if err := s.app.EnsureProfile(ctx, identity, displayNameFromEmail(identity.Email)); err != nil {
		s.logger.WithError(err).WithField("user_id", identity.UserID).Warn("failed to record profile identity")
	}

	profile, err := s.app.Profile(ctx, identity.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, profile)
}

func (s *Service) handlePostWorkerApply(w http.ResponseWriter, r *http.Request) {
	var app types.WorkerApplication
	if err := decodeJSON(w, r, &app); err != nil {
		s.writeError(w, r, err)
		return
	}

	worker, err := s.app.ApplyWorker(r.Context(), identityFromContext(r.Context()), app)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, worker)
}
