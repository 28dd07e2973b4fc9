package server

import (
	"net/http"

	"wastewatch/internal/service"

	"github.com/alexedwards/flow"
)

func (s *Service) handleGetTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.app.WorkerTasks(r.Context(), identityFromContext(r.Context()).UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, tasks)
}

func (s *Service) handlePostTaskAccept(w http.ResponseWriter, r *http.Request) {
	view, err := s.app.AcceptAssignment(r.Context(), identityFromContext(r.Context()).UserID, flow.Param(r.Context(), "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, view)
}

func (s *Service) handlePostTaskReject(w http.ResponseWriter, r *http.Request) {
	view, err := s.app.RejectAssignment(r.Context(), identityFromContext(r.Context()).UserID, flow.Param(r.Context(), "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, view)
}

// handlePostTaskComplete returns 200 for both verdicts; verified and resolved
// in the body carry the outcome.
func (s *Service) handlePostTaskComplete(w http.ResponseWriter, r *http.Request) {
	if err := s.parseMultipart(w, r, 1); err != nil {
		s.writeError(w, r, err)
		return
	}

	uploads, err := readUploads(r, "proof")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var proof service.ImageUpload
	if len(uploads) > 0 {
		proof = uploads[0]
	}

	result, err := s.app.SubmitCompletionProof(r.Context(), identityFromContext(r.Context()).UserID, flow.Param(r.Context(), "id"), proof)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

func (s *Service) handleGetRewards(w http.ResponseWriter, r *http.Request) {
	rewards, err := s.app.WorkerRewards(r.Context(), identityFromContext(r.Context()).UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, rewards)
}
