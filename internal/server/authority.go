package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"wastewatch/internal/service"
	"wastewatch/pkg/types"

	"github.com/alexedwards/flow"
)

func (s *Service) handleGetAuthorityReports(w http.ResponseWriter, r *http.Request) {
	var filter types.ReportFilter
	if err := decodeValues(&filter, r.URL.Query()); err != nil {
		s.writeError(w, r, err)
		return
	}

	views, err := s.app.ListReports(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, views)
}

func (s *Service) handleGetPendingReports(w http.ResponseWriter, r *http.Request) {
	views, err := s.app.PendingReports(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, views)
}

func (s *Service) handleGetBreachedReports(w http.ResponseWriter, r *http.Request) {
	views, err := s.app.BreachedReports(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, views)
}

func (s *Service) handleGetReportEvents(w http.ResponseWriter, r *http.Request) {
	reportID := flow.Param(r.Context(), "id")
	if _, err := s.app.Report(r.Context(), reportID); err != nil {
		s.writeError(w, r, err)
		return
	}

	events, err := s.app.ReportEvents(r.Context(), reportID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, events)
}

func (s *Service) handlePostReview(w http.ResponseWriter, r *http.Request) {
	view, err := s.app.ReviewReport(r.Context(), identityFromContext(r.Context()), flow.Param(r.Context(), "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, view)
}

func (s *Service) handlePostAssign(w http.ResponseWriter, r *http.Request) {
	var input service.AssignInput
	if err := decodeJSON(w, r, &input); err != nil {
		s.writeError(w, r, err)
		return
	}
	input.ReportID = flow.Param(r.Context(), "id")

	view, err := s.app.AssignReport(r.Context(), identityFromContext(r.Context()), input)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, view)
}

func (s *Service) handlePostConfirm(w http.ResponseWriter, r *http.Request) {
	result, err := s.app.ConfirmResolution(r.Context(), identityFromContext(r.Context()), flow.Param(r.Context(), "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

// handlePostAutoAssign answers 200 even when the batch stopped early; the
// body says what was assigned and where it stopped.
func (s *Service) handlePostAutoAssign(w http.ResponseWriter, r *http.Request) {
	result, err := s.app.AutoAssignAll(r.Context(), identityFromContext(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

func (s *Service) handleGetWorkers(w http.ResponseWriter, r *http.Request) {
	var filter types.WorkerFilter
	if err := decodeValues(&filter, r.URL.Query()); err != nil {
		s.writeError(w, r, err)
		return
	}

	workers, err := s.app.Workers(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, workers)
}

func (s *Service) handleGetAvailableWorkers(w http.ResponseWriter, r *http.Request) {
	workers, err := s.app.AvailableWorkers(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, workers)
}

func (s *Service) handlePostWorkerApprove(w http.ResponseWriter, r *http.Request) {
	s.respondWorker(w, r)(s.app.ApproveWorker(r.Context(), identityFromContext(r.Context()), flow.Param(r.Context(), "id")))
}

func (s *Service) handlePostWorkerReject(w http.ResponseWriter, r *http.Request) {
	s.respondWorker(w, r)(s.app.RejectWorker(r.Context(), identityFromContext(r.Context()), flow.Param(r.Context(), "id")))
}

func (s *Service) handlePostWorkerActivate(w http.ResponseWriter, r *http.Request) {
	s.respondWorker(w, r)(s.app.SetWorkerActive(r.Context(), identityFromContext(r.Context()), flow.Param(r.Context(), "id"), true))
}

func (s *Service) handlePostWorkerDeactivate(w http.ResponseWriter, r *http.Request) {
	s.respondWorker(w, r)(s.app.SetWorkerActive(r.Context(), identityFromContext(r.Context()), flow.Param(r.Context(), "id"), false))
}

func (s *Service) respondWorker(w http.ResponseWriter, r *http.Request) func(*types.Worker, error) {
	return func(worker *types.Worker, err error) {
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, worker)
	}
}

// decodeJSON accepts an empty body as an empty object.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}

	verr := types.NewValidationError()
	verr.Add("body", "invalid JSON payload")
	return verr
}
