package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"wastewatch/pkg/types"
)

type errorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type errorResponse struct {
	Error     errorBody `json:"error"`
	RequestID string    `json:"request_id"`
}

func (s *Service) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.WithError(err).Error("failed to encode response")
	}
}

func (s *Service) writeErrorCode(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	s.writeJSON(w, status, errorResponse{
		Error:     errorBody{Code: code, Message: message},
		RequestID: requestIDFromContext(r.Context()),
	})
}

// errorStatus maps service errors to a status and a stable code.
func errorStatus(err error) (int, string) {
	var verr *types.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, types.ErrReportNotFound),
		errors.Is(err, types.ErrWorkerNotFound),
		errors.Is(err, types.ErrProfileNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, types.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, types.ErrReportConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, types.ErrWorkerExists):
		return http.StatusConflict, "worker_exists"
	case errors.Is(err, types.ErrWorkerUnavailable):
		return http.StatusConflict, "worker_unavailable"
	case errors.Is(err, types.ErrNotVerified):
		return http.StatusConflict, "not_verified"
	case errors.Is(err, types.ErrNotAssignedWorker):
		return http.StatusForbidden, "not_assigned"
	case errors.Is(err, types.ErrUpstream):
		return http.StatusBadGateway, "upstream_unavailable"
	}
	return http.StatusInternalServerError, "internal"
}

func (s *Service) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := errorStatus(err)

	body := errorBody{Code: code, Message: err.Error()}
	var verr *types.ValidationError
	if errors.As(err, &verr) {
		body.Fields = verr.Fields
	}

	entry := s.logger.WithError(err).WithField("request_id", requestIDFromContext(r.Context()))
	if status >= http.StatusInternalServerError {
		entry.Error("request failed")
		if status == http.StatusInternalServerError {
			body.Message = "internal server error"
		}
	} else {
		entry.Debug("request rejected")
	}

	s.writeJSON(w, status, errorResponse{Error: body, RequestID: requestIDFromContext(r.Context())})
}
