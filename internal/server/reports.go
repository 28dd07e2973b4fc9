package server

import (
	"net/http"

	"wastewatch/internal/service"

	"github.com/alexedwards/flow"
)

func (s *Service) handlePostClassify(w http.ResponseWriter, r *http.Request) {
	if err := s.parseMultipart(w, r, 1); err != nil {
		s.writeError(w, r, err)
		return
	}

	uploads, err := readUploads(r, "image")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var image service.ImageUpload
	if len(uploads) > 0 {
		image = uploads[0]
	}

	result, err := s.app.Classify(r.Context(), image)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

func (s *Service) handlePostTranscribe(w http.ResponseWriter, r *http.Request) {
	if err := s.parseMultipart(w, r, 1); err != nil {
		s.writeError(w, r, err)
		return
	}

	uploads, err := readUploads(r, "audio")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var audio []byte
	if len(uploads) > 0 {
		audio = uploads[0].Data
	}

	transcript, err := s.app.Transcribe(r.Context(), audio)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"transcript": transcript})
}

func (s *Service) handlePostReport(w http.ResponseWriter, r *http.Request) {
	if err := s.parseMultipart(w, r, s.config.MaxImagesPerReport); err != nil {
		s.writeError(w, r, err)
		return
	}

	input, err := s.decodeSubmitReport(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	input.ReporterID = identityFromContext(r.Context()).UserID

	view, err := s.app.SubmitReport(r.Context(), input)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, view)
}

func (s *Service) handleGetMyReports(w http.ResponseWriter, r *http.Request) {
	views, err := s.app.ReporterReports(r.Context(), identityFromContext(r.Context()).UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, views)
}

func (s *Service) handleGetReport(w http.ResponseWriter, r *http.Request) {
	view, err := s.app.Report(r.Context(), flow.Param(r.Context(), "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, view)
}
