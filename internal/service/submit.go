package service

import (
	"context"
	"fmt"
	"strings"

	"wastewatch/internal/cache"
	"wastewatch/internal/lifecycle"
	"wastewatch/internal/observability"
	"wastewatch/internal/storage"
	"wastewatch/internal/utils"
	"wastewatch/pkg/types"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

type ImageUpload struct {
	Data        []byte
	ContentType string
}

type SubmitReportInput struct {
	ReporterID  string
	IsAnonymous bool

	Latitude  float64
	Longitude float64
	Address   string
	Locality  string
	City      string

	Category    types.WasteCategory
	Severity    types.Severity
	Description string

	Images []ImageUpload
}

func (s *Service) validateImage(verr *types.ValidationError, field string, img ImageUpload) {
	switch {
	case len(img.Data) == 0:
		verr.Add(field, "image is empty")
	case int64(len(img.Data)) > s.maxImageBytes:
		verr.Add(field, fmt.Sprintf("image exceeds %d bytes", s.maxImageBytes))
	}
}

func (s *Service) validateSubmission(in SubmitReportInput) error {
	verr := types.NewValidationError()

	if !in.Category.IsValid() {
		verr.Add("category", fmt.Sprintf("unknown category %q", in.Category))
	}
	if !in.Severity.IsValid() {
		verr.Add("severity", fmt.Sprintf("unknown severity %q", in.Severity))
	}
	if in.Latitude < -90 || in.Latitude > 90 {
		verr.Add("latitude", "must be between -90 and 90")
	}
	if in.Longitude < -180 || in.Longitude > 180 {
		verr.Add("longitude", "must be between -180 and 180")
	}

	switch {
	case len(in.Images) == 0:
		verr.Add("images", "at least one image is required")
	case len(in.Images) > s.maxImages:
		verr.Add("images", fmt.Sprintf("at most %d images are allowed", s.maxImages))
	}
	for i, img := range in.Images {
		s.validateImage(verr, fmt.Sprintf("images[%d]", i), img)
	}

	return verr.OrNil()
}

func contentTypeOr(ct string) string {
	if strings.TrimSpace(ct) == "" {
		return "image/jpeg"
	}
	return ct
}

// SubmitReport creates a report and its images and credits the reporter. The
// steps are recorded as events; a failed image upload undoes the earlier
// steps, a failed profile credit does not.
func (s *Service) SubmitReport(ctx context.Context, in SubmitReportInput) (_ *types.ReportView, err error) {
	ctx, span := observability.StartSpan(ctx, "service.SubmitReport",
		attribute.String("report.category", string(in.Category)),
		attribute.Int("report.images", len(in.Images)),
	)
	defer func() { observability.EndSpan(span, err) }()

	if err := s.validateSubmission(in); err != nil {
		return nil, err
	}

	location := types.ReportLocation{
		Latitude:  in.Latitude,
		Longitude: in.Longitude,
		Address:   strings.TrimSpace(in.Address),
		Locality:  strings.TrimSpace(in.Locality),
		City:      strings.TrimSpace(in.City),
	}
	if location.Address == "" || location.Locality == "" || location.City == "" {
		place := s.geocoder.Reverse(ctx, in.Latitude, in.Longitude)
		if location.Address == "" {
			location.Address = place.Address
		}
		if location.Locality == "" {
			location.Locality = place.Locality
		}
		if location.City == "" {
			location.City = place.City
		}
	}

	createdAt := s.now()
	hours := s.policy.Hours(in.Category, in.Severity)
	report := &types.Report{
		ReportLocation: location,
		Category:       in.Category,
		Severity:       in.Severity,
		Description:    utils.NullableString(in.Description),
		Status:         types.ReportStatusSubmitted,
		SLAHours:       hours,
		DueAt:          lifecycle.DueAt(createdAt, hours),
		ReporterID:     utils.NullableString(in.ReporterID),
		IsAnonymous:    in.IsAnonymous,
		CreatedAt:      createdAt,
	}

	if err := s.reports.CreateReport(ctx, report); err != nil {
		return nil, fmt.Errorf("create report: %w", err)
	}

	logger := s.logger.WithFields(logrus.Fields{"report_id": report.ID, "code": report.Code})
	actor := types.Identity{UserID: in.ReporterID, Role: types.RoleCitizen}

	created := actorEvent(report.ID, types.EventReportCreated, actor)
	created.ToStatus = statusPtr(types.ReportStatusSubmitted)
	s.recordEvent(ctx, created)

	images, uploadedKeys, err := s.uploadImages(ctx, report.ID, in.Images)
	if err != nil {
		logger.WithError(err).Error("image upload failed, reverting submission")
		s.revertSubmission(ctx, report.ID, uploadedKeys, err)
		return nil, fmt.Errorf("upload report images: %w", err)
	}

	uploaded := actorEvent(report.ID, types.EventImagesUploaded, actor)
	uploaded.Message = utils.StringPtr(fmt.Sprintf("%d images", len(images)))
	s.recordEvent(ctx, uploaded)

	if in.ReporterID != "" {
		if err := s.profiles.CreditSubmission(ctx, in.ReporterID, s.reportPoints); err != nil {
			logger.WithError(err).Error("failed to credit reporter profile")
			failed := actorEvent(report.ID, types.EventProfileCreditFailed, actor)
			failed.Message = utils.StringPtr(err.Error())
			s.recordEvent(ctx, failed)
		} else {
			credited := actorEvent(report.ID, types.EventProfileCredited, actor)
			credited.Message = utils.StringPtr(fmt.Sprintf("+%d points", s.reportPoints))
			s.recordEvent(ctx, credited)
		}
	}

	s.invalidate(ctx, cache.KeyPendingReports)
	logger.WithField("severity", report.Severity).Info("report submitted")

	return s.toView(report, images), nil
}

func (s *Service) uploadImages(ctx context.Context, reportID string, uploads []ImageUpload) ([]*types.ReportImage, []string, error) {
	images := make([]*types.ReportImage, 0, len(uploads))
	keys := make([]string, 0, len(uploads))

	for i, upload := range uploads {
		at := s.now()
		key := storage.ImageKey(reportID, at, i)
		contentType := contentTypeOr(upload.ContentType)

		url, err := s.bucket.Upload(ctx, key, upload.Data, contentType)
		if err != nil {
			return images, keys, err
		}
		keys = append(keys, key)

		image := &types.ReportImage{
			ReportID:    reportID,
			Kind:        types.ImageKindOriginal,
			StorageKey:  key,
			PublicURL:   url,
			Position:    i,
			ContentType: contentType,
			SizeBytes:   int64(len(upload.Data)),
			UploadedAt:  at,
		}
		if err := s.images.CreateImage(ctx, image); err != nil {
			return images, keys, err
		}
		images = append(images, image)
	}

	return images, keys, nil
}

// revertSubmission removes what a failed submission left behind. It runs on a
// context detached from the request so a cancelled client cannot stop it.
func (s *Service) revertSubmission(ctx context.Context, reportID string, keys []string, cause error) {
	ctx = context.WithoutCancel(ctx)
	logger := s.logger.WithField("report_id", reportID)

	for _, key := range keys {
		if err := s.bucket.Delete(ctx, key); err != nil {
			logger.WithError(err).WithField("key", key).Error("failed to delete uploaded image")
		}
	}
	if err := s.images.DeleteImagesByReport(ctx, reportID); err != nil {
		logger.WithError(err).Error("failed to delete report images")
	}
	if err := s.reports.DeleteReport(ctx, reportID); err != nil {
		logger.WithError(err).Error("failed to delete report")
	}

	reverted := &types.ReportEvent{
		ReportID: reportID,
		Kind:     types.EventSubmissionReverted,
		Message:  utils.StringPtr(cause.Error()),
	}
	s.recordEvent(ctx, reverted)
}

// Classify runs the image classifier ahead of a submission.
func (s *Service) Classify(ctx context.Context, image ImageUpload) (_ *types.Classification, err error) {
	ctx, span := observability.StartSpan(ctx, "service.Classify")
	defer func() { observability.EndSpan(span, err) }()

	verr := types.NewValidationError()
	s.validateImage(verr, "image", image)
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	return s.classifier.Classify(ctx, image.Data)
}

// Transcribe turns a voice note into a report description.
func (s *Service) Transcribe(ctx context.Context, audio []byte) (_ string, err error) {
	ctx, span := observability.StartSpan(ctx, "service.Transcribe")
	defer func() { observability.EndSpan(span, err) }()

	if len(audio) == 0 {
		verr := types.NewValidationError()
		verr.Add("audio", "audio is required")
		return "", verr
	}

	return s.transcriber.Transcribe(ctx, audio)
}
