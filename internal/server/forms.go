package server

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"wastewatch/internal/service"
	"wastewatch/pkg/types"
)

const multipartMemory = 32 << 20

type submitReportForm struct {
	types.ReportLocation

	Category    types.WasteCategory `form:"category"`
	Severity    types.Severity      `form:"severity"`
	Description string              `form:"description"`
	IsAnonymous bool                `form:"is_anonymous"`
}

// parseMultipart caps the body at the largest valid upload plus room for the
// text fields.
func (s *Service) parseMultipart(w http.ResponseWriter, r *http.Request, files int) error {
	limit := s.config.MaxImageBytes*int64(files) + 1<<20
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		verr := types.NewValidationError()
		verr.Add("body", fmt.Sprintf("invalid multipart payload: %v", err))
		return verr
	}
	return nil
}

func readUpload(header *multipart.FileHeader) (service.ImageUpload, error) {
	file, err := header.Open()
	if err != nil {
		return service.ImageUpload{}, fmt.Errorf("open upload %s: %w", header.Filename, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return service.ImageUpload{}, fmt.Errorf("read upload %s: %w", header.Filename, err)
	}

	return service.ImageUpload{Data: data, ContentType: header.Header.Get("Content-Type")}, nil
}

func readUploads(r *http.Request, field string) ([]service.ImageUpload, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}

	headers := r.MultipartForm.File[field]
	uploads := make([]service.ImageUpload, 0, len(headers))
	for _, h := range headers {
		upload, err := readUpload(h)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, upload)
	}
	return uploads, nil
}

// decodeValues decodes form or query values into dst, reporting failures as
// validation errors.
func decodeValues(dst any, values url.Values) error {
	if err := decoder.Decode(dst, values); err != nil {
		verr := types.NewValidationError()
		verr.Add("query", err.Error())
		return verr
	}
	return nil
}

func (s *Service) decodeSubmitReport(r *http.Request) (service.SubmitReportInput, error) {
	var f submitReportForm
	if err := decodeValues(&f, url.Values(r.MultipartForm.Value)); err != nil {
		return service.SubmitReportInput{}, err
	}

	images, err := readUploads(r, "images")
	if err != nil {
		return service.SubmitReportInput{}, err
	}

	return service.SubmitReportInput{
		IsAnonymous: f.IsAnonymous,
		Latitude:    f.Latitude,
		Longitude:   f.Longitude,
		Address:     f.Address,
		Locality:    f.Locality,
		City:        f.City,
		Category:    f.Category,
		Severity:    f.Severity,
		Description: f.Description,
		Images:      images,
	}, nil
}
