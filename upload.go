package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"go-ocr-relay/images"
	"go-ocr-relay/models"
)

// files above this size are spooled to disk while parsing
const multipartMemory = 8 << 20

var (
	ErrNoFile         = errors.New("no file uploaded")
	ErrUnexpectedFile = errors.New("more than one file uploaded")
	ErrFileTooLarge   = errors.New("upload exceeds size limit")
)

// readUpload extracts the single file sent under field. The multipart form is
// removed from disk before returning.
func readUpload(w http.ResponseWriter, r *http.Request, field string, maxBytes int64) (models.UploadedFile, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return models.UploadedFile{}, fmt.Errorf("%w: limit is %d bytes", ErrFileTooLarge, tooLarge.Limit)
		}
		return models.UploadedFile{}, fmt.Errorf("%w: %v", ErrNoFile, err)
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	headers := r.MultipartForm.File[field]
	switch {
	case len(headers) == 0:
		return models.UploadedFile{}, ErrNoFile
	case len(headers) > 1:
		return models.UploadedFile{}, fmt.Errorf("%w: got %d under %q", ErrUnexpectedFile, len(headers), field)
	}

	header := headers[0]
	f, err := header.Open()
	if err != nil {
		return models.UploadedFile{}, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return models.UploadedFile{}, fmt.Errorf("failed to read uploaded file: %w", err)
	}

	return models.UploadedFile{
		Filename:  header.Filename,
		MediaType: header.Header.Get("Content-Type"),
		Size:      int64(len(data)),
		Data:      data,
	}, nil
}

// receiveUpload reads, validates and optionally downscales the upload for an
// OCR endpoint. It writes the error envelope itself and returns ok=false when
// the request cannot proceed.
func receiveUpload(state *ServerState, endpoint OcrServiceConfig, w http.ResponseWriter, r *http.Request) (models.UploadedFile, bool) {
	log := requestLog(r.Context())

	file, err := readUpload(w, r, endpoint.FileField, state.uploadConfig.MaxBytes)
	switch {
	case errors.Is(err, ErrFileTooLarge):
		respondWithError(w, r, http.StatusRequestEntityTooLarge, models.ErrCodeFileTooLarge, "Uploaded file is too large", err)
		return file, false
	case errors.Is(err, ErrUnexpectedFile):
		respondWithError(w, r, http.StatusBadRequest, models.ErrCodeUnexpectedFile, "Upload exactly one file", err)
		return file, false
	case errors.Is(err, ErrNoFile):
		respondWithError(w, r, http.StatusBadRequest, models.ErrCodeNoFile, "No file uploaded", err)
		return file, false
	case err != nil:
		respondWithError(w, r, http.StatusBadRequest, models.ErrCodeNoFile, "Uploaded file could not be read", err)
		return file, false
	}

	log.Info("Received upload", "filename", file.Filename, "media_type", file.MediaType, "size", file.Size)

	if endpoint.ValidateMediaType && !images.IsAllowedMediaType(file.MediaType, images.AllowedDocumentTypes) {
		respondWithError(w, r, http.StatusBadRequest, models.ErrCodeInvalidFormat,
			"Invalid file format. Only JPEG, JPG and PNG images are allowed",
			fmt.Errorf("media type %q not allowed", file.MediaType))
		return file, false
	}

	if state.uploadConfig.MaxDimension > 0 {
		data, resized, err := images.Downscale(file.Data, file.MediaType, state.uploadConfig.MaxDimension)
		if err != nil {
			// the OCR service gets the original bytes and can judge them itself
			log.Warn("Failed to downscale upload", "filename", file.Filename, "error", err)
		} else if resized {
			log.Debug("Upload downscaled", "filename", file.Filename, "from_size", file.Size, "to_size", len(data))
			file.Data = data
			file.Size = int64(len(data))
		}
	}

	return file, true
}
