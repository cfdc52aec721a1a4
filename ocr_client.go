package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"go-ocr-relay/models"
)

const maxUpstreamBodyBytes = 16 << 20

var ErrUpstreamBodyTooLarge = errors.New("ocr service response exceeds size limit")

// OcrResponse is a 2xx answer from an OCR service
type OcrResponse struct {
	StatusCode int
	Body       []byte
}

// UpstreamError is returned when the OCR service answers with a non-2xx status
type UpstreamError struct {
	StatusCode int
	Body       []byte
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("ocr service responded with status %d: %s", e.StatusCode, truncate(string(e.Body), 200))
}

// IsClientError reports whether the upstream rejected the request with a 4xx status
func (e *UpstreamError) IsClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// OcrClient defines the interface for document OCR services
type OcrClient interface {
	// Extract uploads the document and returns the raw service response
	Extract(ctx context.Context, file models.UploadedFile) (*OcrResponse, error)

	// URL is the extraction endpoint the client posts to
	URL() string
}

// HttpOcrClient posts documents as multipart form data to an OCR endpoint
type HttpOcrClient struct {
	url          string
	fieldName    string
	timeout      time.Duration
	maxBodyBytes int64
	httpClient   *http.Client
}

// NewHttpOcrClient creates a client for the OCR endpoint at url. Every call is
// bounded by timeout on top of the caller's context.
func NewHttpOcrClient(url string, fieldName string, timeout time.Duration) *HttpOcrClient {
	return &HttpOcrClient{
		url:          url,
		fieldName:    fieldName,
		timeout:      timeout,
		maxBodyBytes: maxUpstreamBodyBytes,
		httpClient:   &http.Client{},
	}
}

func (c *HttpOcrClient) URL() string {
	return c.url
}

// Extract forwards the document to the OCR service. Non-2xx answers are
// reported as *UpstreamError.
func (c *HttpOcrClient) Extract(ctx context.Context, file models.UploadedFile) (*OcrResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, contentType, err := c.encodeMultipart(file)
	if err != nil {
		return nil, fmt.Errorf("failed to encode extraction request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create extraction request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	slog.Debug("Calling OCR service", "url", c.url, "filename", file.Filename, "size", file.Size, "timeout", c.timeout)
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute extraction request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read extraction response: %w", err)
	}
	if int64(len(respBody)) > c.maxBodyBytes {
		return nil, fmt.Errorf("%w: more than %d bytes with status %d", ErrUpstreamBodyTooLarge, c.maxBodyBytes, resp.StatusCode)
	}

	slog.Debug("OCR service responded", "url", c.url, "status_code", resp.StatusCode,
		"body_size", len(respBody), "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: respBody}
	}

	return &OcrResponse{StatusCode: resp.StatusCode, Body: respBody}, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func (c *HttpOcrClient) encodeMultipart(file models.UploadedFile) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	mediaType := file.MediaType
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(c.fieldName), quoteEscaper.Replace(file.Filename)))
	header.Set("Content-Type", mediaType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(file.Data); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return &buf, writer.FormDataContentType(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
