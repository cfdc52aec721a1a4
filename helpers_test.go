package main

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testServerConfig = ServerConfig{
	Host:           "localhost",
	Port:           8081,
	AllowedOrigins: []string{"*"},
}

// fakeOcrService stands in for an OCR service. Extraction and health answers
// can be swapped per test.
type fakeOcrService struct {
	server *httptest.Server

	extractCalls atomic.Int32
	healthCalls  atomic.Int32

	extractStatus int
	extractBody   string
	extractDelay  time.Duration
	healthStatus  int

	lastFilename  atomic.Value
	lastMediaType atomic.Value
	lastData      atomic.Value
}

func newFakeOcrService(t *testing.T) *fakeOcrService {
	t.Helper()
	f := &fakeOcrService{
		extractStatus: http.StatusOK,
		extractBody:   `{}`,
		healthStatus:  http.StatusOK,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/extract", func(w http.ResponseWriter, r *http.Request) {
		f.extractCalls.Add(1)
		if file, header, err := r.FormFile("file"); err == nil {
			data, _ := io.ReadAll(file)
			_ = file.Close()
			f.lastData.Store(data)
			f.lastFilename.Store(header.Filename)
			f.lastMediaType.Store(header.Header.Get("Content-Type"))
		}
		if f.extractDelay > 0 {
			select {
			case <-time.After(f.extractDelay):
			case <-r.Context().Done():
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.extractStatus)
		_, _ = io.WriteString(w, f.extractBody)
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		f.healthCalls.Add(1)
		w.WriteHeader(f.healthStatus)
	})
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeOcrService) URL() string {
	return f.server.URL + "/extract"
}

func (f *fakeOcrService) respond(status int, body string) {
	f.extractStatus = status
	f.extractBody = body
}

func testOcrConfig(url string, validate bool) OcrServiceConfig {
	return OcrServiceConfig{
		URL:               url,
		Timeout:           2 * time.Second,
		HealthTimeout:     500 * time.Millisecond,
		HealthProbe:       true,
		FileField:         "file",
		UpstreamField:     "file",
		ValidateMediaType: validate,
	}
}

func testConfig(identity, certificate *fakeOcrService) Config {
	return Config{
		ServerConfig:   testServerConfig,
		IdentityOcr:    testOcrConfig(identity.URL(), true),
		CertificateOcr: testOcrConfig(certificate.URL(), false),
		Upload:         UploadConfig{MaxBytes: 1 << 20, MaxSubmissionBytes: 1 << 20},
		StorageType:    "memory",
	}
}

// startTestServer serves the relay in process and returns its base URL
func startTestServer(t *testing.T, config Config, storage SubmissionStorage) string {
	t.Helper()

	srv, err := NewServer(NewServerState(config, storage), config.ServerConfig)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts.URL
}

type testUpload struct {
	field     string
	filename  string
	mediaType string
	data      []byte
}

func jpegUpload() testUpload {
	return testUpload{field: "file", filename: "card.jpg", mediaType: "image/jpeg", data: []byte("jpeg bytes")}
}

func encodeMultipart(t *testing.T, uploads ...testUpload) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for _, u := range uploads {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="`+u.field+`"; filename="`+u.filename+`"`)
		header.Set("Content-Type", u.mediaType)
		part, err := writer.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(u.data)
		require.NoError(t, err)
	}
	require.NoError(t, writer.WriteField("note", "not a file"))
	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func postMultipart(t *testing.T, url string, uploads ...testUpload) (*http.Response, []byte) {
	t.Helper()
	body, contentType := encodeMultipart(t, uploads...)
	resp, err := http.Post(url, contentType, body)
	require.NoError(t, err)
	return resp, readBody(t, resp)
}

// serveMultipart runs the upload through handler without a listener
func serveMultipart(t *testing.T, handler http.Handler, path string, uploads ...testUpload) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := encodeMultipart(t, uploads...)
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func postRaw(t *testing.T, url string, contentType string, body string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(url, contentType, bytes.NewBufferString(body))
	require.NoError(t, err)
	return resp, readBody(t, resp)
}

func readBody(t *testing.T, resp *http.Response) []byte {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return body
}

func decodeJSON(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var v map[string]any
	require.NoErrorf(t, json.Unmarshal(body, &v), "body: %s", body)
	return v
}

func mustStatus(t *testing.T, resp *http.Response, want int, body []byte) {
	t.Helper()
	require.Equalf(t, want, resp.StatusCode, "body: %s", body)
}

func requireErrorCode(t *testing.T, body []byte, code string) {
	t.Helper()
	decoded := decodeJSON(t, body)
	require.Equal(t, false, decoded["success"])
	errBody, ok := decoded["error"].(map[string]any)
	require.Truef(t, ok, "body: %s", body)
	require.Equal(t, code, errBody["code"])
	require.NotEmpty(t, errBody["message"])
}
