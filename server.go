package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go-ocr-relay/models"

	"github.com/gorilla/mux"
)

const ERR_MARSHAL = "failed to marshal response message"
const ERR_BODY_CLOSE = "failed to close request body"

type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	UseTls         bool          `mapstructure:"use_tls"`
	TlsPrivKeyPath string        `mapstructure:"tls_priv_key_path"`
	TlsCertPath    string        `mapstructure:"tls_cert_path"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

// ServerState is built once at start and shared read-only by all handlers
type ServerState struct {
	identityClient    OcrClient
	certificateClient OcrClient
	healthProber      HealthProber
	submissionStorage SubmissionStorage

	identityConfig    OcrServiceConfig
	certificateConfig OcrServiceConfig
	uploadConfig      UploadConfig
}

func NewServerState(config Config, storage SubmissionStorage) *ServerState {
	return &ServerState{
		identityClient: NewHttpOcrClient(
			config.IdentityOcr.URL,
			config.IdentityOcr.UpstreamField,
			config.IdentityOcr.Timeout,
		),
		certificateClient: NewHttpOcrClient(
			config.CertificateOcr.URL,
			config.CertificateOcr.UpstreamField,
			config.CertificateOcr.Timeout,
		),
		healthProber:      NewHttpHealthProber(config.CertificateOcr.HealthTimeout),
		submissionStorage: storage,
		identityConfig:    config.IdentityOcr,
		certificateConfig: config.CertificateOcr,
		uploadConfig:      config.Upload,
	}
}

type Server struct {
	server *http.Server
	config ServerConfig
}

func (s *Server) ListenAndServe() error {
	if s.config.UseTls {
		slog.Info("Starting server with TLS", "host", s.config.Host, "port", s.config.Port, "cert", s.config.TlsCertPath, "key", s.config.TlsPrivKeyPath)
		return s.server.ListenAndServeTLS(s.config.TlsCertPath, s.config.TlsPrivKeyPath)
	} else {
		slog.Info("Starting server without TLS", "host", s.config.Host, "port", s.config.Port)
		return s.server.ListenAndServe()
	}
}

func (s *Server) Stop() error {
	slog.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.server.Shutdown(ctx)
	if err != nil {
		slog.Error("Error during server shutdown", "error", err)
	} else {
		slog.Info("Server shut down successfully")
	}
	return err
}

// Handler exposes the routed handler, mainly for in-process tests
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func NewServer(state *ServerState, config ServerConfig) (*Server, error) {
	slog.Info("Creating new server", "host", config.Host, "port", config.Port, "tls", config.UseTls)
	router := mux.NewRouter()
	router.Use(logRequests, allowOrigins(config.AllowedOrigins))

	router.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		slog.Debug("Health check request received")
		if err := writeJSON(w, http.StatusOK, map[string]bool{"ok": true}); err != nil {
			slog.Error("failed to write body to http response", "error", err)
		}
	})

	router.HandleFunc("/api/ocr/identity", func(w http.ResponseWriter, r *http.Request) {
		handleExtractIdentity(state, w, r)
	})
	router.HandleFunc("/api/ocr/certificate", func(w http.ResponseWriter, r *http.Request) {
		handleExtractCertificate(state, w, r)
	})
	router.HandleFunc("/api/submissions", func(w http.ResponseWriter, r *http.Request) {
		handleSubmission(state, w, r)
	})

	slog.Debug("Registered all API routes")

	readTimeout := config.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 15 * time.Second
	}
	writeTimeout := config.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 60 * time.Second
	}

	addr := fmt.Sprintf("%v:%v", config.Host, config.Port)
	srv := &http.Server{
		Handler: router,
		Addr:    addr,
		// the write timeout has to outlast a health probe plus a slow OCR call
		WriteTimeout: writeTimeout,
		ReadTimeout:  readTimeout,
	}

	slog.Info("Server created successfully", "address", addr)
	return &Server{
		server: srv,
		config: config,
	}, nil
}

// respondWithError logs the failure and writes the error envelope
func respondWithError(w http.ResponseWriter, r *http.Request, code int, errCode string, message string, e error) {
	requestLog(r.Context()).Error(message, "error", e, "status_code", code, "error_code", errCode)
	if err := writeJSON(w, code, models.NewErrorResponse(errCode, message)); err != nil {
		slog.Error("failed to write body to http response", "error", err)
	}
}

// writeUpstreamBody forwards an upstream body unchanged. Bodies that are not
// JSON are sent as a JSON string so the response stays JSON.
func writeUpstreamBody(w http.ResponseWriter, status int, body []byte) {
	if !json.Valid(body) {
		if err := writeJSON(w, status, string(body)); err != nil {
			slog.Error("failed to write body to http response", "error", err)
		}
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		slog.Error("failed to write body to http response", "error", err)
	}
}

func closeRequestBody(r *http.Request) {
	if err := r.Body.Close(); err != nil {
		slog.Error(ERR_BODY_CLOSE, "error", err)
	}
}

func requirePOST(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		slog.Debug("Non-POST request rejected", "method", r.Method, "path", r.URL.Path)
		w.Header().Set("Allow", http.MethodPost)
		respondWithError(w, r, http.StatusMethodNotAllowed, models.ErrCodeMethodNotAllowed, "method not allowed", nil)
		return false
	}
	return true
}

// writeJSON encodes v as the response body. When v cannot be encoded the
// response is a bare 500 and the caller must not write again.
func writeJSON(w http.ResponseWriter, status int, v any) error {
	slog.Debug("Writing JSON response", "status_code", status)
	payload, err := json.Marshal(v)
	if err != nil {
		slog.Error(ERR_MARSHAL, "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(payload)
	if err != nil {
		slog.Error("failed to write body to http response", "error", err)
	} else {
		slog.Debug("JSON response written successfully", "status_code", status, "payload_size", len(payload))
	}
	return nil
}
