package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go-ocr-relay/document"
	"go-ocr-relay/fallback"
	"go-ocr-relay/models"
)

var (
	ErrUpstreamUnhealthy    = errors.New("ocr service is unhealthy")
	ErrMalformedCertificate = errors.New("certificate response has no data object")
)

// certificateOutcome is what the certificate endpoint answers with. Either
// Payload is encoded, or Raw is forwarded as is.
type certificateOutcome struct {
	StatusCode int
	Payload    any
	Raw        []byte
}

func handleExtractCertificate(state *ServerState, w http.ResponseWriter, r *http.Request) {
	defer closeRequestBody(r)

	if !requirePOST(w, r) {
		return
	}

	log := requestLog(r.Context())
	log.Info("Received request to extract certificate")

	file, ok := receiveUpload(state, state.certificateConfig, w, r)
	if !ok {
		return
	}

	extract := fallback.Chain("certificate_ocr",
		func(ctx context.Context) (certificateOutcome, error) {
			return extractCertificate(ctx, state, file)
		},
		mockCertificateOutcome,
	)
	outcome := extract(r.Context())

	if outcome.Raw != nil {
		log.Warn("Certificate OCR returned an unexpected response", "status_code", outcome.StatusCode,
			"filename", file.Filename, "body", truncate(string(outcome.Raw), 500))
		writeUpstreamBody(w, outcome.StatusCode, outcome.Raw)
		return
	}

	if err := writeJSON(w, outcome.StatusCode, outcome.Payload); err != nil {
		log.Error(ERR_MARSHAL, "error", err)
		return
	}

	log.Info("Certificate extraction completed", "filename", file.Filename, "status_code", outcome.StatusCode)
}

// extractCertificate is the real source of the certificate pipeline. Every
// error it returns is absorbed by the mock fallback.
func extractCertificate(ctx context.Context, state *ServerState, file models.UploadedFile) (certificateOutcome, error) {
	log := requestLog(ctx)
	target := state.certificateClient.URL()

	if state.certificateConfig.HealthProbe && !state.healthProber.IsHealthy(ctx, target) {
		return certificateOutcome{}, fmt.Errorf("%w: %s", ErrUpstreamUnhealthy, RootURL(target))
	}

	resp, err := state.certificateClient.Extract(ctx, file)
	if err != nil {
		return certificateOutcome{}, err
	}

	body := decodeUpstreamBody(resp.Body)
	if !document.IsCertificateSuccess(body) {
		// an answer we do not understand is surfaced, not mocked
		return certificateOutcome{StatusCode: http.StatusBadGateway, Raw: resp.Body}, nil
	}

	data := document.AsObject(document.AsObject(body)["data"])
	if data == nil {
		return certificateOutcome{}, ErrMalformedCertificate
	}

	flattened := document.FlattenCertificate(data)
	log.Debug("Certificate flattened", "fields", len(flattened))
	return certificateOutcome{
		StatusCode: http.StatusOK,
		Payload:    models.DataResponse{Success: true, Data: flattened},
	}, nil
}

func mockCertificateOutcome() certificateOutcome {
	return certificateOutcome{
		StatusCode: http.StatusOK,
		Payload:    models.DataResponse{Success: true, Data: document.MockCertificate()},
	}
}
