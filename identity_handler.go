package main

import (
	"errors"
	"net/http"

	"go-ocr-relay/document"
	"go-ocr-relay/models"
)

func handleExtractIdentity(state *ServerState, w http.ResponseWriter, r *http.Request) {
	defer closeRequestBody(r)

	if !requirePOST(w, r) {
		return
	}

	log := requestLog(r.Context())
	log.Info("Received request to extract identity document")

	file, ok := receiveUpload(state, state.identityConfig, w, r)
	if !ok {
		return
	}

	resp, err := state.identityClient.Extract(r.Context(), file)
	if err != nil {
		var upstreamErr *UpstreamError
		if errors.As(err, &upstreamErr) && upstreamErr.IsClientError() {
			log.Warn("Identity OCR rejected the document", "status_code", upstreamErr.StatusCode,
				"filename", file.Filename, "body", truncate(string(upstreamErr.Body), 500))
			if err := writeJSON(w, upstreamErr.StatusCode, forwardedFailure(upstreamErr.Body)); err != nil {
				log.Error(ERR_MARSHAL, "error", err)
			}
			return
		}
		respondWithError(w, r, http.StatusInternalServerError, models.ErrCodeExtractionFailed,
			"Failed to extract details from the identity document", err)
		return
	}

	body := document.AsObject(decodeUpstreamBody(resp.Body))
	if body == nil || body["success"] != true {
		log.Warn("Identity OCR reported failure", "status_code", resp.StatusCode,
			"filename", file.Filename, "body", truncate(string(resp.Body), 500))
		writeUpstreamBody(w, http.StatusBadRequest, resp.Body)
		return
	}

	response := models.IdentityResponse{
		Success:        true,
		Data:           document.RemapIdentity(document.AsObject(body["data"])),
		Detections:     body["detections"],
		ProcessingTime: body["processing_time"],
	}

	if err := writeJSON(w, http.StatusOK, response); err != nil {
		log.Error(ERR_MARSHAL, "error", err)
		return
	}

	log.Info("Identity document extracted successfully", "filename", file.Filename)
}
