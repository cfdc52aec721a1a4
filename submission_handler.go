package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go-ocr-relay/models"

	"github.com/google/uuid"
)

const SubmissionSavedMessage = "Data saved successfully"

var ErrPayloadTooLarge = errors.New("submission exceeds size limit")

func handleSubmission(state *ServerState, w http.ResponseWriter, r *http.Request) {
	defer closeRequestBody(r)

	if !requirePOST(w, r) {
		return
	}

	log := requestLog(r.Context())
	log.Info("Received submission")

	payload, err := decodeSubmissionPayload(w, r, state.uploadConfig.MaxSubmissionBytes)
	if errors.Is(err, ErrPayloadTooLarge) {
		respondWithError(w, r, http.StatusRequestEntityTooLarge, models.ErrCodePayloadTooLarge, "Submission is too large", err)
		return
	}
	if err != nil {
		respondWithError(w, r, http.StatusBadRequest, models.ErrCodeInvalidPayload, "Request body must be valid JSON", err)
		return
	}

	submission := models.Submission{
		Id:         uuid.NewString(),
		Payload:    payload,
		ReceivedAt: time.Now().UTC(),
	}
	log.Info("Submission accepted", "submission_id", submission.Id, "payload_size", len(payload))
	log.Debug("Submission payload", "submission_id", submission.Id, "payload", string(payload))

	if err := state.submissionStorage.StoreSubmission(r.Context(), submission); err != nil {
		respondWithError(w, r, http.StatusInternalServerError, models.ErrCodeSaveFailed, "Failed to save data", err)
		return
	}

	response := models.MessageResponse{Success: true, Message: SubmissionSavedMessage}
	if err := writeJSON(w, http.StatusOK, response); err != nil {
		log.Error(ERR_MARSHAL, "error", err)
	}
}

// decodeSubmissionPayload accepts any JSON value. An empty body counts as an
// empty object.
func decodeSubmissionPayload(w http.ResponseWriter, r *http.Request, maxBytes int64) (json.RawMessage, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("%w: limit is %d bytes", ErrPayloadTooLarge, tooLarge.Limit)
		}
		return nil, fmt.Errorf("failed to read submission: %w", err)
	}

	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return json.RawMessage("{}"), nil
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("submission is not valid JSON")
	}
	return json.RawMessage(body), nil
}
