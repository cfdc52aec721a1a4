package models

import (
	"encoding/json"
	"time"
)

type Submission struct {
	Id         string          `json:"id"`
	Payload    json.RawMessage `json:"payload"`
	ReceivedAt time.Time       `json:"received_at"`
}
