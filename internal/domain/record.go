package domain

import (
	"encoding/json"
	"time"
)

// Record is the unit spooled by the spillq CLI and pipeline.
type Record struct {
	Key       string            `json:"key"`
	Seq       uint64            `json:"seq"`
	Timestamp time.Time         `json:"ts"`
	Attrs     map[string]string `json:"attrs,omitempty"`
	Payload   json.RawMessage   `json:"payload,omitempty"`
}
