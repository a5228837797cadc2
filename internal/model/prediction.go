package model

import "time"

// Prediction is the engine's output for a single record.
type Prediction struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	HeartDisease int       `json:"heart_disease"` // 1 present, 0 absent
	Active       []string  `json:"active,omitempty"`
	Record       *Record   `json:"record,omitempty"`
}
