package models

import "time"

// IntegrationError is an append-only log entry recorded whenever an external
// API call fails or returns unusable output. Writing one never blocks the
// primary request flow.
type IntegrationError struct {
	ID         int64          `json:"id,omitempty"`
	APIType    string         `json:"apiType"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
	UserID     string         `json:"userId,omitempty"`
	OccurredAt time.Time      `json:"occurredAt"`
}
