package models

import "time"

// CrowdListEntry describes one live crowd in the listing
type CrowdListEntry struct {
	CrowdID          string    `json:"crowd_id"`
	Name             string    `json:"name"`
	StartedTime      time.Time `json:"started_time"`
	ParticipantCount int       `json:"participant_count"`
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status string `json:"status"`
	Crowds int    `json:"crowds"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
