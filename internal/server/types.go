package server

// ErrorResponse represents a standardized error response format
type ErrorResponse struct {
	Error   string `json:"error"`             // Human-readable error message
	Code    int    `json:"code"`              // HTTP status code
	Details any    `json:"details,omitempty"` // Additional error details (dev mode only)
}

// HealthResponse represents the health check response
type HealthResponse struct {
	OK    bool   `json:"ok"`
	Store string `json:"store"` // "ok" or the ping error
}

// StatusResponse reports the scheduler and recipient state
type StatusResponse struct {
	SchedulerRunning bool    `json:"scheduler_running"`
	ActiveRecipients int     `json:"active_recipients"`
	Policy           string  `json:"policy"`
	GlobalMinScore   float64 `json:"global_min_score"`
}

// ScanResponse wraps one scan's candidates
type ScanResponse struct {
	Mode       string `json:"mode"`
	Policy     string `json:"policy,omitempty"`
	Count      int    `json:"count"`
	Candidates any    `json:"candidates"`
}

// FlagUpsertRequest represents a request to create or update a runtime toggle
type FlagUpsertRequest struct {
	Key   string `json:"key"`
	Value bool   `json:"value"`
}

// DigestResponse represents the response from a digest request
type DigestResponse struct {
	Summary string `json:"summary"`
	TookMs  int64  `json:"took_ms"` // Execution time in milliseconds
}
