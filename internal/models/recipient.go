package models

import "time"

// RecipientConfig is the per-chat autopost policy. It is mutated by admin
// commands and read by the scheduler on every cycle; last write wins.
type RecipientConfig struct {
	ChatID             int64      `json:"chat_id"`
	Title              string     `json:"title,omitempty"`
	AutopostEnabled    bool       `json:"autopost_enabled"`
	MinConfidenceScore float64    `json:"min_confidence_score"`
	MaxCallsPerDay     int        `json:"max_calls_per_day"`
	QuietHoursStart    *int       `json:"quiet_hours_start,omitempty"` // UTC hour 0-23
	QuietHoursEnd      *int       `json:"quiet_hours_end,omitempty"`   // UTC hour 0-23
	LastCallAt         time.Time  `json:"last_call_at"`
	CallsToday         int        `json:"calls_today"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// InQuietHours reports whether hour (UTC) falls inside the configured quiet
// window. A window with start >= end wraps past midnight.
func (r *RecipientConfig) InQuietHours(hour int) bool {
	if r.QuietHoursStart == nil || r.QuietHoursEnd == nil {
		return false
	}
	start, end := *r.QuietHoursStart, *r.QuietHoursEnd
	if start < end {
		return hour >= start && hour < end
	}
	return hour >= start || hour < end
}

// CallLog records one dispatched candidate to one recipient. Append-only.
type CallLog struct {
	Mint      string    `json:"mint"`
	Symbol    string    `json:"symbol"`
	Score     float64   `json:"score"`
	ChatID    int64     `json:"chat_id"`
	SentAt    time.Time `json:"sent_at"`
	Delivered bool      `json:"delivered"`
}
