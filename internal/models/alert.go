package models

import "time"

// AlertSeverity is the severity of an alert event
type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "info"
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

// AlertEvent is an immutable, append-only record of a dispatched alert.
// The dispatcher is the sole producer.
type AlertEvent struct {
	Timestamp time.Time     `json:"timestamp"`
	Severity  AlertSeverity `json:"severity"`
	Subject   string        `json:"subject"`
	Message   string        `json:"message"`
}

// DedupeKey identifies the (subject, severity) pair used for cooldown
// suppression of repeated alerts
func (a AlertEvent) DedupeKey() string {
	return a.Subject + "|" + string(a.Severity)
}
