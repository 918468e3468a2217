package logging

import "log/slog"

// Common field names for consistent logging across the gateway.
const (
	FieldService  = "service"
	FieldPlatform = "platform"
	FieldLeadID   = "lead_id"
	FieldEventID  = "event_id"
	FieldEmail    = "email"
	FieldIP       = "ip"
	FieldMethod   = "method"
	FieldPath     = "path"
	FieldStatus   = "status"
	FieldDuration = "duration_ms"
	FieldError    = "error"
	FieldAttempts = "attempts"
	FieldOutcome  = "outcome"
	FieldReason   = "reason"
)

// Service returns a slog attribute for the service name.
func Service(name string) slog.Attr {
	return slog.String(FieldService, name)
}

// Platform returns a slog attribute for the lead source platform.
func Platform(p string) slog.Attr {
	return slog.String(FieldPlatform, p)
}

// LeadID returns a slog attribute for a lead ID.
func LeadID(id string) slog.Attr {
	return slog.String(FieldLeadID, id)
}

// Reason returns a slog attribute for a rejection reason.
func Reason(reason string) slog.Attr {
	return slog.String(FieldReason, reason)
}

// Email returns a slog attribute for a lead email address.
func Email(email string) slog.Attr {
	return slog.String(FieldEmail, email)
}

// Outcome returns a slog attribute for a dedup outcome.
func Outcome(outcome string) slog.Attr {
	return slog.String(FieldOutcome, outcome)
}

// EventID returns a slog attribute for a webhook event ID.
func EventID(id string) slog.Attr {
	return slog.String(FieldEventID, id)
}

// IP returns a slog attribute for the client IP address.
func IP(ip string) slog.Attr {
	return slog.String(FieldIP, ip)
}

// Method returns a slog attribute for the HTTP method.
func Method(method string) slog.Attr {
	return slog.String(FieldMethod, method)
}

// Path returns a slog attribute for the HTTP path.
func Path(path string) slog.Attr {
	return slog.String(FieldPath, path)
}

// Status returns a slog attribute for the HTTP status code.
func Status(code int) slog.Attr {
	return slog.Int(FieldStatus, code)
}

// Duration returns a slog attribute for duration in milliseconds.
func Duration(ms int64) slog.Attr {
	return slog.Int64(FieldDuration, ms)
}

// Error returns a slog attribute for an error.
func Error(err error) slog.Attr {
	return slog.String(FieldError, err.Error())
}

// Attempts returns a slog attribute for a retry attempt count.
func Attempts(n int) slog.Attr {
	return slog.Int(FieldAttempts, n)
}
