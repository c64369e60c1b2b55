package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel errors for store lookups and gating conditions.
var (
	ErrSnapshotNotFound = errors.New("snapshot not found")
	ErrSnapshotExpired  = errors.New("snapshot expired")
	ErrBackupNotFound   = errors.New("backup not found")
	ErrRateLimited      = errors.New("operation rate limit exceeded")
)

// PolicyViolationError reports why a single path was refused. Policy
// rejections are ordinary data: they stop the pipeline but are surfaced
// verbatim to the caller, never converted into a degraded continue.
type PolicyViolationError struct {
	Path    string
	Reasons []ReasonCode
}

func (e *PolicyViolationError) Error() string {
	codes := make([]string, len(e.Reasons))
	for i, r := range e.Reasons {
		codes[i] = string(r)
	}
	return fmt.Sprintf("path %q refused by policy: %s", e.Path, strings.Join(codes, ", "))
}

// BatchValidationError carries every per-path rejection of an atomic batch
// validation. No partial validation is exposed alongside it.
type BatchValidationError struct {
	Violations []*PolicyViolationError
}

func (e *BatchValidationError) Error() string {
	lines := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		lines[i] = "- " + v.Error()
	}
	return fmt.Sprintf("path validation failed for %d path(s):\n%s",
		len(e.Violations), strings.Join(lines, "\n"))
}

// ValidationError marks malformed or out-of-bounds input the caller can
// correct and retry.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

// CircuitOpenError signals a fail-fast rejection by an open breaker. It is
// retryable after RetryAfter.
type CircuitOpenError struct {
	Service    string
	RetryAfter time.Duration
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit breaker open for %s, retry after %s", e.Service, e.RetryAfter)
}

// IsPolicyViolation reports whether err is a single or batch policy
// rejection.
func IsPolicyViolation(err error) bool {
	var single *PolicyViolationError
	var batch *BatchValidationError
	return errors.As(err, &single) || errors.As(err, &batch)
}

// IsValidation reports whether err is recoverable input validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
