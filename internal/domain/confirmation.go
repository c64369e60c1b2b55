package domain

import (
	"fmt"
	"strings"
	"time"
)

// ConfirmationStatus tracks the lifecycle of a pending request.
// Pending is the only non-terminal state.
type ConfirmationStatus string

const (
	ConfirmationPending   ConfirmationStatus = "pending"
	ConfirmationConfirmed ConfirmationStatus = "confirmed"
	ConfirmationCancelled ConfirmationStatus = "cancelled"
	ConfirmationTimedOut  ConfirmationStatus = "timed_out"
)

// ConfirmationRequest is one open challenge in the pending table. Ownership
// is exclusive to the gate's pending table; the struct moves to the audit
// trail when it reaches a terminal status.
type ConfirmationRequest struct {
	OperationID string
	Operation   OperationKind
	Paths       []string
	Risk        RiskAssessment
	UserID      string
	CreatedAt   time.Time
	// BackupID is set when an automatic backup was taken before the
	// challenge was issued. Empty when no backup was required or the
	// backup degraded.
	BackupID string
	Status   ConfirmationStatus
}

// GateDecision is returned to the caller of RequestConfirmation.
type GateDecision struct {
	RequiresConfirmation bool
	OperationID          string
	Message              string
	Risk                 RiskAssessment
	BackupID             string
	// BackupDegraded flags that a required backup could not be taken.
	// The operation still proceeds; callers should surface the flag.
	BackupDegraded bool
}

var negativeKeywords = []string{"no", "cancel", "stop", "abort", "don't", "dont"}

var positiveKeywords = []string{"yes", "yeah", "yep", "sure", "ok", "okay", "confirm", "proceed", "go ahead", "do it"}

// RequiredPhrase returns the affirmative phrase demanded at a risk level.
// Critical operations need the exact phrase; High needs the keyword
// "confirm"; everything below accepts the loose positive set.
func RequiredPhrase(level RiskLevel, op OperationKind) string {
	switch level {
	case RiskCritical:
		return "confirm " + shortOperationName(op)
	case RiskHigh:
		return "confirm"
	default:
		return "yes"
	}
}

// ClassifyResponse decides whether free-form user text confirms an
// operation at the given risk level. A negative keyword anywhere in the
// text overrides any positive match.
func ClassifyResponse(level RiskLevel, op OperationKind, text string) bool {
	response := strings.ToLower(strings.TrimSpace(text))
	if response == "" {
		return false
	}
	for _, word := range negativeKeywords {
		if containsWord(response, word) {
			return false
		}
	}
	switch level {
	case RiskCritical:
		return strings.Contains(response, RequiredPhrase(level, op))
	case RiskHigh:
		return strings.Contains(response, "confirm")
	default:
		for _, word := range positiveKeywords {
			if strings.Contains(response, word) {
				return true
			}
		}
		return false
	}
}

// containsWord matches whole words so that "notes" does not read as "no".
func containsWord(text, word string) bool {
	for _, field := range strings.FieldsFunc(text, func(r rune) bool {
		return r == ' ' || r == ',' || r == '.' || r == '!' || r == '?' || r == ';'
	}) {
		if field == word {
			return true
		}
	}
	return false
}

// shortOperationName turns delete_files into "delete", flatten_folder into
// "flatten", so critical phrases read naturally ("confirm delete").
func shortOperationName(op OperationKind) string {
	name := string(op)
	if idx := strings.IndexByte(name, '_'); idx > 0 {
		return name[:idx]
	}
	return name
}

// SummarizePaths previews up to five paths for confirmation messages.
func SummarizePaths(paths []string) string {
	const maxPreview = 5
	shown := paths
	if len(shown) > maxPreview {
		shown = shown[:maxPreview]
	}
	summary := strings.Join(shown, ", ")
	if extra := len(paths) - len(shown); extra > 0 {
		summary += fmt.Sprintf(" and %d more", extra)
	}
	return summary
}

// ConfirmationMessage renders the challenge shown to the user.
func ConfirmationMessage(op OperationKind, level RiskLevel, fileCount int, sizeHuman string) string {
	phrase := RequiredPhrase(level, op)
	switch level {
	case RiskCritical:
		return fmt.Sprintf(
			"CRITICAL: %s will affect %d item(s) (%s). Say %q to proceed or 'cancel' to abort.",
			op, fileCount, sizeHuman, phrase)
	case RiskHigh:
		return fmt.Sprintf(
			"HIGH RISK: %s will affect %d item(s) (%s). Say 'confirm' to proceed or 'cancel' to abort.",
			op, fileCount, sizeHuman)
	default:
		return fmt.Sprintf(
			"%s will affect %d item(s) (%s). Say 'yes' to proceed or 'no' to cancel.",
			op, fileCount, sizeHuman)
	}
}
