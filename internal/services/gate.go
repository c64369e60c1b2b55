// Package services orchestrates the safety gate: policy classification,
// risk scoring, confirmation challenges, backups, and audit recording.
package services

import (
	"context"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/doeshing/filegate/internal/domain"
	"github.com/doeshing/filegate/internal/infrastructure/resilience"
	"github.com/doeshing/filegate/internal/pkg/filesystem"
	"github.com/doeshing/filegate/internal/ports"
)

// GateService owns the confirmation state machine. Every gated operation
// passes through RequestConfirmation; exactly one terminal transition
// (confirm, decline, cancel, timeout) ever fires per operation id.
type GateService struct {
	policy  ports.PathPolicy
	risk    ports.RiskAssessor
	audit   ports.AuditRecorder
	backups ports.BackupService
	limiter *resilience.Limiter
	log     ports.Logger

	timeout time.Duration
	limits  domain.LimitSettings

	mu      sync.Mutex
	pending map[string]*pendingEntry

	now func() time.Time
}

type pendingEntry struct {
	req   domain.ConfirmationRequest
	timer *time.Timer
}

// NewGateService wires the gate. backups may be nil when backups are
// disabled in configuration.
func NewGateService(
	policy ports.PathPolicy,
	risk ports.RiskAssessor,
	audit ports.AuditRecorder,
	backups ports.BackupService,
	limiter *resilience.Limiter,
	timeout time.Duration,
	limits domain.LimitSettings,
	log ports.Logger,
) *GateService {
	if timeout <= 0 {
		timeout = domain.DefaultConfirmationTimeout
	}
	return &GateService{
		policy:  policy,
		risk:    risk,
		audit:   audit,
		backups: backups,
		limiter: limiter,
		log:     log,
		timeout: timeout,
		limits:  limits,
		pending: make(map[string]*pendingEntry),
		now:     time.Now,
	}
}

// RequestConfirmation gates one operation request. Safe requests are
// auto-approved; risky ones open a pending challenge and return the message
// to show the user. Policy rejections and limit breaches come back as
// errors and are audited as blocked.
func (g *GateService) RequestConfirmation(ctx context.Context, op domain.OperationKind, paths []string, userID string, params domain.OperationParams) (domain.GateDecision, error) {
	if g.limiter != nil && !g.limiter.Allow() {
		g.audit.Record(ctx, domain.AuditEvent{
			UserID:    userID,
			Operation: op,
			RiskLevel: domain.RiskSafe,
			Status:    domain.AuditBlocked,
			Paths:     paths,
			Error:     domain.ErrRateLimited.Error(),
		})
		return domain.GateDecision{}, domain.ErrRateLimited
	}

	if err := g.checkLimits(op, paths, params); err != nil {
		g.recordBlocked(ctx, op, paths, userID, err)
		return domain.GateDecision{}, err
	}

	decisions, err := g.policy.ClassifyAll(paths, op, op.MustExist())
	if err != nil {
		if domain.IsPolicyViolation(err) {
			g.recordBlocked(ctx, op, paths, userID, err)
		}
		return domain.GateDecision{}, err
	}

	resolved := make([]string, len(decisions))
	for i, d := range decisions {
		resolved[i] = d.ResolvedPath
	}

	assessment := g.risk.Assess(op, resolved, params)
	fileCount, totalSize := measure(resolved)

	if !assessment.RequiresConfirmation {
		auditID, _ := g.audit.Record(ctx, domain.AuditEvent{
			UserID:    userID,
			Operation: op,
			RiskLevel: assessment.Level,
			Status:    domain.AuditAutoApproved,
			Paths:     resolved,
			FileCount: fileCount,
			TotalSize: totalSize,
		})
		g.log.Debug("operation auto-approved", map[string]interface{}{
			"operation": string(op),
			"audit_id":  auditID,
			"level":     string(assessment.Level),
		})
		return domain.GateDecision{Risk: assessment}, nil
	}

	operationID := uuid.NewString()
	var backupID string
	degraded := false
	if assessment.RequiresBackup && g.backups != nil {
		record, backupErr := g.backups.Create(ctx, resolved, op, userID)
		if backupErr != nil {
			// The challenge still goes out; the caller sees the flag.
			degraded = true
			g.log.Error("pre-operation backup failed", backupErr, map[string]interface{}{
				"operation_id": operationID,
				"operation":    string(op),
			})
		} else {
			backupID = record.ID
		}
	}

	req := domain.ConfirmationRequest{
		OperationID: operationID,
		Operation:   op,
		Paths:       resolved,
		Risk:        assessment,
		UserID:      userID,
		CreatedAt:   g.now(),
		BackupID:    backupID,
		Status:      domain.ConfirmationPending,
	}

	g.mu.Lock()
	entry := &pendingEntry{req: req}
	entry.timer = time.AfterFunc(g.timeout, func() { g.expire(operationID) })
	g.pending[operationID] = entry
	g.mu.Unlock()

	g.audit.Record(ctx, domain.AuditEvent{
		UserID:    userID,
		Operation: op,
		RiskLevel: assessment.Level,
		Status:    domain.AuditPending,
		Paths:     resolved,
		FileCount: fileCount,
		TotalSize: totalSize,
		Details:   map[string]string{"operation_id": operationID, "backup_id": backupID},
	})

	message := domain.ConfirmationMessage(op, assessment.Level, fileCount, humanize.IBytes(uint64(totalSize))) +
		"\nAffected: " + domain.SummarizePaths(resolved)

	return domain.GateDecision{
		RequiresConfirmation: true,
		OperationID:          operationID,
		Message:              message,
		Risk:                 assessment,
		BackupID:             backupID,
		BackupDegraded:       degraded,
	}, nil
}

// Confirm resolves a pending challenge with the user's free-form response.
// It returns whether the operation may proceed and the original request.
// An unknown or already-resolved operation id returns (false, nil, nil):
// the race against timeout or cancel is settled by whoever deletes the
// entry first.
func (g *GateService) Confirm(ctx context.Context, operationID, response string) (bool, *domain.ConfirmationRequest, error) {
	entry, ok := g.take(operationID)
	if !ok {
		return false, nil, nil
	}

	req := entry.req
	approved := domain.ClassifyResponse(req.Risk.Level, req.Operation, response)
	status := domain.AuditDeclined
	if approved {
		req.Status = domain.ConfirmationConfirmed
		status = domain.AuditConfirmed
	} else {
		req.Status = domain.ConfirmationCancelled
	}

	g.audit.Record(ctx, domain.AuditEvent{
		UserID:    req.UserID,
		Operation: req.Operation,
		RiskLevel: req.Risk.Level,
		Status:    status,
		Paths:     req.Paths,
		Details:   map[string]string{"operation_id": operationID, "response": response},
	})
	return approved, &req, nil
}

// Cancel resolves a pending challenge without user text, e.g. when the
// caller abandons the operation.
func (g *GateService) Cancel(ctx context.Context, operationID, reason string) error {
	entry, ok := g.take(operationID)
	if !ok {
		return &domain.ValidationError{Field: "operation_id", Msg: "no pending confirmation: " + operationID}
	}
	req := entry.req
	req.Status = domain.ConfirmationCancelled
	g.audit.Record(ctx, domain.AuditEvent{
		UserID:    req.UserID,
		Operation: req.Operation,
		RiskLevel: req.Risk.Level,
		Status:    domain.AuditCancelled,
		Paths:     req.Paths,
		Details:   map[string]string{"operation_id": operationID, "reason": reason},
	})
	return nil
}

// Pending lists the currently open challenges in no particular order.
func (g *GateService) Pending() []domain.ConfirmationRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]domain.ConfirmationRequest, 0, len(g.pending))
	for _, entry := range g.pending {
		out = append(out, entry.req)
	}
	return out
}

// ReportResult records the terminal executed/failed entry after the caller
// ran the approved operation. It returns the audit id.
func (g *GateService) ReportResult(ctx context.Context, op domain.OperationKind, paths []string, userID string, level domain.RiskLevel, snapshotID string, opErr error) string {
	event := domain.AuditEvent{
		UserID:     userID,
		Operation:  op,
		RiskLevel:  level,
		Status:     domain.AuditExecuted,
		Paths:      paths,
		SnapshotID: snapshotID,
	}
	if opErr != nil {
		event.Status = domain.AuditFailed
		event.Error = opErr.Error()
	}
	auditID, _ := g.audit.Record(ctx, event)
	return auditID
}

// take removes and returns the pending entry, stopping its timer. The
// delete-from-map is the single point that settles confirm/cancel/timeout
// races.
func (g *GateService) take(operationID string) (*pendingEntry, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	entry, ok := g.pending[operationID]
	if !ok {
		return nil, false
	}
	delete(g.pending, operationID)
	entry.timer.Stop()
	return entry, true
}

func (g *GateService) expire(operationID string) {
	entry, ok := g.take(operationID)
	if !ok {
		return
	}
	req := entry.req
	req.Status = domain.ConfirmationTimedOut
	g.audit.Record(context.Background(), domain.AuditEvent{
		UserID:    req.UserID,
		Operation: req.Operation,
		RiskLevel: req.Risk.Level,
		Status:    domain.AuditTimedOut,
		Paths:     req.Paths,
		Details:   map[string]string{"operation_id": operationID},
	})
	g.log.Warn("confirmation timed out", map[string]interface{}{
		"operation_id": operationID,
		"operation":    string(req.Operation),
	})
}

func (g *GateService) checkLimits(op domain.OperationKind, paths []string, params domain.OperationParams) error {
	if len(paths) == 0 {
		return &domain.ValidationError{Field: "paths", Msg: "no paths supplied"}
	}
	if g.limits.MaxBatchSize > 0 && len(paths) > g.limits.MaxBatchSize {
		return &domain.ValidationError{
			Field: "paths",
			Msg:   "batch exceeds maximum size",
		}
	}
	if op.ReadOnly() {
		return nil
	}
	_, totalSize := measure(paths)
	if g.limits.MaxBatchTotalSize > 0 && totalSize > g.limits.MaxBatchTotalSize {
		return &domain.ValidationError{
			Field: "paths",
			Msg:   "batch exceeds maximum total size",
		}
	}
	if params.Recursive && g.limits.MaxRecursionDepth > 0 {
		for _, p := range paths {
			if filesystem.MaxDepth(p) > g.limits.MaxRecursionDepth {
				return &domain.ValidationError{
					Field: "paths",
					Msg:   "directory tree exceeds maximum recursion depth",
				}
			}
		}
	}
	return nil
}

func (g *GateService) recordBlocked(ctx context.Context, op domain.OperationKind, paths []string, userID string, cause error) {
	g.audit.Record(ctx, domain.AuditEvent{
		UserID:    userID,
		Operation: op,
		RiskLevel: domain.RiskSafe,
		Status:    domain.AuditBlocked,
		Paths:     paths,
		Error:     cause.Error(),
	})
}

func measure(paths []string) (int, int64) {
	count := 0
	var size int64
	for _, p := range paths {
		count += filesystem.CountFiles(p)
		size += filesystem.PathSize(p)
	}
	return count, size
}
