// Package risk scores operation requests with an additive model: a base
// score per operation kind plus scale and sensitivity escalations, clamped
// to 0..100 and mapped onto a level.
package risk

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/doeshing/filegate/internal/domain"
	"github.com/doeshing/filegate/internal/pkg/filesystem"
	"github.com/doeshing/filegate/internal/ports"
)

// Assessor implements ports.RiskAssessor.
type Assessor struct {
	thresholds domain.RiskSettings
	rules      domain.PolicyRules
	backups    bool
	log        ports.Logger

	// sizeOf and countOf are swappable for tests that need deterministic
	// filesystem scale without creating gigabytes of fixtures.
	sizeOf  func(path string) int64
	countOf func(path string) int
}

// NewAssessor builds an assessor over the given thresholds and policy
// rules. The rules supply the sensitive, protected, and system name sets.
// backupsEnabled says whether a pre-operation backup can actually be taken;
// when it is false no assessment ever requires one.
func NewAssessor(thresholds domain.RiskSettings, rules domain.PolicyRules, backupsEnabled bool, log ports.Logger) *Assessor {
	return &Assessor{
		thresholds: thresholds,
		rules:      rules,
		backups:    backupsEnabled,
		log:        log,
		sizeOf:     filesystem.PathSize,
		countOf:    filesystem.CountFiles,
	}
}

// Assess implements ports.RiskAssessor. Unknown operation kinds score a
// conservative middle base rather than being rejected; the policy layer has
// already vetted the paths by the time scoring runs.
func (a *Assessor) Assess(op domain.OperationKind, paths []string, params domain.OperationParams) domain.RiskAssessment {
	score := op.BaseScore()
	var factors []string

	if !op.Known() {
		factors = append(factors, fmt.Sprintf("unknown operation %q", op))
	} else if score > 0 {
		factors = append(factors, fmt.Sprintf("operation %s (base %d)", op, score))
	}

	fileCount := 0
	var totalSize int64
	for _, p := range paths {
		fileCount += a.countOf(p)
		totalSize += a.sizeOf(p)
	}

	if pts := a.countEscalation(fileCount); pts > 0 {
		score += pts
		factors = append(factors, fmt.Sprintf("%d files affected (+%d)", fileCount, pts))
	}
	if pts := a.sizeEscalation(totalSize); pts > 0 {
		score += pts
		factors = append(factors, fmt.Sprintf("%s of data affected (+%d)", humanize.IBytes(uint64(totalSize)), pts))
	}

	for _, p := range paths {
		if a.isSensitivePath(p) {
			score += 25
			factors = append(factors, fmt.Sprintf("sensitive location: %s (+25)", p))
			break
		}
	}
	for _, p := range paths {
		if a.isProtectedFile(p) {
			score += 20
			factors = append(factors, fmt.Sprintf("protected file: %s (+20)", filepath.Base(p)))
			break
		}
	}
	if params.Recursive {
		score += 15
		factors = append(factors, "recursive operation (+15)")
	}
	for _, p := range paths {
		if a.looksLikeSystemPath(p) {
			score += 30
			factors = append(factors, fmt.Sprintf("system file indicator: %s (+30)", p))
			break
		}
	}

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}

	level := domain.LevelForScore(score)
	assessment := domain.RiskAssessment{
		Level:                level,
		Score:                score,
		Factors:              factors,
		Recommendation:       recommendation(level),
		RequiresConfirmation: requiresConfirmation(op, level),
		RequiresBackup:       a.backups && op.Destructive() && level.Severity() >= domain.RiskMedium.Severity(),
	}

	if a.log != nil {
		a.log.Debug("risk assessed", map[string]interface{}{
			"operation": string(op),
			"score":     score,
			"level":     string(level),
			"files":     fileCount,
			"size":      totalSize,
		})
	}
	return assessment
}

// Escalations kick in strictly above each threshold, so a batch of exactly
// the threshold size still scores the lower tier.
func (a *Assessor) countEscalation(fileCount int) int {
	switch {
	case fileCount > a.thresholds.HighFileCount:
		return 40
	case fileCount > a.thresholds.MediumFileCount:
		return 25
	case fileCount > a.thresholds.LowFileCount:
		return 10
	default:
		return 0
	}
}

func (a *Assessor) sizeEscalation(totalSize int64) int {
	switch {
	case totalSize > a.thresholds.HighSizeBytes:
		return 30
	case totalSize > a.thresholds.MediumSizeBytes:
		return 20
	case totalSize > a.thresholds.LowSizeBytes:
		return 10
	default:
		return 0
	}
}

func (a *Assessor) isSensitivePath(path string) bool {
	lower := strings.ToLower(path)
	for _, name := range a.rules.SensitiveNames {
		if strings.Contains(lower, strings.ToLower(name)) {
			return true
		}
	}
	return false
}

func (a *Assessor) isProtectedFile(path string) bool {
	base := filepath.Base(path)
	for _, name := range a.rules.ProtectedFilenames {
		if base == name {
			return true
		}
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, protected := range a.rules.ProtectedExtensions {
		if ext == strings.ToLower(protected) {
			return true
		}
	}
	return false
}

// looksLikeSystemPath is a substring heuristic over the configured
// indicators. It trades precision for recall: a false positive costs one
// extra confirmation, a false negative could cost an OS file.
func (a *Assessor) looksLikeSystemPath(path string) bool {
	lower := strings.ToLower(path)
	for _, indicator := range a.rules.SystemIndicators {
		if strings.Contains(lower, strings.ToLower(indicator)) {
			return true
		}
	}
	return false
}

// requiresConfirmation: read-only operations never confirm, flagged kinds
// always do, everything else confirms from medium upward.
func requiresConfirmation(op domain.OperationKind, level domain.RiskLevel) bool {
	if op.ReadOnly() {
		return false
	}
	if op.AlwaysConfirm() {
		return true
	}
	return level.Severity() >= domain.RiskMedium.Severity()
}

func recommendation(level domain.RiskLevel) string {
	switch level {
	case domain.RiskCritical:
		return "Review every path carefully before confirming. A backup will be taken, but restoring is slower than not deleting."
	case domain.RiskHigh:
		return "Double-check the target paths. Confirmation and a backup are required."
	case domain.RiskMedium:
		return "Verify the operation matches your intent before confirming."
	case domain.RiskLow:
		return "Low risk. Proceed normally."
	default:
		return "Safe operation."
	}
}

var _ ports.RiskAssessor = (*Assessor)(nil)
