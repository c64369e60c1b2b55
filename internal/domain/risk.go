package domain

// RiskLevel enumerates gate outcomes ordered by severity.
type RiskLevel string

const (
	RiskSafe     RiskLevel = "safe"
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

var riskOrder = map[RiskLevel]int{
	RiskSafe:     0,
	RiskLow:      1,
	RiskMedium:   2,
	RiskHigh:     3,
	RiskCritical: 4,
}

// Severity returns the ordinal position of the level (safe=0 .. critical=4).
func (l RiskLevel) Severity() int {
	return riskOrder[l]
}

// MoreSevere reports whether l outranks other.
func (l RiskLevel) MoreSevere(other RiskLevel) bool {
	return riskOrder[l] > riskOrder[other]
}

// LevelForScore maps an additive risk score onto a level.
func LevelForScore(score int) RiskLevel {
	switch {
	case score >= 80:
		return RiskCritical
	case score >= 60:
		return RiskHigh
	case score >= 35:
		return RiskMedium
	case score >= 15:
		return RiskLow
	default:
		return RiskSafe
	}
}

// RiskAssessment aggregates the scoring result for one operation request.
// Instances are immutable once returned by the assessor.
type RiskAssessment struct {
	Level                RiskLevel `json:"level"`
	Score                int       `json:"score"`
	Factors              []string  `json:"factors"`
	Recommendation       string    `json:"recommendation"`
	RequiresConfirmation bool      `json:"requires_confirmation"`
	RequiresBackup       bool      `json:"requires_backup"`
}

// OperationParams carries operation modifiers that affect scoring.
type OperationParams struct {
	Recursive   bool
	Destination string
}
