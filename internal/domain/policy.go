package domain

// ReasonCode tags one cause of a path policy rejection or flag.
type ReasonCode string

const (
	ReasonOutsideRoots        ReasonCode = "outside_allowed_roots"
	ReasonForbiddenRoot       ReasonCode = "forbidden_root"
	ReasonHiddenSegment       ReasonCode = "hidden_segment"
	ReasonSensitivePattern    ReasonCode = "sensitive_pattern"
	ReasonProtectedFile       ReasonCode = "protected_file"
	ReasonDisallowedExtension ReasonCode = "disallowed_extension"
)

// PathDecision is the outcome of classifying a single path. It is computed
// fresh on every call and never persisted.
type PathDecision struct {
	ResolvedPath string
	Allowed      bool
	// Sensitive marks a path that is permitted but should raise the
	// operation's reported risk.
	Sensitive bool
	Reasons   []ReasonCode
}

// HasReason reports whether the decision carries the given code.
func (d PathDecision) HasReason(code ReasonCode) bool {
	for _, r := range d.Reasons {
		if r == code {
			return true
		}
	}
	return false
}

// PolicyRules mirrors ~/.filegate/policy.yaml.
type PolicyRules struct {
	AllowedRoots        []string `yaml:"allowed_roots"`
	ForbiddenRoots      []string `yaml:"forbidden_roots"`
	ForbiddenNames      []string `yaml:"forbidden_names"`
	ProtectedExtensions []string `yaml:"protected_extensions"`
	ProtectedFilenames  []string `yaml:"protected_filenames"`
	SensitiveNames      []string `yaml:"sensitive_names"`
	SystemIndicators    []string `yaml:"system_indicators"`
}
