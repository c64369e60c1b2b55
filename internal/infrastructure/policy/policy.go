// Package policy classifies filesystem paths against configured allow,
// forbid, and protection rules. Decisions are pure functions of the rules
// and the resolved path; nothing here mutates the filesystem.
package policy

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/doeshing/filegate/assets"
	"github.com/doeshing/filegate/internal/domain"
	"github.com/doeshing/filegate/internal/pkg/filesystem"
	"github.com/doeshing/filegate/internal/ports"
)

// Validator implements the ports.PathPolicy port.
type Validator struct {
	allowedRoots        []string
	forbiddenRoots      []string
	forbiddenNames      []string
	protectedExtensions map[string]bool
	protectedFilenames  map[string]bool
	sensitiveNames      []string
}

// NewValidator loads policy rules from disk, falling back to the embedded
// defaults when the file is missing or a section is empty.
func NewValidator(rulesPath string) (*Validator, error) {
	rules, err := LoadRules(rulesPath)
	if err != nil {
		return nil, err
	}
	return NewValidatorFromRules(rules), nil
}

// NewValidatorFromRules builds a validator directly from a rules document.
// Tests use this to pin roots under a temp directory.
func NewValidatorFromRules(rules domain.PolicyRules) *Validator {
	v := &Validator{
		forbiddenNames:      rules.ForbiddenNames,
		sensitiveNames:      rules.SensitiveNames,
		protectedExtensions: map[string]bool{},
		protectedFilenames:  map[string]bool{},
	}
	for _, root := range rules.AllowedRoots {
		v.allowedRoots = append(v.allowedRoots, normalizeRoot(root))
	}
	for _, root := range rules.ForbiddenRoots {
		v.forbiddenRoots = append(v.forbiddenRoots, normalizeRoot(root))
	}
	for _, ext := range rules.ProtectedExtensions {
		v.protectedExtensions[strings.ToLower(ext)] = true
	}
	for _, name := range rules.ProtectedFilenames {
		v.protectedFilenames[name] = true
	}
	return v
}

// Classify implements ports.PathPolicy.
func (v *Validator) Classify(path string, op domain.OperationKind, mustExist bool) (domain.PathDecision, error) {
	resolved, err := resolvePath(path, mustExist)
	if err != nil {
		return domain.PathDecision{}, err
	}

	decision := domain.PathDecision{ResolvedPath: resolved, Allowed: true}

	// Forbidden roots win over everything, including nested allowed roots.
	if root := v.matchRoot(resolved, v.forbiddenRoots); root != "" {
		decision.Allowed = false
		decision.Reasons = append(decision.Reasons, domain.ReasonForbiddenRoot)
	}
	if v.matchRoot(resolved, v.allowedRoots) == "" {
		decision.Allowed = false
		decision.Reasons = append(decision.Reasons, domain.ReasonOutsideRoots)
	}
	if hasHiddenSegment(resolved, v.allowedRoots) {
		decision.Allowed = false
		decision.Reasons = append(decision.Reasons, domain.ReasonHiddenSegment)
	}
	if v.matchForbiddenName(resolved) {
		decision.Allowed = false
		decision.Reasons = append(decision.Reasons, domain.ReasonSensitivePattern)
	}

	intent := op.Intent()
	if intent == domain.IntentDelete || intent == domain.IntentModify {
		if v.protectedExtensions[strings.ToLower(filepath.Ext(resolved))] {
			decision.Allowed = false
			decision.Reasons = append(decision.Reasons, domain.ReasonDisallowedExtension)
		}
		if v.protectedFilenames[filepath.Base(resolved)] {
			decision.Allowed = false
			decision.Reasons = append(decision.Reasons, domain.ReasonProtectedFile)
		}
	}

	// Sensitive directories are a signal, not a blocker.
	if decision.Allowed && v.IsSensitive(resolved) {
		decision.Sensitive = true
		decision.Reasons = append(decision.Reasons, domain.ReasonSensitivePattern)
	}

	if !decision.Allowed {
		return decision, &domain.PolicyViolationError{Path: resolved, Reasons: decision.Reasons}
	}
	return decision, nil
}

// ClassifyAll implements ports.PathPolicy. The batch is atomic: one bad
// path rejects the whole set with every per-path reason attached.
func (v *Validator) ClassifyAll(paths []string, op domain.OperationKind, mustExist bool) ([]domain.PathDecision, error) {
	if len(paths) == 0 {
		return nil, &domain.ValidationError{Field: "paths", Msg: "no paths supplied"}
	}
	decisions := make([]domain.PathDecision, 0, len(paths))
	var violations []*domain.PolicyViolationError
	for _, p := range paths {
		decision, err := v.Classify(p, op, mustExist)
		if err != nil {
			var pv *domain.PolicyViolationError
			if errors.As(err, &pv) {
				violations = append(violations, pv)
				continue
			}
			return nil, err
		}
		decisions = append(decisions, decision)
	}
	if len(violations) > 0 {
		return nil, &domain.BatchValidationError{Violations: violations}
	}
	return decisions, nil
}

// IsSensitive reports whether any segment of the path matches the
// credential-sounding name set.
func (v *Validator) IsSensitive(path string) bool {
	lower := strings.ToLower(path)
	for _, name := range v.sensitiveNames {
		if strings.Contains(lower, strings.ToLower(name)) {
			return true
		}
	}
	return false
}

// IsProtectedFile reports whether the file name is in the protected set.
func (v *Validator) IsProtectedFile(path string) bool {
	return v.protectedFilenames[filepath.Base(path)]
}

// resolvePath canonicalizes the caller's string: tilde expansion, absolute
// form, then symlink resolution. The literal string is never trusted. When
// the leaf does not exist yet, the deepest existing ancestor is resolved
// instead so symlinked parents cannot smuggle a path outside the roots.
func resolvePath(path string, mustExist bool) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", &domain.ValidationError{Field: "path", Msg: "empty path"}
	}
	expanded := filesystem.ExpandPath(path)
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", &domain.ValidationError{Field: "path", Msg: err.Error()}
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err == nil {
		return resolved, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return "", &domain.ValidationError{Field: "path", Msg: err.Error()}
	}
	if mustExist {
		return "", &domain.ValidationError{Field: "path", Msg: "path does not exist: " + abs}
	}
	dir, base := filepath.Split(filepath.Clean(abs))
	resolvedDir, err := filepath.EvalSymlinks(filepath.Clean(dir))
	if err != nil {
		// Parent missing too; fall back to the cleaned absolute path.
		return filepath.Clean(abs), nil
	}
	return filepath.Join(resolvedDir, base), nil
}

func (v *Validator) matchRoot(path string, roots []string) string {
	for _, root := range roots {
		if isUnder(path, root) {
			return root
		}
	}
	return ""
}

func (v *Validator) matchForbiddenName(path string) bool {
	segments := strings.Split(path, string(filepath.Separator))
	for _, segment := range segments {
		for _, name := range v.forbiddenNames {
			if strings.EqualFold(segment, name) {
				return true
			}
		}
	}
	return false
}

// hasHiddenSegment flags dot-directories in the interior of the path.
// Hidden components of an allowed root itself (e.g. /tmp/.work/root) are
// tolerated when the root was configured that way.
func hasHiddenSegment(path string, allowedRoots []string) bool {
	root := ""
	for _, r := range allowedRoots {
		if isUnder(path, r) && len(r) > len(root) {
			root = r
		}
	}
	rel := path
	if root != "" {
		r, err := filepath.Rel(root, path)
		if err == nil {
			rel = r
		}
	}
	segments := strings.Split(rel, string(filepath.Separator))
	for i, segment := range segments {
		// The final segment may be a dotfile the user explicitly named;
		// forbidden-name rules handle the dangerous ones.
		if i == len(segments)-1 {
			break
		}
		if len(segment) > 1 && strings.HasPrefix(segment, ".") {
			return true
		}
	}
	return false
}

func isUnder(path, root string) bool {
	if root == "" {
		return false
	}
	if path == root {
		return true
	}
	return strings.HasPrefix(path, root+string(filepath.Separator))
}

func normalizeRoot(root string) string {
	expanded := filesystem.ExpandPath(root)
	if resolved, err := filepath.EvalSymlinks(expanded); err == nil {
		return resolved
	}
	return filepath.Clean(expanded)
}

// LoadRules reads a rules document, filling empty sections from the
// embedded defaults. A missing file yields the defaults entirely.
func LoadRules(path string) (domain.PolicyRules, error) {
	defaults := defaultRules()
	if path == "" {
		return defaults, nil
	}
	data, err := os.ReadFile(filesystem.ExpandPath(path))
	if err != nil {
		// Missing rules file falls back to embedded defaults.
		return defaults, nil
	}
	var rules domain.PolicyRules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return domain.PolicyRules{}, err
	}
	if len(rules.AllowedRoots) == 0 {
		rules.AllowedRoots = defaults.AllowedRoots
	}
	if len(rules.ForbiddenRoots) == 0 {
		rules.ForbiddenRoots = defaults.ForbiddenRoots
	}
	if len(rules.ForbiddenNames) == 0 {
		rules.ForbiddenNames = defaults.ForbiddenNames
	}
	if len(rules.ProtectedExtensions) == 0 {
		rules.ProtectedExtensions = defaults.ProtectedExtensions
	}
	if len(rules.ProtectedFilenames) == 0 {
		rules.ProtectedFilenames = defaults.ProtectedFilenames
	}
	if len(rules.SensitiveNames) == 0 {
		rules.SensitiveNames = defaults.SensitiveNames
	}
	if len(rules.SystemIndicators) == 0 {
		rules.SystemIndicators = defaults.SystemIndicators
	}
	return rules, nil
}

func defaultRules() domain.PolicyRules {
	var rules domain.PolicyRules
	if err := yaml.Unmarshal(assets.DefaultPolicyYAML, &rules); err != nil {
		// The embedded document is validated by tests; an empty rule set
		// refuses everything, which is the safe failure mode.
		return domain.PolicyRules{}
	}
	return rules
}

// DefaultRules exposes the embedded rule set.
func DefaultRules() domain.PolicyRules {
	return defaultRules()
}

var _ ports.PathPolicy = (*Validator)(nil)
