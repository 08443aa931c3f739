package runner

import (
	"fmt"
	"strings"

	"github.com/zricethezav/gitleaks/v8/detect"
)

// Guard inspects a rendered document before it leaves the machine.
type Guard interface {
	Check(jobName string, doc []byte) error
}

// Leak is one secret-like match in a rendered document.
type Leak struct {
	RuleID      string
	Description string
	Line        int
}

// LeakError lists the secret-like matches found in one job document.
type LeakError struct {
	Leaks []Leak
}

func (e *LeakError) Error() string {
	parts := make([]string, 0, len(e.Leaks))
	for _, l := range e.Leaks {
		parts = append(parts, fmt.Sprintf("%s at line %d", l.RuleID, l.Line))
	}
	return fmt.Sprintf("document contains %d possible secret(s): %s", len(e.Leaks), strings.Join(parts, ", "))
}

// LeakGuard rejects documents matching the gitleaks default rule set.
// Rendered documents are uploaded verbatim and become readable to every user
// of the job service.
type LeakGuard struct {
	detector *detect.Detector
}

// NewLeakGuard loads the default gitleaks rules.
func NewLeakGuard() (*LeakGuard, error) {
	d, err := detect.NewDetectorDefaultConfig()
	if err != nil {
		return nil, fmt.Errorf("loading secret detection rules: %w", err)
	}
	return &LeakGuard{detector: d}, nil
}

// Check returns a *LeakError when doc contains secret-like values.
func (g *LeakGuard) Check(_ string, doc []byte) error {
	hits := g.detector.DetectBytes(doc)
	if len(hits) == 0 {
		return nil
	}
	leaks := make([]Leak, 0, len(hits))
	for _, h := range hits {
		leaks = append(leaks, Leak{
			RuleID:      h.RuleID,
			Description: h.Description,
			Line:        h.StartLine + 1, // gitleaks is 0-indexed
		})
	}
	return &LeakError{Leaks: leaks}
}
