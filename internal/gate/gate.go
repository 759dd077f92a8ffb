// Package gate decides whether a build may proceed.
//
// Two policies are applied, each with zero tolerance: no high severity code
// issue (SAST) and no known vulnerable dependency (SCA). They are combined
// with OR. DAST findings never take part in the decision, and the tiered
// risk summary is not consulted.
package gate

import (
	"github.com/CZERTAINLY/Gatekeeper/internal/model"
	"github.com/CZERTAINLY/Gatekeeper/internal/risk"
)

const (
	PolicyHighSeverityCode       = "no-high-severity-code-issues"
	PolicyVulnerableDependencies = "no-vulnerable-dependencies"

	ViolationHighSeverityCode       = "Policy Violation - High Severity Code Issues Detected."
	ViolationVulnerableDependencies = "Policy Violation - Vulnerable Dependencies Detected."
)

// Evaluate applies both policies. A report which failed to parse counts as
// zero findings; its diagnostic is kept on the report for the operator.
func Evaluate(sast, sca model.Report) model.Verdict {
	checks := []model.Check{
		check(PolicyHighSeverityCode, sast.Counts.High, ViolationHighSeverityCode),
		check(PolicyVulnerableDependencies, risk.SCACount(sca), ViolationVulnerableDependencies),
	}

	v := model.Verdict{
		Passed:     true,
		Violations: []string{},
		Checks:     checks,
	}
	for _, c := range checks {
		if !c.Passed {
			v.Passed = false
			v.Violations = append(v.Violations, c.Violation)
		}
	}
	if !v.Passed {
		v.ExitCode = 1
	}
	return v
}

func check(policy string, observed int, violation string) model.Check {
	c := model.Check{
		Policy:   policy,
		Observed: observed,
		Passed:   observed == 0,
	}
	if !c.Passed {
		c.Violation = violation
	}
	return c
}
