package model

// Status is the pipeline-wide risk level derived from a RiskSummary.
type Status string

const (
	StatusSecure     Status = "SECURE"
	StatusMediumRisk Status = "MEDIUM_RISK"
	StatusHighRisk   Status = "HIGH_RISK"
	StatusCritical   Status = "CRITICAL"
)

// Label is the human form used on the dashboard.
func (s Status) Label() string {
	switch s {
	case StatusCritical:
		return "CRITICAL"
	case StatusHighRisk:
		return "HIGH RISK"
	case StatusMediumRisk:
		return "MEDIUM RISK"
	default:
		return "SECURE"
	}
}

type RiskSummary struct {
	TotalCritical int    `json:"total_critical"`
	TotalHigh     int    `json:"total_high"`
	TotalMedium   int    `json:"total_medium"`
	TotalFindings int    `json:"total_findings"`
	Status        Status `json:"status"`
}

// Check is the outcome of one gate policy.
type Check struct {
	Policy    string `json:"policy"`
	Observed  int    `json:"observed"`
	Passed    bool   `json:"passed"`
	Violation string `json:"violation,omitempty"` // message reported when the check fails
}

// Verdict is the terminal output of the gate.
type Verdict struct {
	Passed     bool     `json:"passed"`
	Violations []string `json:"violations"`
	Checks     []Check  `json:"checks"`
	ExitCode   int      `json:"exit_code"`
}
