package model

// Source identifies a scanner family.
type Source string

const (
	SourceSAST Source = "SAST"
	SourceSCA  Source = "SCA"
	SourceDAST Source = "DAST"
)

// Severity is a normalized severity bucket. Each parser owns a table mapping
// its scanner's native labels into this closed set.
type Severity string

const (
	SeverityCritical      Severity = "Critical"
	SeverityHigh          Severity = "High"
	SeverityMedium        Severity = "Medium"
	SeverityLow           Severity = "Low"
	SeverityInformational Severity = "Informational"
)

// SeverityCounts holds per-bucket counts. Every bucket is always present.
type SeverityCounts struct {
	High          int `json:"high"`
	Medium        int `json:"medium"`
	Low           int `json:"low"`
	Informational int `json:"informational"`
}

// Get returns the count for a severity bucket. Critical is not emitted by any
// supported scanner and always reads as zero.
func (c SeverityCounts) Get(s Severity) int {
	switch s {
	case SeverityHigh:
		return c.High
	case SeverityMedium:
		return c.Medium
	case SeverityLow:
		return c.Low
	case SeverityInformational:
		return c.Informational
	default:
		return 0
	}
}

// Add returns a copy of c with n added to the bucket of s. Critical and
// unknown severities land in Informational.
func (c SeverityCounts) Add(s Severity, n int) SeverityCounts {
	switch s {
	case SeverityHigh:
		c.High += n
	case SeverityMedium:
		c.Medium += n
	case SeverityLow:
		c.Low += n
	default:
		c.Informational += n
	}
	return c
}

func (c SeverityCounts) Total() int {
	return c.High + c.Medium + c.Low + c.Informational
}
