package model

import (
	"fmt"
	"strings"
)

// Finding is one normalized issue reported by a scanner.
type Finding struct {
	Source      Source       `json:"source"`
	Severity    Severity     `json:"severity"`
	ID          string       `json:"id,omitempty"` // bandit test id, CVE or advisory id, zap plugin id
	Title       string       `json:"title"`
	Location    Location     `json:"location"`
	Description string       `json:"description,omitempty"`
	Remediation *Remediation `json:"remediation,omitempty"`
	CWE         int          `json:"cwe,omitempty"`
	Reference   string       `json:"reference,omitempty"` // advisory or documentation URL
}

// Location is where a finding lives. Which fields are set depends on the
// source: File/Line for SAST, Package/Version for SCA, URLs for DAST.
type Location struct {
	File    string   `json:"file,omitempty"`
	Line    int      `json:"line,omitempty"`
	Package string   `json:"package,omitempty"`
	Version string   `json:"version,omitempty"`
	URLs    []string `json:"urls,omitempty"`
	// OmittedURLs is the number of affected URLs dropped by the per-finding cap.
	OmittedURLs int `json:"omitted_urls,omitempty"`
}

func (l Location) String() string {
	switch {
	case l.File != "":
		if l.Line > 0 {
			return fmt.Sprintf("%s:%d", l.File, l.Line)
		}
		return l.File
	case l.Package != "":
		if l.Version != "" {
			return l.Package + "@" + l.Version
		}
		return l.Package
	case len(l.URLs) > 0:
		s := strings.Join(l.URLs, ", ")
		if l.OmittedURLs > 0 {
			s += fmt.Sprintf(" (+%d more)", l.OmittedURLs)
		}
		return s
	default:
		return ""
	}
}

type Remediation struct {
	Text    string `json:"text"`
	Example string `json:"example,omitempty"`
}
