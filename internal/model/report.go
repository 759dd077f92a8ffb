package model

// Note codes recorded by parsers.
const (
	NoteMetaCountMismatch    = "meta-count-mismatch"
	NoteMetaDrift            = "meta-drift"
	NoteLegacySchema         = "legacy-schema"
	NoteMetaOnly             = "meta-only"
	NoteMalformedFindings    = "malformed-findings"
	NoteMissingMetrics       = "missing-metrics"
	NoteMetricsDrift         = "metrics-drift"
	NoteResultsCountMismatch = "results-count-mismatch"
	NoteNoSite               = "no-site"
	NoteURLsTruncated        = "urls-truncated"
	NoteUnknownSeverity      = "unknown-severity"
)

// Note is a parser-level observation which does not prevent parsing but
// which an operator must be able to audit.
type Note struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Report is the normalized output of one scanner family.
//
// Counts and Findings are sourced independently: counts may come from
// scanner-native metrics while findings are extracted item by item. Never
// derive one from the other.
type Report struct {
	Source   Source         `json:"source"`
	Counts   SeverityCounts `json:"counts"`
	Findings []Finding      `json:"findings"`
	// Total is the scanner-native item count (results, vulnerabilities, alerts).
	Total int `json:"total"`
	// ParseOK is false when the artifact could not be understood at all. It
	// tells "nothing found" apart from "could not read the input".
	ParseOK    bool   `json:"parse_ok"`
	Diagnostic string `json:"diagnostic,omitempty"`
	Notes      []Note `json:"notes,omitempty"`
}

// Degraded returns the empty report used when an artifact can't be parsed.
func Degraded(source Source, diagnostic string) Report {
	return Report{
		Source:     source,
		Findings:   []Finding{},
		ParseOK:    false,
		Diagnostic: diagnostic,
	}
}

// HasNote reports whether a note with the given code was recorded.
func (r Report) HasNote(code string) bool {
	for _, n := range r.Notes {
		if n.Code == code {
			return true
		}
	}
	return false
}
