// Package bandit normalizes JSON reports of the Bandit SAST scanner.
package bandit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/CZERTAINLY/Gatekeeper/internal/artifact"
	"github.com/CZERTAINLY/Gatekeeper/internal/jsonscan"
	"github.com/CZERTAINLY/Gatekeeper/internal/log"
	"github.com/CZERTAINLY/Gatekeeper/internal/model"
)

// severities maps bandit issue_severity and metric labels to buckets.
var severities = map[string]model.Severity{
	"HIGH":      model.SeverityHigh,
	"MEDIUM":    model.SeverityMedium,
	"LOW":       model.SeverityLow,
	"UNDEFINED": model.SeverityInformational,
}

// labels fixes the order in which metric counters are read.
var labels = []string{"HIGH", "MEDIUM", "LOW", "UNDEFINED"}

type result struct {
	TestID   string `json:"test_id"`
	TestName string `json:"test_name"`
	Severity string `json:"issue_severity"`
	Filename string `json:"filename"`
	Line     int    `json:"line_number"`
	Text     string `json:"issue_text"`
	MoreInfo string `json:"more_info"`
	CWE      *struct {
		ID int `json:"id"`
	} `json:"issue_cwe"`
}

// Load parses the bandit report stored at path.
func Load(ctx context.Context, path string) model.Report {
	return artifact.Load(ctx, model.SourceSAST, path, Parse)
}

// Parse converts a bandit JSON report. It never fails: unreadable input
// yields a report with ParseOK=false.
func Parse(ctx context.Context, raw []byte) model.Report {
	ctx = log.ContextAttrs(ctx, slog.String("scanner", "bandit"))

	var doc map[string]json.RawMessage
	if _, err := jsonscan.Unmarshal(raw, &doc); err != nil {
		return artifact.Degraded(ctx, model.SourceSAST, fmt.Errorf("decoding bandit report: %w", err))
	}
	metrics, hasMetrics := doc["metrics"]
	results, hasResults := doc["results"]
	if !hasMetrics && !hasResults {
		return artifact.Degraded(ctx, model.SourceSAST, fmt.Errorf("bandit report has neither metrics nor results: %w", model.ErrUnknownSchema))
	}

	report := model.Report{
		Source:   model.SourceSAST,
		Findings: []model.Finding{},
		ParseOK:  true,
	}

	if hasMetrics {
		counts, notes := parseMetrics(metrics)
		report.Counts = counts
		report.Notes = append(report.Notes, notes...)
	} else {
		report.Notes = append(report.Notes, model.Note{
			Code:    model.NoteMissingMetrics,
			Message: "report has no metrics block, severity counts taken from results",
		})
	}

	if hasResults {
		findings, total, notes := parseResults(results)
		report.Findings = findings
		report.Total = total
		report.Notes = append(report.Notes, notes...)
	}
	reconcile(&report)

	slog.DebugContext(ctx, "report parsed",
		slog.Int("high", report.Counts.High),
		slog.Int("medium", report.Counts.Medium),
		slog.Int("low", report.Counts.Low),
		slog.Int("findings", len(report.Findings)),
	)
	return report
}

// parseMetrics reads the SEVERITY.* counters. Bandit writes them under
// metrics._totals, flattened variants put them directly into metrics.
// Counters are numbers or numeric strings, any other value is reported in a
// note and reads as zero.
func parseMetrics(raw json.RawMessage) (model.SeverityCounts, []model.Note) {
	var zero model.SeverityCounts
	var metrics map[string]json.RawMessage
	if err := json.Unmarshal(raw, &metrics); err != nil {
		return zero, []model.Note{{
			Code:    model.NoteMissingMetrics,
			Message: fmt.Sprintf("metrics block is not an object: %v", err),
		}}
	}

	block := raw
	if totals, ok := metrics["_totals"]; ok {
		block = totals
	}
	var values map[string]any
	if err := json.Unmarshal(block, &values); err != nil {
		return zero, []model.Note{{
			Code:    model.NoteMissingMetrics,
			Message: fmt.Sprintf("metrics totals are not an object: %v", err),
		}}
	}

	var counts model.SeverityCounts
	var notes []model.Note
	found := false
	for _, label := range labels {
		key := "SEVERITY." + label
		v, ok := values[key]
		if !ok {
			continue
		}
		found = true
		n, err := counter(v)
		if err != nil {
			notes = append(notes, model.Note{
				Code:    model.NoteMetricsDrift,
				Message: fmt.Sprintf("%s: %v", key, err),
			})
			continue
		}
		counts = counts.Add(severities[label], n)
	}
	if !found {
		notes = append(notes, model.Note{
			Code:    model.NoteMissingMetrics,
			Message: "metrics contain no SEVERITY counters",
		})
	}
	return counts, notes
}

func counter(v any) (int, error) {
	var n int
	switch x := v.(type) {
	case float64:
		n = int(x)
	case string:
		var err error
		n, err = strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", x)
		}
	default:
		return 0, fmt.Errorf("unsupported value %v (%T)", v, v)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative count %d", n)
	}
	return n, nil
}

// reconcile raises the metric counters to the number of results of the same
// severity. A report never reads cleaner than the issues it lists.
func reconcile(report *model.Report) {
	var listed model.SeverityCounts
	for _, f := range report.Findings {
		listed = listed.Add(f.Severity, 1)
	}
	for _, s := range []model.Severity{model.SeverityHigh, model.SeverityMedium, model.SeverityLow} {
		metric, n := report.Counts.Get(s), listed.Get(s)
		if n <= metric {
			continue
		}
		report.Counts = report.Counts.Add(s, n-metric)
		report.Notes = append(report.Notes, model.Note{
			Code:    model.NoteResultsCountMismatch,
			Message: fmt.Sprintf("results list %d %s issues, metrics count %d", n, s, metric),
		})
	}
}

func parseResults(raw json.RawMessage) ([]model.Finding, int, []model.Note) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return []model.Finding{}, 0, []model.Note{{
			Code:    model.NoteMalformedFindings,
			Message: fmt.Sprintf("results is not an array: %v", err),
		}}
	}

	var notes []model.Note
	findings := make([]model.Finding, 0, len(items))
	for idx, item := range items {
		var r result
		if err := json.Unmarshal(item, &r); err != nil {
			notes = append(notes, model.Note{
				Code:    model.NoteMalformedFindings,
				Message: fmt.Sprintf("results[%d] skipped: %v", idx, err),
			})
			continue
		}
		severity, ok := severities[strings.ToUpper(strings.TrimSpace(r.Severity))]
		if !ok {
			severity = model.SeverityInformational
			notes = append(notes, model.Note{
				Code:    model.NoteUnknownSeverity,
				Message: fmt.Sprintf("results[%d]: unknown severity %q", idx, r.Severity),
			})
		}
		findings = append(findings, toFinding(r, severity))
	}
	return findings, len(items), notes
}

func toFinding(r result, severity model.Severity) model.Finding {
	title := r.TestName
	if title == "" {
		title = "Unknown Issue"
	}
	remediation := Remediation(r.TestID)
	var cwe int
	if r.CWE != nil {
		cwe = r.CWE.ID
	}
	return model.Finding{
		Source:   model.SourceSAST,
		Severity: severity,
		ID:       r.TestID,
		Title:    title,
		Location: model.Location{
			File: r.Filename,
			Line: r.Line,
		},
		Description: r.Text,
		Remediation: &remediation,
		CWE:         cwe,
		Reference:   r.MoreInfo,
	}
}
