// Package zap normalizes JSON reports of the OWASP ZAP baseline scan.
package zap

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

// MaxURLs is the number of affected URLs kept per finding.
const MaxURLs = 3

var severities = map[string]model.Severity{
	"High":          model.SeverityHigh,
	"Medium":        model.SeverityMedium,
	"Low":           model.SeverityLow,
	"Informational": model.SeverityInformational,
}

type alert struct {
	PluginID  string     `json:"pluginid"`
	Name      string     `json:"name"`
	Alert     string     `json:"alert"`
	RiskDesc  *string    `json:"riskdesc"`
	Desc      string     `json:"desc"`
	Solution  string     `json:"solution"`
	Reference string     `json:"reference"`
	CWE       string     `json:"cweid"`
	Instances []instance `json:"instances"`
}

type instance struct {
	URI string `json:"uri"`
}

// Load parses the ZAP report stored at path.
func Load(ctx context.Context, path string) model.Report {
	return artifact.Load(ctx, model.SourceDAST, path, Parse)
}

// Parse converts a ZAP JSON report. Only the first site is read. It never
// fails: unreadable input yields a report with ParseOK=false.
func Parse(ctx context.Context, raw []byte) model.Report {
	ctx = log.ContextAttrs(ctx, slog.String("scanner", "zap"))

	var doc map[string]json.RawMessage
	if _, err := jsonscan.Unmarshal(raw, &doc); err != nil {
		return artifact.Degraded(ctx, model.SourceDAST, fmt.Errorf("decoding zap report: %w", err))
	}
	rawSites, ok := doc["site"]
	if !ok {
		return artifact.Degraded(ctx, model.SourceDAST, fmt.Errorf("zap report has no site: %w", model.ErrUnknownSchema))
	}
	var sites []json.RawMessage
	if err := json.Unmarshal(rawSites, &sites); err != nil {
		return artifact.Degraded(ctx, model.SourceDAST, fmt.Errorf("site is not a list: %w", model.ErrUnknownSchema))
	}

	report := model.Report{
		Source:   model.SourceDAST,
		Findings: []model.Finding{},
		ParseOK:  true,
	}
	if len(sites) == 0 {
		report.Notes = append(report.Notes, model.Note{
			Code:    model.NoteNoSite,
			Message: "report contains no scanned site",
		})
		return report
	}
	if len(sites) > 1 {
		slog.DebugContext(ctx, "only the first site is read", slog.Int("sites", len(sites)))
	}

	var site struct {
		Name   string            `json:"@name"`
		Alerts []json.RawMessage `json:"alerts"`
	}
	if err := json.Unmarshal(sites[0], &site); err != nil {
		return artifact.Degraded(ctx, model.SourceDAST, fmt.Errorf("site[0] can't be decoded (%v): %w", err, model.ErrUnknownSchema))
	}

	truncated := 0
	for idx, item := range site.Alerts {
		var a alert
		if err := json.Unmarshal(item, &a); err != nil {
			// counted under Informational so the alert total stays intact
			report.Counts = report.Counts.Add(model.SeverityInformational, 1)
			report.Notes = append(report.Notes, model.Note{
				Code:    model.NoteMalformedFindings,
				Message: fmt.Sprintf("alerts[%d] skipped: %v", idx, err),
			})
			continue
		}
		severity, known := Severity(a.RiskDesc)
		if !known {
			report.Notes = append(report.Notes, model.Note{
				Code:    model.NoteUnknownSeverity,
				Message: fmt.Sprintf("alerts[%d]: unknown risk %q", idx, *a.RiskDesc),
			})
		}
		report.Counts = report.Counts.Add(severity, 1)
		finding := toFinding(a, severity)
		if finding.Location.OmittedURLs > 0 {
			truncated++
		}
		report.Findings = append(report.Findings, finding)
	}
	report.Total = len(site.Alerts)

	if truncated > 0 {
		report.Notes = append(report.Notes, model.Note{
			Code:    model.NoteURLsTruncated,
			Message: fmt.Sprintf("%d alerts have more than %d affected URLs, the rest are counted but not listed", truncated, MaxURLs),
		})
	}

	slog.DebugContext(ctx, "report parsed",
		slog.String("site", site.Name),
		slog.Int("high", report.Counts.High),
		slog.Int("medium", report.Counts.Medium),
		slog.Int("low", report.Counts.Low),
		slog.Int("informational", report.Counts.Informational),
		slog.Int("alerts", report.Total),
	)
	return report
}

// Severity maps a riskdesc such as "High (Medium)" to a bucket using its
// first token. A missing riskdesc is Informational. The second result is
// false for tokens outside the ZAP vocabulary, which also land in
// Informational.
func Severity(riskdesc *string) (model.Severity, bool) {
	if riskdesc == nil {
		return model.SeverityInformational, true
	}
	fields := strings.Fields(*riskdesc)
	if len(fields) == 0 {
		return model.SeverityInformational, false
	}
	s, ok := severities[fields[0]]
	if !ok {
		return model.SeverityInformational, false
	}
	return s, true
}

func toFinding(a alert, severity model.Severity) model.Finding {
	title := a.Name
	if title == "" {
		title = a.Alert
	}
	if title == "" {
		title = "Unknown"
	}
	description := StripHTML(a.Desc)
	if description == "" {
		description = "No description"
	}

	var remediation *model.Remediation
	if solution := StripHTML(a.Solution); solution != "" {
		remediation = &model.Remediation{Text: solution}
	}

	urls := make([]string, 0, min(len(a.Instances), MaxURLs))
	for _, in := range a.Instances {
		if len(urls) == MaxURLs {
			break
		}
		urls = append(urls, in.URI)
	}

	cwe, _ := strconv.Atoi(a.CWE)
	if cwe < 0 {
		cwe = 0
	}

	return model.Finding{
		Source:   model.SourceDAST,
		Severity: severity,
		ID:       a.PluginID,
		Title:    title,
		Location: model.Location{
			URLs:        urls,
			OmittedURLs: len(a.Instances) - len(urls),
		},
		Description: description,
		Remediation: remediation,
		CWE:         cwe,
		Reference:   firstLine(StripHTML(a.Reference)),
	}
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return strings.TrimSpace(line)
}
