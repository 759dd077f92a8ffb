// Package safety normalizes reports of the Safety dependency scanner.
//
// Safety prints deprecation banners on the same stream as its JSON report,
// so the report is located with jsonscan. Two schemas are understood: the
// current object with a vulnerabilities array and report_meta, and the legacy
// top level list of vulnerabilities.
package safety

import (
	"bytes"
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

// Severity is the bucket of every dependency vulnerability. Safety's own
// severity field is unreliable across versions, known CVEs are escalated
// uniformly.
const Severity = model.SeverityHigh

type vulnerability struct {
	ID             string          `json:"vulnerability_id"`
	Package        string          `json:"package_name"`
	Version        string          `json:"analyzed_version"`
	VulnerableSpec json.RawMessage `json:"vulnerable_spec"`
	Advisory       string          `json:"advisory"`
	CVE            json.RawMessage `json:"CVE"`
	FixedVersions  []string        `json:"fixed_versions"`
	MoreInfoURL    string          `json:"more_info_url"`
}

// Load parses the safety report stored at path.
func Load(ctx context.Context, path string) model.Report {
	return artifact.Load(ctx, model.SourceSCA, path, Parse)
}

// Parse converts safety output, with or without leading text, into a
// report. It never fails: unreadable input yields ParseOK=false.
func Parse(ctx context.Context, raw []byte) model.Report {
	ctx = log.ContextAttrs(ctx, slog.String("scanner", "safety"))

	var doc json.RawMessage
	embedded, err := jsonscan.Unmarshal(raw, &doc)
	if err != nil {
		return artifact.Degraded(ctx, model.SourceSCA, fmt.Errorf("decoding safety report: %w", err))
	}
	if embedded {
		slog.DebugContext(ctx, "report extracted from mixed output")
	}

	var report model.Report
	switch firstByte(doc) {
	case '[':
		report, err = parseLegacy(doc)
	case '{':
		report, err = parseCurrent(doc)
	default:
		err = fmt.Errorf("top level value is neither an object nor a list: %w", model.ErrUnknownSchema)
	}
	if err != nil {
		return artifact.Degraded(ctx, model.SourceSCA, err)
	}

	for _, note := range report.Notes {
		slog.DebugContext(ctx, "report note", slog.String("code", note.Code), slog.String("message", note.Message))
	}
	slog.DebugContext(ctx, "report parsed",
		slog.Int("vulnerabilities", report.Counts.High),
		slog.Int("findings", len(report.Findings)),
	)
	return report
}

func parseCurrent(doc json.RawMessage) (model.Report, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(doc, &top); err != nil {
		return model.Report{}, fmt.Errorf("decoding safety report: %w", err)
	}

	rawVulns, hasVulns := top["vulnerabilities"]
	rawMeta, hasMeta := top["report_meta"]
	if !hasVulns && !hasMeta {
		return model.Report{}, fmt.Errorf("object has neither vulnerabilities nor report_meta: %w", model.ErrUnknownSchema)
	}

	var notes []model.Note
	var found *int
	if hasMeta {
		var err error
		found, err = vulnerabilitiesFound(rawMeta)
		if err != nil {
			if !hasVulns {
				return model.Report{}, fmt.Errorf("report_meta without vulnerabilities list: %w", err)
			}
			notes = append(notes, model.Note{
				Code:    model.NoteMetaDrift,
				Message: fmt.Sprintf("report_meta ignored: %v", err),
			})
		}
	}

	findings := []model.Finding{}
	count := 0
	if hasVulns {
		var items []json.RawMessage
		if err := json.Unmarshal(rawVulns, &items); err != nil {
			return model.Report{}, fmt.Errorf("vulnerabilities is not a list: %w", model.ErrUnknownSchema)
		}
		var itemNotes []model.Note
		findings, itemNotes = toFindings(items)
		notes = append(notes, itemNotes...)
		count = len(items)
	} else {
		notes = append(notes, model.Note{
			Code:    model.NoteMetaOnly,
			Message: "report has no vulnerabilities list, count taken from report_meta",
		})
	}

	if found != nil {
		n := *found
		if hasVulns && n != count {
			notes = append(notes, model.Note{
				Code:    model.NoteMetaCountMismatch,
				Message: fmt.Sprintf("vulnerabilities list has %d entries, report_meta.vulnerabilities_found is %d", count, n),
			})
		}
		// the higher of the two values counts, a report must never read as
		// cleaner than either of its sources
		count = max(count, n)
	}

	return model.Report{
		Source:   model.SourceSCA,
		Counts:   model.SeverityCounts{High: count},
		Findings: findings,
		Total:    count,
		ParseOK:  true,
		Notes:    notes,
	}, nil
}

// vulnerabilitiesFound reads report_meta.vulnerabilities_found, a number or
// a numeric string. A missing field is not an error.
func vulnerabilitiesFound(raw json.RawMessage) (*int, error) {
	var meta map[string]any
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("report_meta is not an object: %w", model.ErrUnknownSchema)
	}
	v, ok := meta["vulnerabilities_found"]
	if !ok {
		return nil, nil
	}
	var n int
	switch x := v.(type) {
	case float64:
		n = int(x)
	case string:
		var err error
		n, err = strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return nil, fmt.Errorf("vulnerabilities_found is not a number: %q", x)
		}
	default:
		return nil, fmt.Errorf("vulnerabilities_found has unsupported value %v (%T)", v, v)
	}
	if n < 0 {
		return nil, fmt.Errorf("vulnerabilities_found is negative: %d", n)
	}
	return &n, nil
}

func parseLegacy(doc json.RawMessage) (model.Report, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(doc, &items); err != nil {
		return model.Report{}, fmt.Errorf("decoding legacy safety report: %w", err)
	}
	findings, notes := toFindings(items)
	notes = append([]model.Note{{
		Code:    model.NoteLegacySchema,
		Message: "legacy list schema",
	}}, notes...)
	return model.Report{
		Source:   model.SourceSCA,
		Counts:   model.SeverityCounts{High: len(items)},
		Findings: findings,
		Total:    len(items),
		ParseOK:  true,
		Notes:    notes,
	}, nil
}

// toFindings converts vulnerability entries. Entries which can't be decoded
// are still counted by the caller, they only miss from the findings list.
func toFindings(items []json.RawMessage) ([]model.Finding, []model.Note) {
	var notes []model.Note
	findings := make([]model.Finding, 0, len(items))
	for idx, item := range items {
		var v vulnerability
		var err error
		switch firstByte(item) {
		case '{':
			err = json.Unmarshal(item, &v)
		case '[':
			v, err = positional(item)
		default:
			err = fmt.Errorf("unexpected entry %s", truncate(string(item), 40))
		}
		if err != nil {
			notes = append(notes, model.Note{
				Code:    model.NoteMalformedFindings,
				Message: fmt.Sprintf("vulnerabilities[%d] skipped: %v", idx, err),
			})
			continue
		}
		findings = append(findings, toFinding(v))
	}
	return findings, notes
}

// positional decodes the oldest safety format, a list of
// [package, spec, version, advisory, id, cve?].
func positional(item json.RawMessage) (vulnerability, error) {
	var fields []any
	if err := json.Unmarshal(item, &fields); err != nil {
		return vulnerability{}, err
	}
	if len(fields) < 5 {
		return vulnerability{}, fmt.Errorf("expected at least 5 fields, got %d", len(fields))
	}
	str := func(i int) string {
		if i >= len(fields) {
			return ""
		}
		s, _ := fields[i].(string)
		return s
	}
	spec, _ := json.Marshal(str(1))
	cve, _ := json.Marshal(str(5))
	return vulnerability{
		Package:        str(0),
		VulnerableSpec: spec,
		Version:        str(2),
		Advisory:       str(3),
		ID:             str(4),
		CVE:            cve,
	}, nil
}

func toFinding(v vulnerability) model.Finding {
	pkg := v.Package
	if pkg == "" {
		pkg = "Unknown"
	}
	version := v.Version
	if version == "" {
		version = "N/A"
	}
	id := cveID(v.CVE)
	if id == "" {
		id = v.ID
	}
	description := v.Advisory
	if description == "" {
		description = "No advisory available"
	}
	remediation := remediate(pkg, specs(v.VulnerableSpec), v.FixedVersions)
	return model.Finding{
		Source:   model.SourceSCA,
		Severity: Severity,
		ID:       id,
		Title:    pkg + " " + version,
		Location: model.Location{
			Package: pkg,
			Version: version,
		},
		Description: description,
		Remediation: &remediation,
		Reference:   v.MoreInfoURL,
	}
}

func remediate(pkg string, vulnerable, fixed []string) model.Remediation {
	switch {
	case len(fixed) > 0:
		return model.Remediation{
			Text:    fmt.Sprintf("Upgrade %s to %s or later.", pkg, fixed[0]),
			Example: fmt.Sprintf("pip install '%s>=%s'", pkg, fixed[0]),
		}
	case len(vulnerable) > 0:
		return model.Remediation{
			Text: fmt.Sprintf("Upgrade %s to a version outside %s.", pkg, strings.Join(vulnerable, ", ")),
		}
	default:
		return model.Remediation{
			Text: fmt.Sprintf("Upgrade %s to a version without known vulnerabilities.", pkg),
		}
	}
}

// cveID reads the CVE field, which is a string in most versions and an
// object in some.
func cveID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return ""
	}
	for _, key := range []string{"CVE", "name", "id"} {
		if s, ok := obj[key].(string); ok {
			return s
		}
	}
	return ""
}

// specs reads vulnerable_spec, a string or a list of strings.
func specs(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return nil
		}
		return []string{s}
	}
	var list []string
	_ = json.Unmarshal(raw, &list)
	return list
}

func firstByte(b []byte) byte {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return 0
	}
	return b[0]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
