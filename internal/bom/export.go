package bom

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/CZERTAINLY/Gatekeeper/internal/engine"
	"github.com/CZERTAINLY/Gatekeeper/internal/model"
	cdx "github.com/CycloneDX/cyclonedx-go"
)

const propPrefix = "czertainly:gatekeeper:"

var scanners = map[model.Source]string{
	model.SourceSAST: "Bandit",
	model.SourceSCA:  "Safety",
	model.SourceDAST: "OWASP ZAP",
}

var ratings = map[model.Severity]cdx.Severity{
	model.SeverityCritical:      cdx.SeverityCritical,
	model.SeverityHigh:          cdx.SeverityHigh,
	model.SeverityMedium:        cdx.SeverityMedium,
	model.SeverityLow:           cdx.SeverityLow,
	model.SeverityInformational: cdx.SeverityInfo,
}

// FromAssessment returns a builder holding every finding of an assessment
// as a vulnerability. Vulnerable dependencies also become library
// components which their vulnerabilities affect. The risk summary, the
// verdict and the parse status of each report are BOM properties.
func FromAssessment(a engine.Assessment) *Builder {
	b := NewBuilder()

	seen := make(map[string]struct{})
	for _, r := range []model.Report{a.SAST, a.SCA, a.DAST} {
		for idx, f := range r.Findings {
			vuln := vulnerability(r.Source, idx, f)
			if f.Source == model.SourceSCA {
				ref := PackageURL(f.Location.Package, f.Location.Version)
				vuln.Affects = &[]cdx.Affects{{Ref: ref}}
				if _, ok := seen[ref]; !ok {
					seen[ref] = struct{}{}
					b.AppendComponents(cdx.Component{
						BOMRef:     ref,
						Type:       cdx.ComponentTypeLibrary,
						Name:       f.Location.Package,
						Version:    f.Location.Version,
						PackageURL: ref,
					})
				}
			}
			b.AppendVulnerabilities(vuln)
		}
	}

	b.AppendProperties(summaryProperties(a)...)
	return b
}

func vulnerability(source model.Source, idx int, f model.Finding) cdx.Vulnerability {
	v := cdx.Vulnerability{
		BOMRef: fmt.Sprintf("%s/%s/%d", strings.ToLower(string(source)), f.ID, idx),
		ID:     f.ID,
		Source: &cdx.Source{
			Name: scanners[source],
			URL:  f.Reference,
		},
		Ratings: &[]cdx.VulnerabilityRating{
			{
				Severity: ratings[f.Severity],
				Method:   cdx.ScoringMethodOther,
			},
		},
		Description: f.Description,
	}
	if f.CWE > 0 {
		v.CWEs = &[]int{f.CWE}
	}
	if f.Remediation != nil {
		v.Recommendation = f.Remediation.Text
	}

	props := []cdx.Property{
		{Name: propPrefix + "source", Value: string(f.Source)},
		{Name: propPrefix + "title", Value: f.Title},
	}
	if loc := f.Location.String(); loc != "" && source != model.SourceSCA {
		props = append(props, cdx.Property{Name: propPrefix + "location", Value: loc})
	}
	if f.Location.OmittedURLs > 0 {
		props = append(props, cdx.Property{Name: propPrefix + "omitted_urls", Value: strconv.Itoa(f.Location.OmittedURLs)})
	}
	if f.Remediation != nil && f.Remediation.Example != "" {
		props = append(props, cdx.Property{Name: propPrefix + "remediation_example", Value: f.Remediation.Example})
	}
	v.Properties = &props
	return v
}

func summaryProperties(a engine.Assessment) []cdx.Property {
	s := a.Summary
	props := []cdx.Property{
		{Name: propPrefix + "status", Value: string(s.Status)},
		{Name: propPrefix + "total_critical", Value: strconv.Itoa(s.TotalCritical)},
		{Name: propPrefix + "total_high", Value: strconv.Itoa(s.TotalHigh)},
		{Name: propPrefix + "total_medium", Value: strconv.Itoa(s.TotalMedium)},
		{Name: propPrefix + "total_findings", Value: strconv.Itoa(s.TotalFindings)},
		{Name: propPrefix + "gate:passed", Value: strconv.FormatBool(a.Verdict.Passed)},
	}
	for _, v := range a.Verdict.Violations {
		props = append(props, cdx.Property{Name: propPrefix + "gate:violation", Value: v})
	}
	for _, r := range []model.Report{a.SAST, a.SCA, a.DAST} {
		prefix := propPrefix + "report:" + strings.ToLower(string(r.Source)) + ":"
		props = append(props, cdx.Property{Name: prefix + "parse_ok", Value: strconv.FormatBool(r.ParseOK)})
		if r.Diagnostic != "" {
			props = append(props, cdx.Property{Name: prefix + "diagnostic", Value: r.Diagnostic})
		}
		for _, n := range r.Notes {
			props = append(props, cdx.Property{Name: prefix + "note", Value: n.Code + ": " + n.Message})
		}
	}
	return props
}

// PackageURL returns the purl of a PyPI package.
func PackageURL(name, version string) string {
	name = strings.ToLower(strings.ReplaceAll(name, "_", "-"))
	purl := "pkg:pypi/" + url.PathEscape(name)
	if version != "" && version != "N/A" {
		purl += "@" + url.PathEscape(version)
	}
	return purl
}
