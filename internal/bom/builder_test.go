package bom_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/CZERTAINLY/Gatekeeper/internal/bom"
	"github.com/CZERTAINLY/Gatekeeper/internal/engine"
	"github.com/CZERTAINLY/Gatekeeper/internal/model"
	cdx "github.com/CycloneDX/cyclonedx-go"
	"github.com/stretchr/testify/require"
)

func TestBuilder(t *testing.T) {
	t.Parallel()

	b := bom.NewBuilder().
		WithClock(func() time.Time { return time.Date(2026, 1, 14, 9, 0, 0, 0, time.FixedZone("CET", 3600)) }).
		AppendComponents(cdx.Component{
			BOMRef:     "pkg:pypi/flask@0.12",
			Type:       cdx.ComponentTypeLibrary,
			Name:       "flask",
			Version:    "0.12",
			PackageURL: "pkg:pypi/flask@0.12",
		}).
		AppendVulnerabilities(cdx.Vulnerability{
			BOMRef:  "sca/CVE-2018-1000656/0",
			ID:      "CVE-2018-1000656",
			Affects: &[]cdx.Affects{{Ref: "pkg:pypi/flask@0.12"}},
		}).
		AppendProperties(cdx.Property{
			Name:  "property1",
			Value: "value1",
		})

	doc := b.BOM()
	require.Equal(t, cdx.SpecVersion1_6, doc.SpecVersion)
	require.True(t, strings.HasPrefix(doc.SerialNumber, "urn:uuid:"))
	require.Equal(t, "2026-01-14T08:00:00Z", doc.Metadata.Timestamp)
	require.Equal(t, "Gatekeeper", doc.Metadata.Component.Name)
	require.Len(t, *doc.Components, 1)
	require.Len(t, *doc.Vulnerabilities, 1)
	require.Len(t, *doc.Properties, 1)

	err := b.AsJSON(t.Output())
	require.NoError(t, err)
}

func TestBuilder_EmptyListsAreNotNull(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, bom.NewBuilder().AsJSON(&buf))
	require.Contains(t, buf.String(), `"components": []`)
	require.Contains(t, buf.String(), `"vulnerabilities": []`)
}

func assessment() engine.Assessment {
	sast := model.Report{
		Source:  model.SourceSAST,
		Counts:  model.SeverityCounts{High: 1},
		Total:   1,
		ParseOK: true,
		Findings: []model.Finding{{
			Source:      model.SourceSAST,
			Severity:    model.SeverityHigh,
			ID:          "B201",
			Title:       "flask_debug_true",
			Location:    model.Location{File: "app.py", Line: 30},
			Description: "A Flask app appears to be run with debug=True.",
			Remediation: &model.Remediation{Text: "Never run Flask with debug=True in production.", Example: "app.run(debug=False)"},
			CWE:         94,
		}},
	}
	flask := model.Finding{
		Source:      model.SourceSCA,
		Severity:    model.SeverityHigh,
		ID:          "CVE-2018-1000656",
		Title:       "flask 0.12",
		Location:    model.Location{Package: "Flask", Version: "0.12"},
		Description: "Denial of Service via crafted JSON data.",
		Remediation: &model.Remediation{Text: "Upgrade Flask to 0.12.3 or later."},
		Reference:   "https://data.safetycli.com/v/38654/f17",
	}
	second := flask
	second.ID = "CVE-2019-1010083"
	sca := model.Report{
		Source:   model.SourceSCA,
		Counts:   model.SeverityCounts{High: 2},
		Total:    2,
		ParseOK:  true,
		Findings: []model.Finding{flask, second},
	}
	dast := model.Report{
		Source:  model.SourceDAST,
		Counts:  model.SeverityCounts{Medium: 1},
		Total:   1,
		ParseOK: true,
		Findings: []model.Finding{{
			Source:   model.SourceDAST,
			Severity: model.SeverityMedium,
			ID:       "10038",
			Title:    "Content Security Policy (CSP) Header Not Set",
			Location: model.Location{URLs: []string{"http://app/", "http://app/a", "http://app/b"}, OmittedURLs: 2},
		}},
		Notes: []model.Note{{Code: model.NoteURLsTruncated, Message: "1 alerts have more than 3 affected URLs"}},
	}
	return engine.Assess(sast, sca, dast)
}

func property(t *testing.T, props *[]cdx.Property, name string) []string {
	t.Helper()
	require.NotNil(t, props)
	var ret []string
	for _, p := range *props {
		if p.Name == "czertainly:gatekeeper:"+name {
			ret = append(ret, p.Value)
		}
	}
	return ret
}

func TestFromAssessment(t *testing.T) {
	t.Parallel()

	doc := bom.FromAssessment(assessment()).BOM()

	// one component for the two flask vulnerabilities
	require.Len(t, *doc.Components, 1)
	comp := (*doc.Components)[0]
	require.Equal(t, cdx.ComponentTypeLibrary, comp.Type)
	require.Equal(t, "pkg:pypi/flask@0.12", comp.BOMRef)
	require.Equal(t, "Flask", comp.Name)

	vulns := *doc.Vulnerabilities
	require.Len(t, vulns, 4)

	sast := vulns[0]
	require.Equal(t, "B201", sast.ID)
	require.Equal(t, "Bandit", sast.Source.Name)
	require.Equal(t, cdx.SeverityHigh, (*sast.Ratings)[0].Severity)
	require.Equal(t, []int{94}, *sast.CWEs)
	require.Equal(t, "Never run Flask with debug=True in production.", sast.Recommendation)
	require.Nil(t, sast.Affects)
	require.Equal(t, []string{"app.py:30"}, property(t, sast.Properties, "location"))
	require.Equal(t, []string{"app.run(debug=False)"}, property(t, sast.Properties, "remediation_example"))

	sca := vulns[1]
	require.Equal(t, "Safety", sca.Source.Name)
	require.Equal(t, "https://data.safetycli.com/v/38654/f17", sca.Source.URL)
	require.Equal(t, []cdx.Affects{{Ref: "pkg:pypi/flask@0.12"}}, *sca.Affects)
	require.Empty(t, property(t, sca.Properties, "location"))
	require.Equal(t, "CVE-2019-1010083", vulns[2].ID)
	require.NotEqual(t, vulns[1].BOMRef, vulns[2].BOMRef)

	dast := vulns[3]
	require.Equal(t, "OWASP ZAP", dast.Source.Name)
	require.Equal(t, cdx.SeverityMedium, (*dast.Ratings)[0].Severity)
	require.Equal(t, []string{"2"}, property(t, dast.Properties, "omitted_urls"))

	require.Equal(t, []string{"CRITICAL"}, property(t, doc.Properties, "status"))
	require.Equal(t, []string{"1"}, property(t, doc.Properties, "total_critical"))
	require.Equal(t, []string{"false"}, property(t, doc.Properties, "gate:passed"))
	require.Len(t, property(t, doc.Properties, "gate:violation"), 2)
	require.Equal(t, []string{"true"}, property(t, doc.Properties, "report:dast:parse_ok"))
	require.Len(t, property(t, doc.Properties, "report:dast:note"), 1)
}

func TestFromAssessment_Degraded(t *testing.T) {
	t.Parallel()

	a := engine.Assess(
		model.Degraded(model.SourceSAST, "no JSON object found"),
		model.Degraded(model.SourceSCA, "no JSON object found"),
		model.Degraded(model.SourceDAST, "no JSON object found"),
	)
	doc := bom.FromAssessment(a).BOM()
	require.Empty(t, *doc.Components)
	require.Empty(t, *doc.Vulnerabilities)
	require.Equal(t, []string{"SECURE"}, property(t, doc.Properties, "status"))
	require.Equal(t, []string{"false"}, property(t, doc.Properties, "report:sca:parse_ok"))
	require.Equal(t, []string{"no JSON object found"}, property(t, doc.Properties, "report:sca:diagnostic"))
}

func TestFromAssessment_RoundTrip(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, bom.FromAssessment(assessment()).AsJSON(&buf))

	var decoded cdx.BOM
	require.NoError(t, cdx.NewBOMDecoder(&buf, cdx.BOMFileFormatJSON).Decode(&decoded))
	require.Len(t, *decoded.Vulnerabilities, 4)
	require.Equal(t, "B201", (*decoded.Vulnerabilities)[0].ID)
}

func TestPackageURL(t *testing.T) {
	t.Parallel()

	require.Equal(t, "pkg:pypi/flask@0.12", bom.PackageURL("Flask", "0.12"))
	require.Equal(t, "pkg:pypi/typing-extensions@4.0.1", bom.PackageURL("typing_extensions", "4.0.1"))
	require.Equal(t, "pkg:pypi/unknown", bom.PackageURL("Unknown", "N/A"))
}
