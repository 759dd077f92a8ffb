package zap_test

import (
	"embed"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/CZERTAINLY/Gatekeeper/internal/model"
	"github.com/CZERTAINLY/Gatekeeper/internal/zap"
	"github.com/stretchr/testify/require"
)

//go:embed testdata/*
var testdata embed.FS

func TestParse(t *testing.T) {
	t.Parallel()

	raw, err := testdata.ReadFile("testdata/zap_report.json")
	require.NoError(t, err)

	report := zap.Parse(t.Context(), raw)
	require.True(t, report.ParseOK)
	require.Equal(t, model.SourceDAST, report.Source)
	require.Equal(t, model.SeverityCounts{High: 1, Medium: 1, Low: 1, Informational: 1}, report.Counts)
	require.Equal(t, 4, report.Total)
	require.Len(t, report.Findings, 4)
	require.True(t, report.HasNote(model.NoteURLsTruncated))

	xss := report.Findings[0]
	require.Equal(t, "40012", xss.ID)
	require.Equal(t, model.SeverityHigh, xss.Severity)
	require.Equal(t, "Cross Site Scripting (Reflected)", xss.Title)
	require.Len(t, xss.Location.URLs, zap.MaxURLs)
	require.Equal(t, 2, xss.Location.OmittedURLs)
	require.True(t, strings.HasSuffix(xss.Location.String(), "(+2 more)"))
	require.Equal(t, "Cross-site Scripting (XSS) is an attack technique that involves echoing attacker-supplied code into a user's browser instance.", xss.Description)
	require.Equal(t, "Phase: Architecture and Design\nUse a vetted library or framework that does not allow this weakness to occur.", xss.Remediation.Text)
	require.Equal(t, "https://owasp.org/www-community/attacks/xss/", xss.Reference)
	require.Equal(t, 79, xss.CWE)

	csp := report.Findings[1]
	require.Equal(t, model.SeverityMedium, csp.Severity)
	require.Equal(t, []string{"http://localhost:5000/"}, csp.Location.URLs)
	require.Zero(t, csp.Location.OmittedURLs)

	header := report.Findings[2]
	require.Equal(t, model.SeverityLow, header.Severity)
	require.Nil(t, header.Remediation)
	require.Zero(t, header.CWE)
	require.Empty(t, header.Location.URLs)
}

func TestParse_Idempotent(t *testing.T) {
	t.Parallel()
	raw, err := testdata.ReadFile("testdata/zap_report.json")
	require.NoError(t, err)
	require.Equal(t, zap.Parse(t.Context(), raw), zap.Parse(t.Context(), raw))
}

func TestParse_URLCapKeepsTotal(t *testing.T) {
	t.Parallel()

	var instances []string
	for i := range 20 {
		instances = append(instances, fmt.Sprintf(`{"uri": "http://app/%d"}`, i))
	}
	raw := fmt.Sprintf(`{"site": [{"alerts": [
		{"name": "a", "riskdesc": "High (Low)", "instances": [%s]},
		{"name": "b", "riskdesc": "High (Low)", "instances": [%s]}
	]}]}`, strings.Join(instances, ","), strings.Join(instances, ","))

	report := zap.Parse(t.Context(), []byte(raw))
	require.True(t, report.ParseOK)
	require.Equal(t, 2, report.Counts.High)
	require.Equal(t, 2, report.Total)
	for _, f := range report.Findings {
		require.Equal(t, []string{"http://app/0", "http://app/1", "http://app/2"}, f.Location.URLs)
		require.Equal(t, 17, f.Location.OmittedURLs)
	}
}

func TestParse_Partial(t *testing.T) {
	t.Parallel()

	var testCases = []struct {
		scenario string
		given    string
		counts   model.SeverityCounts
		findings int
		note     string
	}{
		{
			scenario: "no site",
			given:    `{"site": []}`,
			note:     model.NoteNoSite,
		},
		{
			scenario: "site without alerts",
			given:    `{"site": [{"@name": "http://app"}]}`,
		},
		{
			scenario: "unknown risk token",
			given:    `{"site": [{"alerts": [{"name": "x", "riskdesc": "Severe (High)"}]}]}`,
			counts:   model.SeverityCounts{Informational: 1},
			findings: 1,
			note:     model.NoteUnknownSeverity,
		},
		{
			scenario: "empty risk",
			given:    `{"site": [{"alerts": [{"name": "x", "riskdesc": "  "}]}]}`,
			counts:   model.SeverityCounts{Informational: 1},
			findings: 1,
			note:     model.NoteUnknownSeverity,
		},
		{
			scenario: "missing risk",
			given:    `{"site": [{"alerts": [{"name": "x"}]}]}`,
			counts:   model.SeverityCounts{Informational: 1},
			findings: 1,
		},
		{
			scenario: "malformed alert is still counted",
			given:    `{"site": [{"alerts": [{"name": "x", "riskdesc": "Low (Low)"}, "garbage"]}]}`,
			counts:   model.SeverityCounts{Low: 1, Informational: 1},
			findings: 1,
			note:     model.NoteMalformedFindings,
		},
		{
			scenario: "only the first site is read",
			given:    `{"site": [{"alerts": [{"riskdesc": "Medium (Low)"}]}, {"alerts": [{"riskdesc": "High (Low)"}]}]}`,
			counts:   model.SeverityCounts{Medium: 1},
			findings: 1,
		},
	}

	for _, tt := range testCases {
		t.Run(tt.scenario, func(t *testing.T) {
			t.Parallel()
			report := zap.Parse(t.Context(), []byte(tt.given))
			require.True(t, report.ParseOK)
			require.Equal(t, tt.counts, report.Counts)
			require.Len(t, report.Findings, tt.findings)
			if tt.note != "" {
				require.True(t, report.HasNote(tt.note), "notes: %+v", report.Notes)
			}
		})
	}
}

func TestParse_Degraded(t *testing.T) {
	t.Parallel()

	var testCases = []struct {
		scenario string
		given    string
		then     string
	}{
		{"empty", "", "no JSON object found"},
		{"html error page", "<html><body>502 Bad Gateway</body></html>", "no JSON object found"},
		{"no site key", `{"@version": "2.15.0"}`, "unrecognized report schema"},
		{"site not a list", `{"site": {"alerts": []}}`, "unrecognized report schema"},
		{"alerts not a list", `{"site": [{"alerts": {"name": "x", "riskdesc": "High (High)"}}]}`, "unrecognized report schema"},
		{"site entry not an object", `{"site": ["http://app"]}`, "site[0] can't be decoded"},
	}

	for _, tt := range testCases {
		t.Run(tt.scenario, func(t *testing.T) {
			t.Parallel()
			report := zap.Parse(t.Context(), []byte(tt.given))
			require.False(t, report.ParseOK)
			require.Contains(t, report.Diagnostic, tt.then)
			require.Zero(t, report.Counts.Total())
			require.Empty(t, report.Findings)
		})
	}
}

func TestSeverity(t *testing.T) {
	t.Parallel()

	str := func(s string) *string { return &s }
	var testCases = []struct {
		given *string
		then  model.Severity
		known bool
	}{
		{str("High (Medium)"), model.SeverityHigh, true},
		{str("Medium (Low)"), model.SeverityMedium, true},
		{str("Low"), model.SeverityLow, true},
		{str("Informational (High)"), model.SeverityInformational, true},
		{str("Critical (High)"), model.SeverityInformational, false},
		{str("high (Medium)"), model.SeverityInformational, false},
		{str(""), model.SeverityInformational, false},
		{nil, model.SeverityInformational, true},
	}
	for _, tt := range testCases {
		s, known := zap.Severity(tt.given)
		require.Equal(t, tt.then, s)
		require.Equal(t, tt.known, known)
	}
}

func TestStripHTML(t *testing.T) {
	t.Parallel()

	var testCases = []struct {
		given string
		then  string
	}{
		{"", ""},
		{"plain text", "plain text"},
		{"<p>one</p><p>two</p>", "one\ntwo"},
		{"<p>a &amp; b &lt;tag&gt;</p>", "a & b <tag>"},
		{"line<br/>break", "line\nbreak"},
		{"<p>  spaced\n   out  </p>", "spaced\nout"},
	}
	for _, tt := range testCases {
		require.Equal(t, tt.then, zap.StripHTML(tt.given), tt.given)
	}
}

func TestLoad_Missing(t *testing.T) {
	t.Parallel()

	report := zap.Load(t.Context(), filepath.Join(t.TempDir(), "zap_report.json"))
	require.False(t, report.ParseOK)
	require.Equal(t, model.SourceDAST, report.Source)
	require.Contains(t, report.Diagnostic, "opening report")
}
