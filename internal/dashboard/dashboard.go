// Package dashboard renders the self-contained HTML security dashboard.
package dashboard

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/CZERTAINLY/Gatekeeper/internal/engine"
	"github.com/CZERTAINLY/Gatekeeper/internal/model"
	"github.com/CZERTAINLY/Gatekeeper/internal/risk"
)

//go:embed dashboard.html.tmpl
var pageTemplate string

var page = template.Must(template.New("dashboard").Funcs(template.FuncMap{
	"statusClass": func(s model.Status) string {
		return strings.ReplaceAll(strings.ToLower(string(s)), "_", "-")
	},
}).Parse(pageTemplate))

const (
	// DescriptionLimit caps ZAP descriptions and solutions on a card.
	DescriptionLimit = 150
	// AdvisoryLimit caps Safety advisories on a card.
	AdvisoryLimit = 200
)

// Counts shown when a complex application is simulated.
var (
	SimulatedSAST = model.SeverityCounts{High: 12, Medium: 28, Low: 45}
	SimulatedSCA  = 37
	SimulatedDAST = model.SeverityCounts{High: 8, Medium: 22, Low: 31, Informational: 15}
)

type Options struct {
	// Cards is the number of finding cards per source, DefaultCards when not positive.
	Cards int
	// Simulate replaces the parsed counts with the simulated ones before
	// the risk summary is computed. Findings are left untouched.
	Simulate bool
	// Now is the clock used for the timestamp, time.Now when nil.
	Now func() time.Time
}

// Page is the data the dashboard template renders.
type Page struct {
	Generated string
	Simulated bool
	Summary   model.RiskSummary
	SAST      model.Report
	SCA       model.Report
	DAST      model.Report
	SCACount  int
	Cards     []Card
}

type Card struct {
	Source   model.Source
	Badge    string
	Class    string
	Title    string
	Fields   []Field
	Text     string
	Solution string
	Example  string
}

type Field struct {
	Label string
	Value string
}

// Build prepares the dashboard of an assessment.
func Build(a engine.Assessment, opts Options) Page {
	cards := opts.Cards
	if cards <= 0 {
		cards = model.DefaultCards
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	sast, sca, dast := a.SAST, a.SCA, a.DAST
	summary := a.Summary
	if opts.Simulate {
		sast.Counts = SimulatedSAST
		sca.Counts = model.SeverityCounts{High: SimulatedSCA}
		dast.Counts = SimulatedDAST
		summary = risk.Summarize(sast, sca, dast)
	}

	p := Page{
		Generated: now().Format(time.DateTime),
		Simulated: opts.Simulate,
		Summary:   summary,
		SAST:      sast,
		SCA:       sca,
		DAST:      dast,
		SCACount:  risk.SCACount(sca),
	}
	for _, f := range head(sast.Findings, cards) {
		p.Cards = append(p.Cards, sastCard(f))
	}
	for _, f := range head(sca.Findings, cards) {
		p.Cards = append(p.Cards, scaCard(f))
	}
	for _, f := range head(dast.Findings, cards) {
		p.Cards = append(p.Cards, dastCard(f))
	}
	return p
}

// Render writes the HTML page to w.
func Render(w io.Writer, p Page) error {
	if err := page.Execute(w, p); err != nil {
		return fmt.Errorf("rendering dashboard: %w", err)
	}
	return nil
}

// Write renders the page into the file at path. A dashboard which can't be
// written is an error for the caller, never a silent skip.
func Write(path string, p Page) error {
	var buf bytes.Buffer
	if err := Render(&buf, p); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing dashboard: %w", err)
	}
	return nil
}

// PrintSummary writes the closing console block of a dashboard run.
func PrintSummary(w io.Writer, path string, p Page) error {
	rule := strings.Repeat("=", 70)
	_, err := fmt.Fprintf(w, "%s\n✅ Security Dashboard generated: %s\n📊 Status: %s\n🔢 Total Findings: %d\n   - Critical: %d\n   - High: %d\n   - Medium: %d\n%s\n",
		rule,
		path,
		p.Summary.Status.Label(),
		p.Summary.TotalFindings,
		p.Summary.TotalCritical,
		p.Summary.TotalHigh,
		p.Summary.TotalMedium,
		rule,
	)
	return err
}

func sastCard(f model.Finding) Card {
	c := Card{
		Source: f.Source,
		Badge:  strings.ToUpper(string(f.Severity)),
		Class:  strings.ToLower(string(f.Severity)),
		Title:  f.Title,
		Text:   f.Description,
	}
	if f.ID != "" {
		c.Fields = append(c.Fields, Field{"Test", f.ID})
	}
	file := f.Location.File
	if file == "" {
		file = "N/A"
	}
	line := "?"
	if f.Location.Line > 0 {
		line = strconv.Itoa(f.Location.Line)
	}
	c.Fields = append(c.Fields, Field{"File", fmt.Sprintf("%s (Line %s)", file, line)})
	if f.Remediation != nil {
		c.Solution = f.Remediation.Text
		c.Example = f.Remediation.Example
	}
	return c
}

func scaCard(f model.Finding) Card {
	c := Card{
		Source: f.Source,
		Badge:  "CVE",
		Class:  "high",
		Title:  f.Title,
		Text:   Truncate(f.Description, AdvisoryLimit),
	}
	label := "Advisory"
	if strings.HasPrefix(f.ID, "CVE-") {
		label = "CVE"
	}
	id := f.ID
	if id == "" {
		id = "No CVE"
	}
	c.Fields = append(c.Fields, Field{label, id})
	if f.Remediation != nil {
		c.Solution = f.Remediation.Text
		c.Example = f.Remediation.Example
	}
	return c
}

func dastCard(f model.Finding) Card {
	c := Card{
		Source: f.Source,
		Badge:  string(f.Severity),
		Class:  strings.ToLower(string(f.Severity)),
		Title:  f.Title,
		Text:   Truncate(f.Description, DescriptionLimit),
	}
	if loc := f.Location.String(); loc != "" {
		c.Fields = append(c.Fields, Field{"URL", loc})
	}
	if f.Remediation != nil {
		c.Solution = Truncate(f.Remediation.Text, DescriptionLimit)
	} else {
		c.Solution = "No solution provided"
	}
	return c
}

// Truncate shortens s to at most n runes, marking the cut with "...".
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func head[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}
	return s
}
