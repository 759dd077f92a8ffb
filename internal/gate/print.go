package gate

import (
	"fmt"
	"io"

	"github.com/CZERTAINLY/Gatekeeper/internal/model"
	"github.com/CZERTAINLY/Gatekeeper/internal/risk"
)

const (
	BannerPassed = "✅ SECURITY GATE: PASSED. No critical issues found."
	BannerFailed = "🚨 SECURITY GATE: FAILED. Build blocked."
)

// Print writes the console summary of a gate run: one block per scanner,
// each followed by its policy violation, then the final banner.
func Print(w io.Writer, sast, sca model.Report, verdict model.Verdict) error {
	p := &printer{w: w}

	p.section("BANDIT SAST", sast)
	p.line("  > High Severity:   %d", sast.Counts.High)
	p.line("  > Medium Severity: %d", sast.Counts.Medium)
	p.violation(verdict, PolicyHighSeverityCode)

	p.section("SAFETY SCA", sca)
	p.line("  > Vulnerabilities: %d", risk.SCACount(sca))
	p.violation(verdict, PolicyVulnerableDependencies)

	p.line("")
	if verdict.Passed {
		p.line(BannerPassed)
	} else {
		p.line(BannerFailed)
	}
	return p.err
}

type printer struct {
	w   io.Writer
	err error
}

func (p *printer) line(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format+"\n", args...)
}

func (p *printer) section(name string, r model.Report) {
	p.line("")
	if !r.ParseOK {
		p.line("[%s] Report not parsed: %s", name, r.Diagnostic)
		p.line("  > Counted as zero findings.")
	} else {
		p.line("[%s] Scan Complete", name)
	}
	for _, n := range r.Notes {
		p.line("  ! %s: %s", n.Code, n.Message)
	}
}

func (p *printer) violation(v model.Verdict, policy string) {
	for _, c := range v.Checks {
		if c.Policy == policy && !c.Passed {
			p.line("❌ FAILURE: %s", c.Violation)
		}
	}
}
