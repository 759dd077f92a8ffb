// Package engine runs one evaluation: parse the artifact set, summarize
// risk and apply the gate.
package engine

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/CZERTAINLY/Gatekeeper/internal/bandit"
	"github.com/CZERTAINLY/Gatekeeper/internal/gate"
	"github.com/CZERTAINLY/Gatekeeper/internal/model"
	"github.com/CZERTAINLY/Gatekeeper/internal/risk"
	"github.com/CZERTAINLY/Gatekeeper/internal/safety"
	"github.com/CZERTAINLY/Gatekeeper/internal/zap"
)

// Artifacts are the report paths of one pipeline run. An empty path is
// treated as a missing report.
type Artifacts struct {
	Bandit string
	Safety string
	ZAP    string
}

// ArtifactsIn returns the artifact set stored in dir under the default
// report names.
func ArtifactsIn(dir string) Artifacts {
	return Artifacts{
		Bandit: filepath.Join(dir, model.DefaultBanditReport),
		Safety: filepath.Join(dir, model.DefaultSafetyReport),
		ZAP:    filepath.Join(dir, model.DefaultZAPReport),
	}
}

type Assessment struct {
	SAST    model.Report
	SCA     model.Report
	DAST    model.Report
	Summary model.RiskSummary
	Verdict model.Verdict
}

// Degraded lists the sources whose report could not be parsed.
func (a Assessment) Degraded() []model.Source {
	var ret []model.Source
	for _, r := range []model.Report{a.SAST, a.SCA, a.DAST} {
		if !r.ParseOK {
			ret = append(ret, r.Source)
		}
	}
	return ret
}

// Run parses the artifacts one after another and evaluates them. It holds
// no state, concurrent calls for different artifact sets are safe.
func Run(ctx context.Context, a Artifacts) Assessment {
	return Assess(
		bandit.Load(ctx, a.Bandit),
		safety.Load(ctx, a.Safety),
		zap.Load(ctx, a.ZAP),
	)
}

// Assess evaluates already parsed reports.
func Assess(sast, sca, dast model.Report) Assessment {
	return Assessment{
		SAST:    sast,
		SCA:     sca,
		DAST:    dast,
		Summary: risk.Summarize(sast, sca, dast),
		Verdict: gate.Evaluate(sast, sca),
	}
}

// LogValue implements slog.LogValuer.
func (a Assessment) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("status", string(a.Summary.Status)),
		slog.Int("total_findings", a.Summary.TotalFindings),
		slog.Bool("passed", a.Verdict.Passed),
		slog.Int("sast_high", a.SAST.Counts.High),
		slog.Int("sca", risk.SCACount(a.SCA)),
	)
}
