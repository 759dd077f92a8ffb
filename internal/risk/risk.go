// Package risk folds the three normalized reports into pipeline-wide risk
// tiers.
package risk

import "github.com/CZERTAINLY/Gatekeeper/internal/model"

// Summarize maps severity buckets into tiers. The mapping is fixed:
//
//	critical = SAST High + DAST High
//	high     = SAST Medium + DAST Medium
//	medium   = SAST Low + DAST Low + every SCA vulnerability
//
// SCA findings are bucketed High by the parser but land in the medium tier
// here. Informational DAST alerts are not tiered.
func Summarize(sast, sca, dast model.Report) model.RiskSummary {
	s := model.RiskSummary{
		TotalCritical: sast.Counts.High + dast.Counts.High,
		TotalHigh:     sast.Counts.Medium + dast.Counts.Medium,
		TotalMedium:   sast.Counts.Low + dast.Counts.Low + SCACount(sca),
	}
	s.TotalFindings = s.TotalCritical + s.TotalHigh + s.TotalMedium
	s.Status = Status(s)
	return s
}

// Status derives the risk status, first match wins. A non-zero tier is
// never rounded down to a better status.
func Status(s model.RiskSummary) model.Status {
	switch {
	case s.TotalCritical > 0:
		return model.StatusCritical
	case s.TotalHigh > 0:
		return model.StatusHighRisk
	case s.TotalMedium > 0:
		return model.StatusMediumRisk
	default:
		return model.StatusSecure
	}
}

// SCACount is the number of vulnerable dependencies of an SCA report. The
// parser puts every vulnerability into one bucket, reading all buckets keeps
// the count intact should that change.
func SCACount(sca model.Report) int {
	return sca.Counts.Total()
}
