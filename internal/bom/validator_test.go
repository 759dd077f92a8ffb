package bom_test

import (
	"bytes"
	"testing"

	"github.com/CZERTAINLY/Gatekeeper/internal/bom"
	"github.com/CZERTAINLY/Gatekeeper/internal/engine"
	"github.com/CZERTAINLY/Gatekeeper/internal/model"
	cdx "github.com/CycloneDX/cyclonedx-go"
	"github.com/stretchr/testify/require"
)

func TestValidator_FromAssessment(t *testing.T) {
	t.Parallel()

	validator, err := bom.NewValidator(cdx.SpecVersion1_6)
	require.NoError(t, err)

	var testCases = []struct {
		scenario string
		given    engine.Assessment
	}{
		{
			scenario: "findings from every source",
			given:    assessment(),
		},
		{
			scenario: "no report parsed",
			given: engine.Assess(
				model.Degraded(model.SourceSAST, "no JSON object found"),
				model.Degraded(model.SourceSCA, "no JSON object found"),
				model.Degraded(model.SourceDAST, "no JSON object found"),
			),
		},
	}

	for _, tt := range testCases {
		t.Run(tt.scenario, func(t *testing.T) {
			t.Parallel()
			doc := bom.FromAssessment(tt.given).BOM()
			require.NoError(t, validator.Validate(t.Context(), &doc))

			var buf bytes.Buffer
			require.NoError(t, bom.Encode(&buf, &doc))
			require.NoError(t, validator.ValidateBytes(t.Context(), buf.Bytes()))
		})
	}
}

func TestValidator_Invalid(t *testing.T) {
	t.Parallel()

	validator, err := bom.NewValidator(cdx.SpecVersion1_6)
	require.NoError(t, err)

	var testCases = []struct {
		scenario string
		given    string
		then     string
	}{
		{
			scenario: "version is not a number",
			given:    `{"bomFormat": "CycloneDX", "specVersion": "1.6", "version": "one"}`,
			then:     "BOM validation failed",
		},
		{
			scenario: "unknown top level field",
			given:    `{"bomFormat": "CycloneDX", "specVersion": "1.6", "findings": []}`,
			then:     "BOM validation failed",
		},
		{
			scenario: "unsupported spec version",
			given:    `{"bomFormat": "CycloneDX", "specVersion": "1.4"}`,
			then:     "unsupported BOM specification version: supported 1.6: got: 1.4",
		},
		{
			scenario: "not JSON",
			given:    `<bom/>`,
			then:     "reading spec version",
		},
	}

	for _, tt := range testCases {
		t.Run(tt.scenario, func(t *testing.T) {
			t.Parallel()
			err := validator.ValidateBytes(t.Context(), []byte(tt.given))
			require.Error(t, err)
			require.ErrorContains(t, err, tt.then)
		})
	}
}

func TestNewValidator_UnknownVersion(t *testing.T) {
	t.Parallel()

	_, err := bom.NewValidator(cdx.SpecVersion1_4)
	require.ErrorContains(t, err, "unknown schema version")
}
