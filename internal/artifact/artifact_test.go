package artifact_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/CZERTAINLY/Gatekeeper/internal/artifact"
	"github.com/CZERTAINLY/Gatekeeper/internal/model"
	"github.com/stretchr/testify/require"
)

func TestRead(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	ok := filepath.Join(dir, "report.json")
	require.NoError(t, os.WriteFile(ok, []byte(`{"results": []}`), 0o644))

	big := filepath.Join(dir, "big.json")
	f, err := os.Create(big)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(artifact.MaxSize+1))
	require.NoError(t, f.Close())

	var testCases = []struct {
		scenario string
		given    string
		then     []byte
		err      error
	}{
		{
			scenario: "regular file",
			given:    ok,
			then:     []byte(`{"results": []}`),
		},
		{
			scenario: "empty path",
			given:    "",
			err:      os.ErrNotExist,
		},
		{
			scenario: "missing file",
			given:    filepath.Join(dir, "missing.json"),
			err:      os.ErrNotExist,
		},
		{
			scenario: "too big",
			given:    big,
			err:      model.ErrTooBig,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.scenario, func(t *testing.T) {
			t.Parallel()
			b, err := artifact.Read(t.Context(), tc.given)
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
				require.Nil(t, b)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.then, b)
		})
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, os.WriteFile(path, []byte("raw"), 0o644))

	var got []byte
	parse := func(_ context.Context, b []byte) model.Report {
		got = b
		return model.Report{Source: model.SourceDAST, ParseOK: true}
	}

	r := artifact.Load(t.Context(), model.SourceDAST, path, parse)
	require.True(t, r.ParseOK)
	require.Equal(t, []byte("raw"), got)

	got = nil
	r = artifact.Load(t.Context(), model.SourceDAST, filepath.Join(t.TempDir(), "missing.json"), parse)
	require.Nil(t, got)
	require.False(t, r.ParseOK)
	require.Equal(t, model.SourceDAST, r.Source)
	require.Contains(t, r.Diagnostic, "opening report")
}
