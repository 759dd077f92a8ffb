package main

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"

	"github.com/CZERTAINLY/Gatekeeper/internal/bom"
	"github.com/CZERTAINLY/Gatekeeper/internal/engine"
	"github.com/CZERTAINLY/Gatekeeper/internal/log"
	cdx "github.com/CycloneDX/cyclonedx-go"

	"github.com/spf13/cobra"
)

func newExportCmd() *cobra.Command {
	var (
		flags  artifactFlags
		output string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "export the findings as a CycloneDX BOM",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := log.ContextAttrs(cmd.Context(), slog.Group("gatekeeper",
				slog.String("cmd", "export"),
			))

			a := engine.Run(ctx, flags.artifacts(config))
			doc := bom.FromAssessment(a).BOM()

			validator, err := bom.NewValidator(cdx.SpecVersion1_6)
			if err != nil {
				return fmt.Errorf("loading BOM schema: %w", err)
			}
			// an invalid document is never written
			if err := validator.Validate(ctx, &doc); err != nil {
				return err
			}

			var buf bytes.Buffer
			if err := bom.Encode(&buf, &doc); err != nil {
				return fmt.Errorf("formatting BOM as JSON: %w", err)
			}

			if output == "" || output == "-" {
				_, err := cmd.OutOrStdout().Write(buf.Bytes())
				return err
			}
			return writeFile(output, buf.Bytes())
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, stdout when empty or -")
	return cmd
}

func writeFile(path string, b []byte) error {
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("writing BOM: %w", err)
	}
	slog.Debug("BOM written", "path", path, "size", len(b))
	return nil
}
