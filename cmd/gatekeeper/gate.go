package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/CZERTAINLY/Gatekeeper/internal/engine"
	"github.com/CZERTAINLY/Gatekeeper/internal/gate"
	"github.com/CZERTAINLY/Gatekeeper/internal/history"
	"github.com/CZERTAINLY/Gatekeeper/internal/log"
	"github.com/CZERTAINLY/Gatekeeper/internal/model"

	"github.com/spf13/cobra"
)

// artifactFlags are the report paths shared by the gate, dashboard and
// export commands. Empty values fall back to the config file.
type artifactFlags struct {
	bandit string
	safety string
	zap    string
}

func (f *artifactFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.bandit, "bandit", "", "Bandit JSON report (default from config, "+model.DefaultBanditReport+")")
	cmd.Flags().StringVar(&f.safety, "safety", "", "Safety JSON report (default from config, "+model.DefaultSafetyReport+")")
	cmd.Flags().StringVar(&f.zap, "zap", "", "OWASP ZAP JSON report (default from config, "+model.DefaultZAPReport+")")
}

func (f artifactFlags) artifacts(cfg model.Config) engine.Artifacts {
	return engine.Artifacts{
		Bandit: or(f.bandit, cfg.BanditReport()),
		Safety: or(f.safety, cfg.SafetyReport()),
		ZAP:    or(f.zap, cfg.ZAPReport()),
	}
}

func or(s, dflt string) string {
	if s == "" {
		return dflt
	}
	return s
}

func newGateCmd() *cobra.Command {
	var flags artifactFlags
	cmd := &cobra.Command{
		Use:   "gate",
		Short: "evaluate the security policies, exits with 1 when the build must be blocked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := log.ContextAttrs(cmd.Context(), slog.Group("gatekeeper",
				slog.String("cmd", "gate"),
			))
			return doGate(ctx, cmd, flags.artifacts(config))
		},
	}
	flags.register(cmd)
	cmd.Flags().Lookup("bandit").Usage = "Bandit JSON report"
	cmd.Flags().Lookup("safety").Usage = "Safety JSON report"
	_ = cmd.MarkFlagRequired("bandit")
	_ = cmd.MarkFlagRequired("safety")
	return cmd
}

func doGate(ctx context.Context, cmd *cobra.Command, artifacts engine.Artifacts) error {
	a := engine.Run(ctx, artifacts)
	slog.DebugContext(ctx, "gate evaluated", "assessment", a)

	if err := gate.Print(cmd.OutOrStdout(), a.SAST, a.SCA, a.Verdict); err != nil {
		return fmt.Errorf("printing gate result: %w", err)
	}

	if config.HistoryEnabled() {
		if err := record(ctx, config.HistoryPath(), history.NewRun(a, time.Now())); err != nil {
			return err
		}
	}

	if !a.Verdict.Passed {
		return model.ErrGateFailed
	}
	return nil
}

func record(ctx context.Context, path string, run history.Run) error {
	db, err := history.InitDB(ctx, path)
	if err != nil {
		return fmt.Errorf("opening history %s: %w", path, err)
	}
	defer func() {
		_ = db.Close()
	}()
	if err := history.Record(ctx, db, run); err != nil {
		return fmt.Errorf("recording gate run: %w", err)
	}
	slog.DebugContext(ctx, "gate run recorded", "uuid", run.UUID, "path", path)
	return nil
}
