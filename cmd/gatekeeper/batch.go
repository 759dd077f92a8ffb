package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/CZERTAINLY/Gatekeeper/internal/engine"
	"github.com/CZERTAINLY/Gatekeeper/internal/log"
	"github.com/CZERTAINLY/Gatekeeper/internal/model"
	"github.com/CZERTAINLY/Gatekeeper/internal/parallel"
	"github.com/CZERTAINLY/Gatekeeper/internal/walk"

	"github.com/spf13/cobra"
)

type batchResult struct {
	dir string
	a   engine.Assessment
}

func newBatchCmd() *cobra.Command {
	var (
		workers   int
		recursive bool
	)
	cmd := &cobra.Command{
		Use:   "batch <dir>...",
		Short: "evaluate the artifact sets stored in directories",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, dirs []string) error {
			ctx := log.ContextAttrs(cmd.Context(), slog.Group("gatekeeper",
				slog.String("cmd", "batch"),
			))
			if workers <= 0 {
				workers = config.BatchWorkers()
			}

			sets := parallel.All(dirs)
			if recursive {
				roots, err := openRoots(dirs)
				if err != nil {
					return err
				}
				defer closeRoots(roots)
				sets = walk.Roots(ctx, roots...)
			}

			failed, total := 0, 0
			pmap := parallel.NewMap(ctx, workers, evaluateDir)
			for r, err := range pmap.Iter(sets) {
				if err != nil {
					return err
				}
				total++
				verdict := "PASSED"
				if !r.a.Verdict.Passed {
					verdict = "FAILED"
					failed++
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %s status: %s, violations: %d\n",
					verdict, r.dir, r.a.Summary.Status, len(r.a.Verdict.Violations))
				if err != nil {
					return err
				}
			}
			if err := ctx.Err(); err != nil {
				return err
			}

			if failed > 0 {
				slog.InfoContext(ctx, "artifact sets failed the gate", "failed", failed, "total", total)
				return model.ErrGateFailed
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&workers, "workers", 0, "parallel evaluations (default from config, 4)")
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "evaluate every directory below the arguments holding a bandit or safety report")
	return cmd
}

func evaluateDir(ctx context.Context, dir string) (batchResult, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return batchResult{}, fmt.Errorf("artifact set %s: %w", dir, err)
	}
	if !info.IsDir() {
		return batchResult{}, fmt.Errorf("artifact set %s: not a directory", dir)
	}
	ctx = log.ContextAttrs(ctx, slog.String("dir", dir))
	return batchResult{dir: dir, a: engine.Run(ctx, engine.ArtifactsIn(dir))}, nil
}

func openRoots(dirs []string) ([]*os.Root, error) {
	roots := make([]*os.Root, 0, len(dirs))
	for _, dir := range dirs {
		root, err := os.OpenRoot(dir)
		if err != nil {
			closeRoots(roots)
			return nil, fmt.Errorf("opening %s: %w", dir, err)
		}
		roots = append(roots, root)
	}
	return roots, nil
}

func closeRoots(roots []*os.Root) {
	for _, r := range roots {
		_ = r.Close()
	}
}
