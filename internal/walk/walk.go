// Package walk discovers artifact sets in a directory tree.
package walk

import (
	"context"
	"io/fs"
	"iter"
	"os"
	"path"
	"path/filepath"

	"github.com/CZERTAINLY/Gatekeeper/internal/model"
)

// Roots is a convenience wrapper around ArtifactSets for os.Root.
func Roots(ctx context.Context, roots ...*os.Root) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, root := range roots {
			for dir, err := range ArtifactSets(ctx, root.FS(), root.Name()) {
				if !yield(dir, err) {
					return
				}
			}
		}
	}
}

// ArtifactSets recursively walks root and returns every directory holding a
// Bandit or Safety report under its default name. Each directory is returned
// once, prefixed with name. Errors reading a directory are passed through and
// the walk goes on. It does not follow symlinks.
func ArtifactSets(ctx context.Context, root fs.FS, name string) iter.Seq2[string, error] {
	if root == nil {
		panic("root is nil")
	}

	return func(yield func(string, error) bool) {
		seen := make(map[string]struct{})
		fn := func(p string, d fs.DirEntry, err error) error {
			if ctx.Err() != nil {
				return fs.SkipAll
			}
			if err != nil {
				if !yield(filepath.Join(name, p), err) {
					return fs.SkipAll
				}
				return nil
			}
			if !d.Type().IsRegular() || !isReport(d.Name()) {
				return nil
			}

			dir := path.Dir(p)
			if _, ok := seen[dir]; ok {
				return nil
			}
			seen[dir] = struct{}{}
			if !yield(filepath.Join(name, filepath.FromSlash(dir)), nil) {
				return fs.SkipAll
			}
			return nil
		}
		_ = fs.WalkDir(root, ".", fn)
	}
}

func isReport(name string) bool {
	return name == model.DefaultBanditReport || name == model.DefaultSafetyReport
}
