// Package artifact reads scanner report files and builds degraded reports
// when they can't be read or understood.
package artifact

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/CZERTAINLY/Gatekeeper/internal/log"
	"github.com/CZERTAINLY/Gatekeeper/internal/model"
)

// MaxSize is the largest report accepted. ZAP reports of big sites are
// the largest artifacts seen in practice.
const MaxSize = 64 * 1024 * 1024

// Read returns the content of the report at path. Files bigger than MaxSize
// are rejected with ErrTooBig.
func Read(ctx context.Context, path string) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("no report path given: %w", os.ErrNotExist)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening report: %w", err)
	}
	defer func() {
		_ = f.Close() // ignoring close error for read only file
	}()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat report: %w", err)
	}
	if info.Size() > MaxSize {
		slog.DebugContext(ctx, "report skipped, too big file", "size", info.Size())
		return nil, fmt.Errorf("report too big (%d bytes): %w", info.Size(), model.ErrTooBig)
	}

	b, err := io.ReadAll(io.LimitReader(f, MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}
	if len(b) > MaxSize {
		return nil, fmt.Errorf("report too big: %w", model.ErrTooBig)
	}
	return b, nil
}

// Degraded logs the reason and returns an empty report with ParseOK=false.
// Every path on which a parser gives up goes through here.
func Degraded(ctx context.Context, source model.Source, err error) model.Report {
	slog.DebugContext(ctx, "report degraded",
		slog.String("source", string(source)),
		slog.String("diagnostic", err.Error()),
	)
	return model.Degraded(source, err.Error())
}

// Load reads path and hands the content to parse. A read failure degrades
// to an empty report.
func Load(ctx context.Context, source model.Source, path string, parse func(context.Context, []byte) model.Report) model.Report {
	ctx = log.ContextAttrs(ctx, slog.String("path", path))
	b, err := Read(ctx, path)
	if err != nil {
		return Degraded(ctx, source, err)
	}
	return parse(ctx, b)
}
