package model

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	cueerrors "cuelang.org/go/cue/errors"
)

// CueErrorDetail is one validation problem of a config file in a form
// suitable for the log.
type CueErrorDetail struct {
	Path    string // dashboard.cards
	Code    string // unknown_field | missing_required | conflicting_values | out_of_range | validation_error
	Message string
	Pos     CueErrorPosition
}

func (c CueErrorDetail) Attr(name string) slog.Attr {
	return slog.GroupAttrs(
		name,
		slog.String("code", c.Code),
		slog.String("path", c.Path),
		slog.String("message", c.Message),
		slog.String("file", c.Pos.Filename),
		slog.Int("line", c.Pos.Line),
		slog.Int("column", c.Pos.Column),
	)
}

type CueErrorPosition struct {
	Filename string
	Line     int
	Column   int
}

var (
	reIncomplete = regexp.MustCompile(`(?i)incomplete value`)
	reNotAllowed = regexp.MustCompile(`(?i)not allowed|unknown field`)
	reConflict   = regexp.MustCompile(`(?i)conflicting values|cannot unify|incompatible`)
	reBound      = regexp.MustCompile(`(?i)invalid value .* \(out of bound`)
)

// CueErrDetails turns an error returned by LoadConfig into a list of details.
// Errors which are not CUE errors produce a single generic detail.
func CueErrDetails(err error) []CueErrorDetail {
	if err == nil {
		return nil
	}

	seen := make(map[string]struct{})
	var out []CueErrorDetail
	for _, e := range cueerrors.Errors(err) {
		format, args := e.Msg()
		raw := fmt.Sprintf(format, args...)
		path := normalizePath(e.Path())
		key := path + "|" + raw
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		code, msg := classify(raw, path)
		out = append(out, CueErrorDetail{
			Path:    path,
			Code:    code,
			Message: msg,
			Pos:     position(e),
		})
	}
	if len(out) == 0 {
		out = append(out, CueErrorDetail{Code: "validation_error", Message: err.Error()})
	}
	return out
}

func position(err cueerrors.Error) CueErrorPosition {
	for _, r := range cueerrors.Positions(err) {
		if r.Filename() == "" {
			continue
		}
		return CueErrorPosition{
			Filename: r.Filename(),
			Line:     r.Line(),
			Column:   r.Column(),
		}
	}
	return CueErrorPosition{}
}

func normalizePath(p []string) string {
	if len(p) == 0 {
		return ""
	}
	// Remove leading definition (#Config)
	if strings.HasPrefix(p[0], "#") {
		p = p[1:]
	}
	return strings.Join(p, ".")
}

func classify(raw, path string) (code, msg string) {
	switch {
	case reNotAllowed.MatchString(raw):
		return "unknown_field", fmt.Sprintf("Field %s is not allowed", last(path))
	case reIncomplete.MatchString(raw):
		return "missing_required", fmt.Sprintf("Field %s is required", last(path))
	case reBound.MatchString(raw):
		return "out_of_range", fmt.Sprintf("Field %s is out of range: %s", last(path), raw)
	case reConflict.MatchString(raw):
		return "conflicting_values", fmt.Sprintf("Conflicting values for %s", last(path))
	default:
		return "validation_error", raw
	}
}

func last(p string) string {
	if i := strings.LastIndexByte(p, '.'); i >= 0 {
		return p[i+1:]
	}
	return p
}
