package model

import (
	"errors"
)

var (
	ErrTooBig        = errors.New("file too big")
	ErrNoJSON        = errors.New("no JSON object found")
	ErrUnbalanced    = errors.New("unbalanced JSON braces")
	ErrUnknownSchema = errors.New("unrecognized report schema")
	ErrGateFailed    = errors.New("security gate failed")
)
