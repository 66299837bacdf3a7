package database

import "errors"

var (
	ErrNotFound = errors.New("document not found")

	// ErrResumePointLost means the saved resume token is no longer available upstream.
	ErrResumePointLost = errors.New("change stream resume point lost")
)
