package server

import "errors"

var (
	ErrPortInUse       = errors.New("port already in use")
	ErrCommandNotFound = errors.New("command not found")
	ErrNoCandidates    = errors.New("no server candidate could be started")
	ErrDistMissing     = errors.New("build output missing")
)
