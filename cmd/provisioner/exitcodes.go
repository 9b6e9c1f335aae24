package main

import "github.com/go-faster/errors"

const (
	exitOK        = 0
	exitGeneral   = 1
	exitUsage     = 2
	exitDirectory = 3
	exitWorkbook  = 4
)

type codedError struct {
	code int
	err  error
}

func (e *codedError) Error() string { return e.err.Error() }
func (e *codedError) Unwrap() error { return e.err }

func withCode(code int, err error) error {
	return &codedError{code: code, err: err}
}

func exitCode(err error) int {
	var coded *codedError
	if errors.As(err, &coded) {
		return coded.code
	}
	return exitGeneral
}
