package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrProcessTimeout indicates an external process exceeded its deadline
	// and was killed.
	ErrProcessTimeout = errors.New("process timed out")

	// ErrNoFilesProduced indicates a download command exited cleanly but
	// left nothing in the working directory.
	ErrNoFilesProduced = errors.New("no files produced")

	// ErrChallengeRequired indicates the authenticated platform demands a
	// manual verification step. Never retried automatically.
	ErrChallengeRequired = errors.New("verification challenge required")

	// ErrInvalidCredentials indicates a login was rejected. Terminal.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrContentPrivate indicates the content owner restricts access and
	// the authenticated account has no trust relationship with them.
	ErrContentPrivate = errors.New("content is private")

	// ErrContentNotFound indicates the content does not exist or has expired.
	ErrContentNotFound = errors.New("content not found")

	// ErrNoAudioSource indicates an audio-only request hit content with
	// no video to extract audio from.
	ErrNoAudioSource = errors.New("content has no audio source")
)

// ProcessError is raised when an external command exits non-zero.
type ProcessError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("%s exited with code %d: %s", e.Command, e.ExitCode, e.Stderr)
}

// ExhaustedError is raised when every strategy in a platform's table
// failed. It carries the last strategy's underlying error.
type ExhaustedError struct {
	Platform Platform
	Attempts int
	LastErr  error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all %d download strategies exhausted for %s: %v", e.Attempts, e.Platform, e.LastErr)
}

func (e *ExhaustedError) Unwrap() error { return e.LastErr }

// TranscodeError is raised when audio extraction or video compression
// fails loudly. Normalization failures do not produce this error.
type TranscodeError struct {
	Op  string
	Err error
}

func (e *TranscodeError) Error() string {
	return fmt.Sprintf("transcode %s failed: %v", e.Op, e.Err)
}

func (e *TranscodeError) Unwrap() error { return e.Err }
