package model

import (
	"errors"
	"fmt"
)

// Identity errors.
var (
	ErrNotFound           = errors.New("not found")
	ErrNameMismatch       = errors.New("name does not match our records")
	ErrAlreadyRegistered  = errors.New("already registered")
	ErrNotActivated       = errors.New("account not yet activated")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ErrUnauthenticated covers missing, malformed, expired and wrong-kind bearer tokens.
var ErrUnauthenticated = errors.New("unauthenticated")

// Session and token errors.
var (
	ErrSessionNotFound       = fmt.Errorf("session %w", ErrNotFound)
	ErrInvalidOrExpiredToken = errors.New("invalid or expired session token")
)

// Attendance errors.
var (
	ErrWrongDay      = errors.New("attendance can only be marked for today's session")
	ErrOutsideWindow = errors.New("attendance window closed")
	ErrAlreadyMarked = errors.New("attendance already marked for this session")
)
