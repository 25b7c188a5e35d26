package api

import "errors"

var (
	// ErrAuth indicates rejected credentials. Terminal until credentials are updated.
	ErrAuth = errors.New("authentication rejected")

	// ErrAuthFailed indicates the account is parked after a credential rejection
	ErrAuthFailed = errors.New("account authentication failed")

	// ErrCommunication indicates a transient network or protocol failure
	ErrCommunication = errors.New("communication error")

	// ErrDecode indicates a malformed response
	ErrDecode = errors.New("decode error")

	// ErrNotFound indicates an unresolved vehicle or entity
	ErrNotFound = errors.New("not found")

	// ErrNoSession indicates there is no live session for the owning account
	ErrNoSession = errors.New("no session")

	// ErrTimeout indicates command polling exhausted its retry budget
	ErrTimeout = errors.New("timeout")

	// ErrUnknownCommand indicates an unsupported command code
	ErrUnknownCommand = errors.New("unknown command")
)
