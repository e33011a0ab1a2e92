// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

var (
	// ErrNotFound indicates the requested pad or attachment does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized indicates a missing pad or a secret that does not match
	// its digest. Callers must not distinguish the two cases.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrAlreadyExists indicates a pad identifier collision on create.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidFile indicates an upload whose leading bytes match no allowed format.
	ErrInvalidFile = errors.New("invalid file format")

	// ErrTooLarge indicates an upload above the configured size ceiling.
	ErrTooLarge = errors.New("file too large")

	// ErrExpired indicates an attachment past its expiry timestamp. Kept
	// distinct from ErrNotFound so clients can show a dedicated message.
	ErrExpired = errors.New("attachment expired")

	// ErrUpstreamUnavailable indicates a failed or timed-out call to the
	// summarization endpoint or object storage.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)
