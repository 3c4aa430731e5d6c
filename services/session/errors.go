package session

import "errors"

var (
	// ErrSessionInvalid covers malformed or badly signed credentials and
	// sessions that do not exist.
	ErrSessionInvalid = errors.New("session invalid")
	// ErrSessionExpired means the credential outlived its expiry; the client
	// may log in again or refresh.
	ErrSessionExpired = errors.New("session expired")
	// ErrSessionSuperseded means a newer login or a logout revoked the
	// credential; the client must drop its local session.
	ErrSessionSuperseded = errors.New("session superseded")
)
