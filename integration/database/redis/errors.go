package redis

import "errors"

// Connection errors, checkable with errors.Is. A store that fails here never
// starts serving, so these surface at boot rather than per request.
var (
	ErrEmptyConnectionURL           = errors.New("redis connection URL is empty")
	ErrFailedToParseRedisConnString = errors.New("cannot parse redis connection URL")
	ErrRedisNotReady                = errors.New("redis did not become ready before the connect timeout")
	ErrHealthcheckFailed            = errors.New("redis healthcheck failed")
)
