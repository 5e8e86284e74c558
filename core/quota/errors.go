package quota

import "errors"

// Quota table errors. Registration errors (ErrNoDefinitions,
// ErrInvalidDefinition) surface at startup; ErrUnknownAction at resolve time
// indicates an action that was never registered.
var (
	ErrNoDefinitions     = errors.New("quota table requires at least one definition")
	ErrInvalidDefinition = errors.New("invalid quota definition")
	ErrUnknownAction     = errors.New("unknown action")
)
