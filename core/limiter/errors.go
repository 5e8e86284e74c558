package limiter

import "errors"

// Constructor errors. The engine itself never returns errors from Check;
// infrastructure failures are absorbed into fail-closed denials.
var (
	ErrNilTable = errors.New("nil quota table")
	ErrNilStore = errors.New("nil primary store")
)
