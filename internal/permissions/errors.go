package permissions

import "errors"

// ErrUnknownLevel is returned when the config names a permission level that does not exist.
var ErrUnknownLevel = errors.New("unknown permission level")
