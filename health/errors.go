package health

import "errors"

// ErrCheckFailed indicates a health check failed.
var ErrCheckFailed = errors.New("health: check failed")
