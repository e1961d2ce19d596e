package lock

import "errors"

// ErrBusy is returned when the user already has a command in flight.
var ErrBusy = errors.New("command already in progress")
