package controller

import "errors"

// ErrNoDeviceFound indicates no strategy produced a controller. The
// application cannot run without one.
var ErrNoDeviceFound = errors.New("no controller found")

// errSkip tells the Selector to try the next strategy.
var errSkip = errors.New("strategy produced no device")
