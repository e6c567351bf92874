package machine

import "errors"

// ErrControllerLost indicates the controller stopped delivering events,
// usually because it was unplugged.
var ErrControllerLost = errors.New("controller lost")
