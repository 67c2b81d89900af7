package fault

import "errors"

// ErrScriptFault wraps any error or panic raised by script code invoked
// under a Guard. It is never propagated past the guard boundary; callers
// observe it only via the returned error from Guard.RunInit or
// Guard.RunUpdate, which they use to
// decide whether to publish this tick's result.
var ErrScriptFault = errors.New("fault: script raised an error")
