package capability

import "errors"

var errNoStrategies = errors.New("no load strategies declared")

// notFoundError signals a capability name not present in the registry.
type notFoundError struct{ name string }

func (e notFoundError) Error() string { return "capability not found: " + e.name }

// IsNotFound reports whether err indicates an unknown capability name.
func IsNotFound(err error) bool {
	var t notFoundError
	return errors.As(err, &t)
}

// unavailableError signals a capability that failed to load earlier. It is
// returned to every caller after the first without re-attempting the load.
type unavailableError struct {
	name   string
	reason string
}

func (e unavailableError) Error() string {
	if e.reason == "" {
		return "capability unavailable: " + e.name
	}
	return "capability unavailable: " + e.name + ": " + e.reason
}

// loadFailedError is returned to the caller that triggered the failing load.
type loadFailedError struct {
	name string
	err  error
}

func (e loadFailedError) Error() string { return "capability load failed: " + e.name + ": " + e.err.Error() }
func (e loadFailedError) Unwrap() error { return e.err }

// IsUnavailable reports whether err indicates a capability that is not
// ready, either because its load failed now or on an earlier attempt.
func IsUnavailable(err error) bool {
	var u unavailableError
	var l loadFailedError
	return errors.As(err, &u) || errors.As(err, &l)
}

// strategiesError aggregates the failures of every load strategy.
type strategiesError struct{ detail string }

func (e strategiesError) Error() string { return "all load strategies failed: " + e.detail }

// invocationError wraps a failure raised by a loaded capability at request
// time. It never affects the capability's lifecycle state.
type invocationError struct {
	name string
	err  error
}

func (e invocationError) Error() string { return "invoke " + e.name + ": " + e.err.Error() }
func (e invocationError) Unwrap() error { return e.err }

// IsInvocationFailure reports whether err came from a capability's invoke
// procedure rather than from the registry itself.
func IsInvocationFailure(err error) bool {
	var t invocationError
	return errors.As(err, &t)
}

func kindMismatch(name string, want Kind) error {
	return invocationError{name: name, err: errors.New("capability does not implement kind " + string(want))}
}
