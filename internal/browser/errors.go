package browser

import "errors"

var (
	// ErrRemoteFailure wraps any failed ResourceClient call. Prior state is intact.
	ErrRemoteFailure = errors.New("remote operation failed")

	// ErrValidation means the request was refused before any remote call.
	ErrValidation = errors.New("validation failed")

	// ErrMutationInProgress rejects a mutation while another one is pending.
	ErrMutationInProgress = errors.New("another change is still in progress")

	// ErrNotMounted is returned by operations on an unmounted controller.
	ErrNotMounted = errors.New("browser is not mounted")
)
