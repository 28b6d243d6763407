package offline

import (
	"errors"
	"fmt"
)

var (
	// ErrNetwork covers both unreachable origins and non-ok responses.
	ErrNetwork = errors.New("offline: network request failed")
	// ErrInstallFailed is returned when the critical resource batch could not be cached.
	ErrInstallFailed = errors.New("offline: install failed")
	// ErrInvalidPushPayload is returned when a push payload is not valid JSON.
	ErrInvalidPushPayload = errors.New("offline: invalid push payload")
	// ErrRedundant is returned when a controller whose install failed is asked to activate.
	ErrRedundant = errors.New("offline: controller is redundant")
	// ErrMissingStorage indicates the controller was built without cache storage.
	ErrMissingStorage = errors.New("offline: storage is required")
	// ErrMissingNetwork indicates the controller was built without a fetcher.
	ErrMissingNetwork = errors.New("offline: network fetcher is required")
	// ErrInvalidOptions indicates the controller options are inconsistent.
	ErrInvalidOptions = errors.New("offline: invalid options")
)

// StatusError reports a response outside the 2xx range. It matches ErrNetwork
// under errors.Is.
type StatusError struct {
	Status int
	URL    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("offline: %s responded with status %d", e.URL, e.Status)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrNetwork
}
