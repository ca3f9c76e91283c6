//go:build !linux

package mlockall

import "errors"

// Lock is a no-op on platforms without Mlockall; the host VCS still runs
// the filter in a short-lived process so the exposure window is small.
func Lock() error {
	return errors.New("mlockall: not supported on this platform")
}
