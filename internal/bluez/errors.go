package bluez

import (
	"errors"

	dbus "github.com/godbus/dbus/v5"
)

// errFailedName is the generic BlueZ failure code. It is overloaded: for
// Network1.Connect it is also what the daemon returns when a connection
// already exists, which callers detect via the Connected property.
const errFailedName = "org.bluez.Error.Failed"

// ErrNotFound reports that no adapter or device matched a resolution query.
var ErrNotFound = errors.New("bluez: not found")

// IsErrFailed reports whether err carries the generic org.bluez.Error.Failed
// code. Any other D-Bus error name is a distinct failure class and must not
// enter the already-connected retry policy.
func IsErrFailed(err error) bool {
	var derr dbus.Error
	if errors.As(err, &derr) {
		return derr.Name == errFailedName
	}
	return false
}
