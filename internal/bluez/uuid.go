package bluez

import (
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Short service names accepted by the daemon's network API, keyed by the
// full PAN service UUID they correspond to.
var panServiceAliases = map[string]string{
	"00001115-0000-1000-8000-00805f9b34fb": "panu",
	"00001116-0000-1000-8000-00805f9b34fb": "nap",
	"00001117-0000-1000-8000-00805f9b34fb": "gn",
}

// NormalizeUUID validates a caller-supplied service identifier before any
// bus traffic. It accepts the short aliases gn, panu and nap, or a full
// UUID; the three well-known PAN service UUIDs are mapped down to their
// alias, other UUIDs pass through lowercased.
func NormalizeUUID(s string) (string, error) {
	switch ls := strings.ToLower(s); ls {
	case "gn", "panu", "nap":
		return ls, nil
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return "", errors.Wrapf(err, "bluez: invalid service uuid %q", s)
	}
	full := u.String()
	if alias, ok := panServiceAliases[full]; ok {
		return alias, nil
	}
	return full, nil
}
