// Package pan implements the PAN connection orchestration: server-side
// registration of a network service against a bridge, and the client-side
// connect state machine with its retry policy.
//
// Thread-safety: none of the types here are safe for concurrent use; the
// orchestrator is strictly sequential.
package pan

// NetworkServer is the adapter-side surface the registrar needs.
// *bluez.Adapter satisfies it.
type NetworkServer interface {
	// Address returns the adapter's hardware address, used for logging only.
	Address() (string, error)

	// RegisterServer registers uuid against the named bridge interface.
	RegisterServer(uuid, bridge string) error

	// UnregisterServer removes the registration for uuid. It is expected to
	// fail when no registration exists; the registrar treats that as normal.
	UnregisterServer(uuid string) error
}

// NetworkLink is the device-side surface the negotiator needs.
// *bluez.Device satisfies it.
type NetworkLink interface {
	// ConnectProfile brings up the profile for uuid. Known quirk: the daemon
	// sometimes reports failure here even though the profile connection was
	// established; the negotiator never treats this error as fatal.
	ConnectProfile(uuid string) error

	// ConnectNetwork connects the PAN network for uuid, returning the
	// resulting interface name.
	ConnectNetwork(uuid string) (string, error)

	// DisconnectNetwork tears down an established network connection.
	DisconnectNetwork() error

	// NetworkConnected reports whether a network connection already exists.
	NetworkConnected() (bool, error)

	// NetworkInterface returns the interface name of an existing connection.
	NetworkInterface() (string, error)
}

// State is the negotiator's connection state.
type State int

const (
	StateDisconnected State = iota
	StateProfileNegotiating
	StateNetworkNegotiating
	StateConnected
	StateDisconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateProfileNegotiating:
		return "profile-negotiating"
	case StateNetworkNegotiating:
		return "network-negotiating"
	case StateConnected:
		return "connected"
	case StateDisconnecting:
		return "disconnecting"
	}
	return "unknown"
}

// ConnectOptions controls the negotiator's handling of a pre-existing
// network connection when the daemon reports the generic connect failure.
type ConnectOptions struct {
	// Reconnect disconnects an existing connection and retries once.
	Reconnect bool

	// IfNotConnected adopts an existing connection as success instead of
	// failing. Ignored when Reconnect is set.
	IfNotConnected bool
}
