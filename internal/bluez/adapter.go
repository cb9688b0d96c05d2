package bluez

import (
	dbus "github.com/godbus/dbus/v5"
)

// Adapter is a local Bluetooth controller object. The daemon owns its
// lifecycle; this type only reads and mutates properties and drives the
// NetworkServer1 interface on it.
type Adapter struct {
	c    *Client
	path dbus.ObjectPath
}

// Path returns the adapter's object path.
func (a *Adapter) Path() string { return string(a.path) }

// Address returns the adapter's hardware address.
func (a *Adapter) Address() (string, error) {
	v, err := a.c.getProp(a.path, adapterIface, "Address")
	if err != nil {
		return "", err
	}
	return stringProp(v, "Address")
}

// Powered reports whether the controller is powered on.
func (a *Adapter) Powered() (bool, error) {
	v, err := a.c.getProp(a.path, adapterIface, "Powered")
	if err != nil {
		return false, err
	}
	return boolProp(v, "Powered")
}

// SetPowered powers the controller on or off.
func (a *Adapter) SetPowered(on bool) error {
	return a.c.setProp(a.path, adapterIface, "Powered", on)
}

// RegisterServer registers a PAN server for uuid on this adapter; each
// incoming link is added to the named bridge interface by the daemon.
func (a *Adapter) RegisterServer(uuid, bridge string) error {
	return a.c.call(a.path, netServerIface+".Register", nil, uuid, bridge)
}

// UnregisterServer removes the PAN server registration for uuid. The daemon
// persists registrations across restarts of this process, so this is also
// used to clear a stale registration left by an unclean exit.
func (a *Adapter) UnregisterServer(uuid string) error {
	return a.c.call(a.path, netServerIface+".Unregister", nil, uuid)
}
