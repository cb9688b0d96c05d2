package bluez

import (
	dbus "github.com/godbus/dbus/v5"
)

// Device is a remote peer object known to the daemon (discovered or
// previously paired). Read-only except for the profile and network
// connect actions.
type Device struct {
	c    *Client
	path dbus.ObjectPath
}

// Path returns the device's object path.
func (d *Device) Path() string { return string(d.path) }

// Address returns the device's hardware address.
func (d *Device) Address() (string, error) {
	v, err := d.c.getProp(d.path, deviceIface, "Address")
	if err != nil {
		return "", err
	}
	return stringProp(v, "Address")
}

// ConnectProfile asks the daemon to bring up the profile identified by
// uuid on this device.
func (d *Device) ConnectProfile(uuid string) error {
	return d.c.call(d.path, deviceIface+".ConnectProfile", nil, uuid)
}

// ConnectNetwork connects the PAN network for uuid and returns the name
// of the resulting network interface.
func (d *Device) ConnectNetwork(uuid string) (string, error) {
	var iface string
	if err := d.c.call(d.path, networkIface+".Connect", &iface, uuid); err != nil {
		return "", err
	}
	return iface, nil
}

// DisconnectNetwork tears down the device's network connection.
func (d *Device) DisconnectNetwork() error {
	return d.c.call(d.path, networkIface+".Disconnect", nil)
}

// NetworkConnected reports whether a network connection is currently
// established on this device.
func (d *Device) NetworkConnected() (bool, error) {
	v, err := d.c.getProp(d.path, networkIface, "Connected")
	if err != nil {
		return false, err
	}
	return boolProp(v, "Connected")
}

// NetworkInterface returns the interface name of the established network
// connection.
func (d *Device) NetworkInterface() (string, error) {
	v, err := d.c.getProp(d.path, networkIface, "Interface")
	if err != nil {
		return "", err
	}
	return stringProp(v, "Interface")
}
