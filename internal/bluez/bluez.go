// Package bluez speaks to the BlueZ daemon over the system D-Bus,
// responsible for resolving adapter/device objects and driving the
// NetworkServer1/Network1 interfaces used for PAN.
//
// Thread-safety: except for Close(), methods are not safe for concurrent
// use. Callers must serialize all queries and actions. Close is safe to
// call concurrently and is idempotent.
package bluez

import (
	"sync"

	dbus "github.com/godbus/dbus/v5"
	"github.com/pkg/errors"
)

const (
	bluezService    = "org.bluez"
	adapterIface    = "org.bluez.Adapter1"
	deviceIface     = "org.bluez.Device1"
	networkIface    = "org.bluez.Network1"
	netServerIface  = "org.bluez.NetworkServer1"
	objManagerIface = "org.freedesktop.DBus.ObjectManager"
	propsIface      = "org.freedesktop.DBus.Properties"
)

// objectTree is one GetManagedObjects snapshot: path -> interface -> property.
type objectTree map[dbus.ObjectPath]map[string]map[string]dbus.Variant

// Client is the single shared handle to the BlueZ daemon. The underlying
// bus connection is opened lazily on first use and reused for the process
// lifetime; construct one Client at startup and pass it to every component.
type Client struct {
	mu     sync.Mutex
	bus    *dbus.Conn
	closed bool
}

// NewClient returns an unconnected Client. No bus traffic happens until
// the first query or action.
func NewClient() *Client {
	return &Client{}
}

// conn returns the system bus connection, dialing it on first call.
func (c *Client) conn() (*dbus.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, errors.New("bluez: client closed")
	}
	if c.bus != nil {
		return c.bus, nil
	}
	bus, err := dbus.SystemBus()
	if err != nil {
		return nil, errors.Wrap(err, "bluez: connect system bus")
	}
	c.bus = bus
	return c.bus, nil
}

// Close releases the bus connection. Safe for concurrent and redundant calls.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.bus == nil {
		return nil
	}
	bus := c.bus
	c.bus = nil
	return bus.Close()
}

// managedObjects fetches a fresh object tree snapshot from the daemon.
// Every resolution call re-fetches, so results reflect current state but
// are not atomic across calls.
func (c *Client) managedObjects() (objectTree, error) {
	bus, err := c.conn()
	if err != nil {
		return nil, err
	}
	var objs objectTree
	call := bus.Object(bluezService, dbus.ObjectPath("/")).Call(objManagerIface+".GetManagedObjects", 0)
	if call.Err != nil {
		return nil, errors.Wrap(call.Err, "bluez: GetManagedObjects")
	}
	if err := call.Store(&objs); err != nil {
		return nil, errors.Wrap(err, "bluez: decode GetManagedObjects")
	}
	return objs, nil
}

// getProp reads one property through org.freedesktop.DBus.Properties.
// No caching; every call is a round-trip. Errors propagate unchanged
// beyond the wrap; retry policy belongs to callers.
func (c *Client) getProp(path dbus.ObjectPath, iface, key string) (dbus.Variant, error) {
	bus, err := c.conn()
	if err != nil {
		return dbus.Variant{}, err
	}
	var v dbus.Variant
	call := bus.Object(bluezService, path).Call(propsIface+".Get", 0, iface, key)
	if call.Err != nil {
		return dbus.Variant{}, call.Err
	}
	if err := call.Store(&v); err != nil {
		return dbus.Variant{}, errors.Wrapf(err, "bluez: decode property %s", key)
	}
	return v, nil
}

func (c *Client) setProp(path dbus.ObjectPath, iface, key string, value interface{}) error {
	bus, err := c.conn()
	if err != nil {
		return err
	}
	return bus.Object(bluezService, path).Call(propsIface+".Set", 0, iface, key, dbus.MakeVariant(value)).Err
}

// call invokes a method on one BlueZ object, storing results into out
// when provided.
func (c *Client) call(path dbus.ObjectPath, method string, out interface{}, args ...interface{}) error {
	bus, err := c.conn()
	if err != nil {
		return err
	}
	call := bus.Object(bluezService, path).Call(method, 0, args...)
	if call.Err != nil {
		return call.Err
	}
	if out != nil {
		if err := call.Store(out); err != nil {
			return errors.Wrapf(err, "bluez: decode %s reply", method)
		}
	}
	return nil
}

func boolProp(v dbus.Variant, key string) (bool, error) {
	b, ok := v.Value().(bool)
	if !ok {
		return false, errors.Errorf("bluez: property %s: unexpected type %T", key, v.Value())
	}
	return b, nil
}

func stringProp(v dbus.Variant, key string) (string, error) {
	s, ok := v.Value().(string)
	if !ok {
		return "", errors.Errorf("bluez: property %s: unexpected type %T", key, v.Value())
	}
	return s, nil
}
