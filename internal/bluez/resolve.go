package bluez

import (
	"sort"
	"strings"

	dbus "github.com/godbus/dbus/v5"
	"github.com/pkg/errors"
)

// FindAdapters resolves local adapters from a fresh directory snapshot.
// With an empty pattern every adapter is returned; otherwise only adapters
// whose address equals the pattern or whose object path ends with it.
// Zero matches yield ErrNotFound.
func (c *Client) FindAdapters(pattern string) ([]*Adapter, error) {
	objs, err := c.managedObjects()
	if err != nil {
		return nil, err
	}
	paths := adapterPathsIn(objs, pattern)
	if len(paths) == 0 {
		return nil, errors.Wrap(ErrNotFound, "bluetooth adapter")
	}
	adapters := make([]*Adapter, 0, len(paths))
	for _, p := range paths {
		adapters = append(adapters, &Adapter{c: c, path: p})
	}
	return adapters, nil
}

// FindDevice resolves the remote device with the given address. A non-nil
// adapter restricts the search to devices under that adapter's object path.
// No match yields ErrNotFound.
func (c *Client) FindDevice(address string, adapter *Adapter) (*Device, error) {
	objs, err := c.managedObjects()
	if err != nil {
		return nil, err
	}
	var prefix dbus.ObjectPath
	if adapter != nil {
		prefix = adapter.path
	}
	path, ok := devicePathIn(objs, address, prefix)
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "bluetooth device %s", address)
	}
	return &Device{c: c, path: path}, nil
}

// adapterPathsIn filters one snapshot for Adapter1 objects matching the
// pattern. Paths are sorted so repeated calls see the same default adapter.
func adapterPathsIn(objs objectTree, pattern string) []dbus.ObjectPath {
	var out []dbus.ObjectPath
	for path, ifaces := range objs {
		props, ok := ifaces[adapterIface]
		if !ok {
			continue
		}
		if pattern != "" {
			addr, _ := props["Address"].Value().(string)
			if addr != pattern && !strings.HasSuffix(string(path), pattern) {
				continue
			}
		}
		out = append(out, path)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// devicePathIn returns the first Device1 object with the given address
// under prefix. An empty prefix matches devices on any adapter.
func devicePathIn(objs objectTree, address string, prefix dbus.ObjectPath) (dbus.ObjectPath, bool) {
	var paths []dbus.ObjectPath
	for path := range objs {
		paths = append(paths, path)
	}
	sort.Slice(paths, func(i, j int) bool { return paths[i] < paths[j] })
	for _, path := range paths {
		props, ok := objs[path][deviceIface]
		if !ok {
			continue
		}
		addr, _ := props["Address"].Value().(string)
		if addr != address {
			continue
		}
		if prefix != "" && !strings.HasPrefix(string(path), string(prefix)) {
			continue
		}
		return path, true
	}
	return "", false
}
