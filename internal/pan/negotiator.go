package pan

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/piotrlech/pi-btnap/internal/bluez"
)

// maxConnectAttempts bounds the network-connect retry loop. Retries are
// serialized; there is never more than one attempt in flight.
const maxConnectAttempts = 2

// Negotiator drives the client-side connect sequence on one device:
// profile connect, then network connect with the bounded retry policy.
type Negotiator struct {
	link  NetworkLink
	log   *logrus.Logger
	state State
	iface string
}

// NewNegotiator returns a Negotiator for the resolved device link.
func NewNegotiator(link NetworkLink, log *logrus.Logger) *Negotiator {
	return &Negotiator{link: link, log: log, state: StateDisconnected}
}

// State returns the current connection state.
func (n *Negotiator) State() State { return n.state }

// Interface returns the network interface name recorded by a successful
// Connect.
func (n *Negotiator) Interface() string { return n.iface }

// Connect runs the connect state machine for uuid and returns the network
// interface name on success.
//
// A ConnectProfile error is logged and ignored: the daemon sometimes
// reports failure there even though the profile link came up. A network
// connect failure enters the retry policy only when it carries the generic
// failure code and the device reports an established connection; any other
// error is fatal as-is.
func (n *Negotiator) Connect(uuid string, opts ConnectOptions) (string, error) {
	n.state = StateProfileNegotiating
	if err := n.link.ConnectProfile(uuid); err != nil {
		n.log.Debugf("ignoring profile connect error for uuid %q: %v", uuid, err)
	}

	n.state = StateNetworkNegotiating
	var lastErr error
	for attempt := 0; attempt < maxConnectAttempts; attempt++ {
		iface, err := n.link.ConnectNetwork(uuid)
		if err == nil {
			n.state = StateConnected
			n.iface = iface
			return iface, nil
		}
		if !bluez.IsErrFailed(err) {
			n.state = StateDisconnected
			return "", err
		}
		connected, perr := n.link.NetworkConnected()
		if perr != nil {
			n.state = StateDisconnected
			return "", perr
		}
		if !connected {
			n.state = StateDisconnected
			return "", err
		}
		if opts.Reconnect {
			iface, _ := n.link.NetworkInterface()
			n.log.Debugf("detected pre-established connection (iface: %s), reconnecting", iface)
			if derr := n.link.DisconnectNetwork(); derr != nil {
				n.state = StateDisconnected
				return "", errors.Wrap(derr, "disconnect pre-established connection")
			}
			lastErr = err
			continue
		}
		if opts.IfNotConnected {
			iface, ierr := n.link.NetworkInterface()
			if ierr != nil {
				n.state = StateDisconnected
				return "", ierr
			}
			n.state = StateConnected
			n.iface = iface
			return iface, nil
		}
		n.state = StateDisconnected
		return "", err
	}
	n.state = StateDisconnected
	return "", errors.Wrap(lastErr, "network connect attempts exhausted")
}

// Disconnect tears down the connection established by Connect. Used by
// wait-mode teardown; without wait-mode the connection is deliberately
// left attached.
func (n *Negotiator) Disconnect() error {
	n.state = StateDisconnecting
	err := n.link.DisconnectNetwork()
	n.state = StateDisconnected
	n.iface = ""
	if err != nil {
		return errors.Wrap(err, "disconnect network")
	}
	n.log.Debug("disconnected from network")
	return nil
}
