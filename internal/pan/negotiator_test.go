package pan

import (
	"io"
	"testing"

	dbus "github.com/godbus/dbus/v5"
	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.Out = io.Discard
	return log
}

func errFailed() error {
	return dbus.Error{Name: "org.bluez.Error.Failed", Body: []interface{}{"Operation failed"}}
}

// fakeLink scripts one device's responses. connectErrs is consumed one
// entry per ConnectNetwork call; past its end, calls succeed.
type fakeLink struct {
	profileErr  error
	connectErrs []error
	newIface    string

	connected     bool
	existingIface string

	profileCalls    int
	connectCalls    int
	disconnectCalls int
}

func (f *fakeLink) ConnectProfile(uuid string) error {
	f.profileCalls++
	return f.profileErr
}

func (f *fakeLink) ConnectNetwork(uuid string) (string, error) {
	f.connectCalls++
	if len(f.connectErrs) > 0 {
		err := f.connectErrs[0]
		f.connectErrs = f.connectErrs[1:]
		if err != nil {
			return "", err
		}
	}
	return f.newIface, nil
}

func (f *fakeLink) DisconnectNetwork() error {
	f.disconnectCalls++
	f.connected = false
	return nil
}

func (f *fakeLink) NetworkConnected() (bool, error) {
	return f.connected, nil
}

func (f *fakeLink) NetworkInterface() (string, error) {
	return f.existingIface, nil
}

func TestConnectFirstAttempt(t *testing.T) {
	link := &fakeLink{newIface: "bnep0"}
	n := NewNegotiator(link, testLogger())
	iface, err := n.Connect("nap", ConnectOptions{})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if iface != "bnep0" {
		t.Errorf("iface = %q, want bnep0", iface)
	}
	if n.State() != StateConnected {
		t.Errorf("state = %v, want connected", n.State())
	}
	if link.connectCalls != 1 || link.disconnectCalls != 0 {
		t.Errorf("calls: connect=%d disconnect=%d", link.connectCalls, link.disconnectCalls)
	}
}

func TestConnectIgnoresProfileError(t *testing.T) {
	link := &fakeLink{profileErr: errFailed(), newIface: "bnep0"}
	n := NewNegotiator(link, testLogger())
	if _, err := n.Connect("nap", ConnectOptions{}); err != nil {
		t.Fatalf("profile connect error must not be fatal: %v", err)
	}
	if link.profileCalls != 1 {
		t.Errorf("profileCalls = %d", link.profileCalls)
	}
}

func TestConnectOtherErrorFatal(t *testing.T) {
	notReady := dbus.Error{Name: "org.bluez.Error.NotReady", Body: nil}
	link := &fakeLink{connectErrs: []error{notReady}, connected: true, existingIface: "bnep0"}
	n := NewNegotiator(link, testLogger())
	_, err := n.Connect("nap", ConnectOptions{Reconnect: true, IfNotConnected: true})
	if err == nil {
		t.Fatal("expected error")
	}
	if link.connectCalls != 1 || link.disconnectCalls != 0 {
		t.Errorf("non-generic errors must never be retried: connect=%d disconnect=%d",
			link.connectCalls, link.disconnectCalls)
	}
	if n.State() != StateDisconnected {
		t.Errorf("state = %v, want disconnected", n.State())
	}
}

func TestConnectFailedNotConnected(t *testing.T) {
	link := &fakeLink{connectErrs: []error{errFailed()}, connected: false}
	n := NewNegotiator(link, testLogger())
	_, err := n.Connect("nap", ConnectOptions{Reconnect: true})
	if err == nil {
		t.Fatal("expected the original failure to propagate")
	}
	if link.connectCalls != 1 || link.disconnectCalls != 0 {
		t.Errorf("calls: connect=%d disconnect=%d", link.connectCalls, link.disconnectCalls)
	}
}

func TestConnectReconnect(t *testing.T) {
	link := &fakeLink{
		connectErrs:   []error{errFailed()},
		connected:     true,
		existingIface: "bnep0",
		newIface:      "bnep1",
	}
	n := NewNegotiator(link, testLogger())
	iface, err := n.Connect("nap", ConnectOptions{Reconnect: true})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if iface != "bnep1" {
		t.Errorf("iface = %q, want the newly returned bnep1", iface)
	}
	if link.disconnectCalls != 1 {
		t.Errorf("disconnectCalls = %d, want exactly 1", link.disconnectCalls)
	}
	if link.connectCalls != 2 {
		t.Errorf("connectCalls = %d, want 2", link.connectCalls)
	}
	if n.State() != StateConnected {
		t.Errorf("state = %v, want connected", n.State())
	}
}

func TestConnectIfNotConnected(t *testing.T) {
	link := &fakeLink{
		connectErrs:   []error{errFailed()},
		connected:     true,
		existingIface: "bnep0",
		newIface:      "bnep1",
	}
	n := NewNegotiator(link, testLogger())
	iface, err := n.Connect("nap", ConnectOptions{IfNotConnected: true})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if iface != "bnep0" {
		t.Errorf("iface = %q, want the pre-existing bnep0", iface)
	}
	if link.disconnectCalls != 0 {
		t.Errorf("disconnectCalls = %d, want 0", link.disconnectCalls)
	}
	if link.connectCalls != 1 {
		t.Errorf("connectCalls = %d, want 1", link.connectCalls)
	}
}

func TestConnectAmbiguousStateFatal(t *testing.T) {
	link := &fakeLink{
		connectErrs:   []error{errFailed()},
		connected:     true,
		existingIface: "bnep0",
	}
	n := NewNegotiator(link, testLogger())
	_, err := n.Connect("nap", ConnectOptions{})
	if err == nil {
		t.Fatal("pre-existing connection without a flag must propagate the failure")
	}
	if link.disconnectCalls != 0 {
		t.Errorf("disconnectCalls = %d, want 0", link.disconnectCalls)
	}
}

func TestConnectAttemptsBounded(t *testing.T) {
	// The fake keeps reporting Connected=true after DisconnectNetwork is
	// overridden back to true, forcing the reconnect path on every attempt.
	link := &stubbornLink{existingIface: "bnep0"}
	n := NewNegotiator(link, testLogger())
	if _, err := n.Connect("nap", ConnectOptions{Reconnect: true}); err == nil {
		t.Fatal("expected failure after exhausting attempts")
	}
	if link.connectCalls != 2 {
		t.Errorf("connectCalls = %d, want at most 2", link.connectCalls)
	}
}

// stubbornLink always fails ConnectNetwork with the generic code and always
// reports an established connection.
type stubbornLink struct {
	existingIface   string
	connectCalls    int
	disconnectCalls int
}

func (s *stubbornLink) ConnectProfile(string) error { return nil }

func (s *stubbornLink) ConnectNetwork(string) (string, error) {
	s.connectCalls++
	return "", errFailed()
}

func (s *stubbornLink) DisconnectNetwork() error {
	s.disconnectCalls++
	return nil
}

func (s *stubbornLink) NetworkConnected() (bool, error) { return true, nil }

func (s *stubbornLink) NetworkInterface() (string, error) { return s.existingIface, nil }

func TestDisconnect(t *testing.T) {
	link := &fakeLink{newIface: "bnep0"}
	n := NewNegotiator(link, testLogger())
	if _, err := n.Connect("nap", ConnectOptions{}); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := n.Disconnect(); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if link.disconnectCalls != 1 {
		t.Errorf("disconnectCalls = %d, want 1", link.disconnectCalls)
	}
	if n.State() != StateDisconnected {
		t.Errorf("state = %v, want disconnected", n.State())
	}
}
