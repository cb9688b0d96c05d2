// Package bridge checks the server-side precondition that the kernel
// bridge interface exists, by delegating to the external brctl tool.
package bridge

import (
	"bytes"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// runFunc invokes the bridge-status command for iface and returns its
// stderr output and exit error. Injectable for tests.
type runFunc func(iface string) (stderr []byte, err error)

// NotReadyError reports that the bridge interface failed the brctl check.
type NotReadyError struct {
	Iface  string
	Detail string
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("brctl check failed for interface: %s", e.Iface)
}

// Remediation returns the setup commands to create and configure the
// bridge before starting the server.
func (e *NotReadyError) Remediation() string {
	var b strings.Builder
	fmt.Fprintf(&b, "brctl check failed for interface: %s\n\n", e.Iface)
	b.WriteString("Bridge interface must be added and configured before starting server, e.g. with:\n")
	b.WriteString("  brctl addbr bnep-bridge\n")
	b.WriteString("  brctl setfd bnep-bridge 0\n")
	b.WriteString("  brctl stp bnep-bridge off\n")
	b.WriteString("  ip addr add 10.101.225.84/24 dev bnep-bridge\n")
	b.WriteString("  ip link set bnep-bridge up\n")
	if e.Detail != "" {
		fmt.Fprintf(&b, "\nbrctl output:\n%s\n", e.Detail)
	}
	return b.String()
}

// Check verifies that iface is a configured bridge. Ready means brctl
// exits zero with empty stderr; anything else yields *NotReadyError with
// no side effects.
func Check(iface string) error {
	return check(iface, runBrctl)
}

func check(iface string, run runFunc) error {
	stderr, err := run(iface)
	detail := string(bytes.TrimSpace(stderr))
	if err != nil || detail != "" {
		return &NotReadyError{Iface: iface, Detail: detail}
	}
	return nil
}

func runBrctl(iface string) ([]byte, error) {
	cmd := exec.Command("brctl", "show", iface)
	cmd.Stdout = io.Discard
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stderr.Bytes(), err
}
