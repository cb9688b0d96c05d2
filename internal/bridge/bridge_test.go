package bridge

import (
	"errors"
	"strings"
	"testing"
)

func TestCheckReady(t *testing.T) {
	err := check("bnep-bridge", func(iface string) ([]byte, error) {
		if iface != "bnep-bridge" {
			t.Errorf("iface = %q", iface)
		}
		return nil, nil
	})
	if err != nil {
		t.Fatalf("clean brctl run must pass: %v", err)
	}
}

func TestCheckExitError(t *testing.T) {
	err := check("bnep-bridge", func(string) ([]byte, error) {
		return nil, errors.New("exit status 1")
	})
	var nr *NotReadyError
	if !errors.As(err, &nr) {
		t.Fatalf("expected NotReadyError, got %v", err)
	}
	if nr.Iface != "bnep-bridge" {
		t.Errorf("Iface = %q", nr.Iface)
	}
}

func TestCheckStderrOutput(t *testing.T) {
	// brctl can exit zero while still complaining on stderr
	err := check("bnep-bridge", func(string) ([]byte, error) {
		return []byte("bridge bnep-bridge does not exist!\n"), nil
	})
	var nr *NotReadyError
	if !errors.As(err, &nr) {
		t.Fatalf("expected NotReadyError, got %v", err)
	}
	if nr.Detail != "bridge bnep-bridge does not exist!" {
		t.Errorf("Detail = %q", nr.Detail)
	}
}

func TestRemediationText(t *testing.T) {
	nr := &NotReadyError{Iface: "bnep-bridge", Detail: "no such bridge"}
	text := nr.Remediation()
	for _, want := range []string{
		"brctl check failed for interface: bnep-bridge",
		"brctl addbr",
		"brctl setfd",
		"brctl stp",
		"ip addr add",
		"ip link set",
		"no such bridge",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("remediation text missing %q", want)
		}
	}
}
