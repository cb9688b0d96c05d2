// Package heartbeat provides the blocking liveness cycle that keeps the
// process alive while serving or waiting, with optional systemd readiness
// and watchdog notification.
package heartbeat

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

// noopInterval is the sleep used when no watchdog is active. Waking is
// pointless without a ping to send; interruption comes from the caller's
// context.
const noopInterval = time.Hour

// Notifier delivers one sd_notify state string to the supervisor.
type Notifier func(state string) error

// Config controls watchdog detection. The zero value disables supervisor
// integration entirely.
type Config struct {
	// Systemd enables readiness/watchdog notification.
	Systemd bool

	// Status names the running role, sent once as STATUS=Running in <Status> mode...
	Status string

	// Getenv reads supervisor environment; defaults to os.Getenv.
	Getenv func(string) string

	// PID is the process id compared against WATCHDOG_PID; defaults to
	// os.Getpid().
	PID int

	// Notify delivers notifications; defaults to the NOTIFY_SOCKET datagram
	// sender.
	Notify Notifier
}

// Loop is the liveness cycle. Call Wait repeatedly; each call blocks for
// one interval and returns, or returns early with the context's error.
type Loop struct {
	log       *logrus.Logger
	systemd   bool
	status    string
	notify    Notifier
	interval  time.Duration
	watchdog  bool
	readySent bool
}

// New builds a Loop from cfg. With systemd integration the sleep interval
// is half the supervisor-reported WATCHDOG_USEC, capped at the fixed long
// interval, and pinging is enabled only when WATCHDOG_PID names this
// process; otherwise the loop degrades to the fixed long sleep.
func New(cfg Config, log *logrus.Logger) *Loop {
	l := &Loop{
		log:      log,
		systemd:  cfg.Systemd,
		status:   cfg.Status,
		notify:   cfg.Notify,
		interval: noopInterval,
	}
	if l.notify == nil {
		l.notify = sdNotify
	}
	if !cfg.Systemd {
		return l
	}
	getenv := cfg.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	pid := cfg.PID
	if pid == 0 {
		pid = os.Getpid()
	}
	wdPid, err := strconv.Atoi(getenv("WATCHDOG_PID"))
	if err != nil || wdPid != pid {
		return l
	}
	usec, err := strconv.ParseFloat(getenv("WATCHDOG_USEC"), 64)
	if err != nil || usec <= 0 {
		return l
	}
	interval := time.Duration(usec/2) * time.Microsecond
	log.Debugf("initializing systemd watchdog pinger with interval: %s", interval)
	l.watchdog = true
	if interval < noopInterval {
		l.interval = interval
	}
	return l
}

// Wait blocks for one liveness cycle. The first call under systemd emits
// the one-time readiness and status notifications. A completed sleep emits
// a watchdog ping when pinging is enabled. Cancellation of ctx ends the
// cycle early and returns ctx's error.
func (l *Loop) Wait(ctx context.Context) error {
	if l.systemd && !l.readySent {
		l.readySent = true
		if err := l.notify("READY=1"); err != nil {
			l.log.Warnf("notify READY: %v", err)
		}
		if err := l.notify(fmt.Sprintf("STATUS=Running in %s mode...", l.status)); err != nil {
			l.log.Warnf("notify STATUS: %v", err)
		}
	}
	timer := time.NewTimer(l.interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}
	if l.watchdog {
		if err := l.notify("WATCHDOG=1"); err != nil {
			l.log.Warnf("notify WATCHDOG: %v", err)
		}
	}
	return nil
}

// sdNotify sends one state datagram to systemd's notify socket. Does
// nothing if NOTIFY_SOCKET is not set.
func sdNotify(state string) error {
	socketPath := os.Getenv("NOTIFY_SOCKET")
	if socketPath == "" {
		return nil
	}
	conn, err := net.Dial("unixgram", socketPath)
	if err != nil {
		return err
	}
	defer conn.Close()
	_, err = conn.Write([]byte(state))
	return err
}
