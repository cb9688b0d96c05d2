package pan

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Registrar registers a PAN service UUID against a bridge interface on one
// or more local adapters and tracks what it registered so teardown only
// touches its own registrations.
type Registrar struct {
	uuid   string
	bridge string
	log    *logrus.Logger

	registered []NetworkServer
}

// NewRegistrar returns a Registrar for uuid and the named bridge interface.
// The bridge must exist before registration; verifying that is the caller's
// job.
func NewRegistrar(uuid, bridge string, log *logrus.Logger) *Registrar {
	return &Registrar{uuid: uuid, bridge: bridge, log: log}
}

// RegisterAll registers the service on every adapter in order. Each
// registration is preceded by an unregister whose failure is ignored: the
// daemon persists registrations across process restarts, and a stale one
// left by an unclean exit would make the fresh Register call fail.
//
// On error the adapters registered so far stay tracked, so UnregisterAll
// still cleans them up.
func (r *Registrar) RegisterAll(adapters []NetworkServer) error {
	for _, a := range adapters {
		_ = a.UnregisterServer(r.uuid)
		if err := a.RegisterServer(r.uuid, r.bridge); err != nil {
			return errors.Wrapf(err, "register uuid %q on bridge %s", r.uuid, r.bridge)
		}
		r.registered = append(r.registered, a)
		if addr, err := a.Address(); err == nil {
			r.log.Debugf("registered uuid %q with bridge/dev: %s / %s", r.uuid, r.bridge, addr)
		}
	}
	return nil
}

// UnregisterAll removes every registration created by RegisterAll, exactly
// once per adapter. Failures are logged, not fatal: this runs on every exit
// path and must not mask the outcome of the run.
func (r *Registrar) UnregisterAll() {
	if len(r.registered) == 0 {
		return
	}
	for _, a := range r.registered {
		if err := a.UnregisterServer(r.uuid); err != nil {
			r.log.Warnf("unregister uuid %q: %v", r.uuid, err)
		}
	}
	r.registered = nil
	r.log.Debug("unregistered server uuids")
}
