// Command bt-pan runs a BlueZ PAN network server or client.
//
// Server mode registers the service UUID on the selected local adapters
// and blocks; BlueZ adds each incoming link to the given bridge interface,
// which must exist beforehand. Client mode connects to a remote PAN server
// and either exits (leaving the connection up) or waits and disconnects on
// interrupt.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/piotrlech/pi-btnap/internal/bluez"
	"github.com/piotrlech/pi-btnap/internal/bridge"
	"github.com/piotrlech/pi-btnap/internal/heartbeat"
	"github.com/piotrlech/pi-btnap/internal/pan"
)

func main() {
	app := cli.NewApp()
	app.Name = "bt-pan"
	app.Usage = "BlueZ bluetooth PAN network server/client"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "device, i",
			Usage: "local device address/pattern to use (if not default)",
		},
		cli.BoolFlag{
			Name: "device-all, a",
			Usage: "use all local hci devices, not just the default one; " +
				"only valid with server mode, mutually exclusive with --device",
		},
		cli.StringFlag{
			Name:  "uuid, u",
			Value: "nap",
			Usage: "service UUID to use, either a full UUID or one of: gn, panu, nap",
		},
		cli.BoolFlag{
			Name:  "systemd",
			Usage: "use systemd service notification/watchdog mechanisms in daemon modes",
		},
		cli.BoolFlag{
			Name:  "debug",
			Usage: "verbose operation mode",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:      "server",
			Usage:     "Run infinitely as a NAP network server.",
			ArgsUsage: "<bridge-iface>",
			Action:    runServer,
		},
		{
			Name:      "client",
			Usage:     "Connect to a PAN network.",
			ArgsUsage: "<remote-addr>",
			Flags: []cli.Flag{
				cli.BoolFlag{
					Name:  "wait, w",
					Usage: "go into an endless wait-loop after connection, terminating it on exit",
				},
				cli.BoolFlag{
					Name:  "if-not-connected, c",
					Usage: "don't raise an error if the connection is already established",
				},
				cli.BoolFlag{
					Name:  "reconnect, r",
					Usage: "force reconnection if some connection is already established",
				},
			},
			Action: runClient,
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// env is the state shared by both roles after common setup: resolved and
// powered adapters, the bus client, and the interrupt context.
type env struct {
	log      *logrus.Logger
	client   *bluez.Client
	adapters []*bluez.Adapter
	uuid     string
	systemd  bool
	ctx      context.Context
}

// setup validates flags, resolves the target adapters and powers them on.
// SIGINT and SIGTERM cancel the returned context so both signals take the
// normal cleanup path.
func setup(c *cli.Context, serverMode bool) (*env, error) {
	log := newLogger(c.GlobalBool("debug"))

	uuid, err := bluez.NormalizeUUID(c.GlobalString("uuid"))
	if err != nil {
		return nil, err
	}

	pattern := c.GlobalString("device")
	all := c.GlobalBool("device-all")
	if all {
		if !serverMode {
			return nil, errors.New("--device-all is only valid with server mode")
		}
		if pattern != "" {
			return nil, errors.New("--device-all is mutually exclusive with --device")
		}
	}

	client := bluez.NewClient()
	adapters, err := client.FindAdapters(pattern)
	if err != nil {
		client.Close()
		return nil, err
	}
	if !all {
		adapters = adapters[:1]
	}
	for _, a := range adapters {
		if err := a.SetPowered(true); err != nil {
			client.Close()
			return nil, fmt.Errorf("power on adapter %s: %w", a.Path(), err)
		}
		if addr, err := a.Address(); err == nil {
			log.Debugf("using local device (addr: %s): %s", addr, a.Path())
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		cancel()
	}()

	return &env{
		log:      log,
		client:   client,
		adapters: adapters,
		uuid:     uuid,
		systemd:  c.GlobalBool("systemd"),
		ctx:      ctx,
	}, nil
}

func runServer(c *cli.Context) error {
	bridgeIface := c.Args().First()
	if bridgeIface == "" {
		return cli.NewExitError("bridge interface name required", 2)
	}

	e, err := setup(c, true)
	if err != nil {
		return err
	}
	defer e.client.Close()

	if err := bridge.Check(bridgeIface); err != nil {
		var nr *bridge.NotReadyError
		if errors.As(err, &nr) {
			fmt.Fprint(os.Stderr, nr.Remediation())
			return cli.NewExitError("", 1)
		}
		return err
	}

	reg := pan.NewRegistrar(e.uuid, bridgeIface, e.log)
	defer reg.UnregisterAll()
	servers := make([]pan.NetworkServer, len(e.adapters))
	for i, a := range e.adapters {
		servers[i] = a
	}
	if err := reg.RegisterAll(servers); err != nil {
		return err
	}

	loop := heartbeat.New(heartbeat.Config{Systemd: e.systemd, Status: "server"}, e.log)
	for {
		if err := loop.Wait(e.ctx); err != nil {
			break
		}
	}
	e.log.Debug("finished")
	return nil
}

func runClient(c *cli.Context) error {
	remoteAddr := c.Args().First()
	if remoteAddr == "" {
		return cli.NewExitError("remote device address required", 2)
	}

	e, err := setup(c, false)
	if err != nil {
		return err
	}
	defer e.client.Close()

	dev, err := e.client.FindDevice(remoteAddr, e.adapters[0])
	if err != nil {
		return err
	}
	if addr, aerr := dev.Address(); aerr == nil {
		e.log.Debugf("using remote device (addr: %s): %s", addr, dev.Path())
	}

	neg := pan.NewNegotiator(dev, e.log)
	iface, err := neg.Connect(e.uuid, pan.ConnectOptions{
		Reconnect:      c.Bool("reconnect"),
		IfNotConnected: c.Bool("if-not-connected"),
	})
	if err != nil {
		return err
	}
	e.log.Debugf("connected to network (dev: %s) uuid %q with iface: %s", dev.Path(), e.uuid, iface)

	if c.Bool("wait") {
		loop := heartbeat.New(heartbeat.Config{Systemd: e.systemd, Status: "client"}, e.log)
		for {
			if err := loop.Wait(e.ctx); err != nil {
				break
			}
		}
		if err := neg.Disconnect(); err != nil {
			e.log.Warnf("%v", err)
		}
	}
	e.log.Debug("finished")
	return nil
}

func newLogger(debug bool) *logrus.Logger {
	log := &logrus.Logger{
		Out:       os.Stderr,
		Formatter: &logrus.TextFormatter{DisableTimestamp: true},
		Hooks:     make(logrus.LevelHooks),
		Level:     logrus.WarnLevel,
	}
	if debug {
		log.Level = logrus.DebugLevel
	}
	return log
}
