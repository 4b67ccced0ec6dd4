// Regioncore runs one region of a behavior-graph world.
// Usage: regioncore [--version] [--plain] [--headless] [--script <file>] [--trace]
//
//	[--config <file>] [--ws <addr>] [--mqtt <url>] [--db <path>] [--pg]
//	[--tracelog <dir>] <region_directory>
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/nathoo/regioncore/cli"
	"github.com/nathoo/regioncore/config"
	"github.com/nathoo/regioncore/engine"
	"github.com/nathoo/regioncore/engine/world"
	"github.com/nathoo/regioncore/loader"
	"github.com/nathoo/regioncore/store/postgres"
	"github.com/nathoo/regioncore/store/sqlite"
	"github.com/nathoo/regioncore/store/tracelog"
	"github.com/nathoo/regioncore/transport/mqtt"
	"github.com/nathoo/regioncore/transport/ws"
	"github.com/nathoo/regioncore/tui"
	"github.com/nathoo/regioncore/types"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const usage = "Usage: regioncore [--version] [--plain] [--headless] [--script <file>] [--trace] " +
	"[--config <file>] [--ws <addr>] [--mqtt <url>] [--db <path>] [--pg] [--tracelog <dir>] <region_directory>\n"

type options struct {
	plain, headless, trace, pg bool

	regionDir, scriptFile, configFile string
	wsAddr, mqttURL, dbPath, traceDir string
	mqttSet                           bool
}

func main() {
	opts, ok := parseArgs(os.Args[1:])
	if !ok {
		return
	}
	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func parseArgs(args []string) (options, bool) {
	var o options
	value := func(i *int, flag string) string {
		if *i+1 >= len(args) {
			fmt.Fprintf(os.Stderr, "%s requires a value\n", flag)
			os.Exit(1)
		}
		*i++
		return args[*i]
	}
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--version":
			fmt.Printf("regioncore %s (commit %s, built %s)\n", version, commit, date)
			return o, false
		case "--plain":
			o.plain = true
		case "--headless":
			o.headless = true
		case "--trace":
			o.trace = true
		case "--pg":
			o.pg = true
		case "--script":
			o.scriptFile = value(&i, "--script")
		case "--config":
			o.configFile = value(&i, "--config")
		case "--ws":
			o.wsAddr = value(&i, "--ws")
		case "--mqtt":
			o.mqttURL = value(&i, "--mqtt")
			o.mqttSet = true
		case "--db":
			o.dbPath = value(&i, "--db")
		case "--tracelog":
			o.traceDir = value(&i, "--tracelog")
		default:
			if o.regionDir == "" {
				o.regionDir = args[i]
			}
		}
	}
	if o.regionDir == "" {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
	return o, true
}

// loadConfig reads --config, then <region>/regioncore.yaml, then defaults.
func loadConfig(o options) (config.Settings, error) {
	path := o.configFile
	if path == "" {
		candidate := filepath.Join(o.regionDir, "regioncore.yaml")
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
		}
	}
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func run(o options) error {
	cfg, err := loadConfig(o)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if o.wsAddr != "" {
		cfg.Transport.WSAddr = o.wsAddr
	}
	if o.mqttSet {
		cfg.Transport.MQTTURL = o.mqttURL
	}
	if o.dbPath != "" {
		cfg.Store.SQLitePath = o.dbPath
	}
	if o.pg {
		cfg.Store.Postgres = true
	}
	if o.traceDir != "" {
		cfg.Store.TraceLogDir = o.traceDir
	}

	bundle, err := loader.Load(o.regionDir)
	if err != nil {
		return fmt.Errorf("loading region: %w", err)
	}
	for _, warn := range bundle.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", warn)
	}

	// The TUI owns the terminal; engine logs go to stderr only outside it.
	interactive := !o.plain && !o.headless && o.scriptFile == "" && isTerminal()
	logOut := io.Writer(os.Stderr)
	if interactive {
		logOut = io.Discard
	}
	logger := log.New(logOut, "", log.LstdFlags)

	w := world.New(cfg, &bundle.Region, nil)
	outbox := make(chan types.RegionMessage, cfg.Engine.OutboxSize)
	w.Outbox = outbox

	eng := engine.New(w, logger)
	defer eng.Close()
	if err := bundle.Install(w); err != nil {
		return fmt.Errorf("installing region: %w", err)
	}
	if err := eng.Bootstrap(bundle.Placements); err != nil {
		return fmt.Errorf("bootstrapping region: %w", err)
	}

	closers, err := wireSinks(eng, cfg, logger)
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if cerr := closers[i](); cerr != nil {
				logger.Printf("close: %v", cerr)
			}
		}
	}()
	if err != nil {
		return err
	}

	c := cli.New(eng, outbox)
	c.Session.Trace = o.trace
	stop, err := wireTransports(c.Session, cfg, logger)
	defer stop()
	if err != nil {
		return err
	}

	switch {
	case o.scriptFile != "":
		f, err := os.Open(o.scriptFile)
		if err != nil {
			return fmt.Errorf("opening script: %w", err)
		}
		defer f.Close()
		c.In = f
		c.EchoInput = true
		c.Run()
	case o.headless:
		return runHeadless(c.Session, logger)
	case !interactive:
		c.Run()
	default:
		return tui.Run(c.Session)
	}
	return nil
}

// wireSinks attaches the configured trace sinks and returns their closers.
func wireSinks(eng *engine.Engine, cfg config.Settings, logger *log.Logger) ([]func() error, error) {
	var sinks engine.Sinks
	var closers []func() error

	if cfg.Store.SQLitePath != "" {
		s, err := sqlite.Open(cfg.Store.SQLitePath)
		if err != nil {
			return closers, fmt.Errorf("opening sqlite index: %w", err)
		}
		s.Log = logger
		sinks = append(sinks, s)
		closers = append(closers, s.Close)
	}
	if cfg.Store.Postgres {
		pg, err := postgres.New(eng.World.Region.ID)
		if err != nil {
			return closers, err
		}
		sinks = append(sinks, pg)
		closers = append(closers, pg.Close)
	}
	if cfg.Store.TraceLogDir != "" {
		tl := tracelog.New(cfg.Store.TraceLogDir, fmt.Sprintf("region-%d", eng.World.Region.ID))
		sinks = append(sinks, tl)
		closers = append(closers, tl.Close)
	}
	if len(sinks) > 0 {
		eng.Sink = sinks
	}
	return closers, nil
}

// wireTransports starts the websocket hub and the MQTT client. Their input
// is merged into one queue the session drains before each tick.
func wireTransports(s *cli.Session, cfg config.Settings, logger *log.Logger) (func(), error) {
	var stops []func()
	stop := func() {
		for i := len(stops) - 1; i >= 0; i-- {
			stops[i]()
		}
	}
	remote := make(chan types.RemoteAction, 256)

	if cfg.Transport.WSAddr != "" {
		hub := ws.NewHub(logger)
		hub.Compress = cfg.Transport.Compress
		mux := http.NewServeMux()
		mux.Handle("/ws", hub.Handler())
		srv := &http.Server{Addr: cfg.Transport.WSAddr, Handler: mux}
		go func() {
			logger.Printf("ws: listening on %s", cfg.Transport.WSAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Printf("ws: server failed: %v", err)
			}
		}()
		go forward(hub.Actions(), remote)
		s.Publishers = append(s.Publishers, hub)
		stops = append(stops, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		})
	}

	if cfg.Transport.MQTTURL != "" {
		root := fmt.Sprintf("%s/%d", cfg.Transport.MQTTTopic, s.Engine.World.Region.ID)
		client := mqtt.NewClient(cfg.Transport.MQTTURL, cfg.Transport.MQTTClientID, root, logger)
		if err := client.Connect(); err != nil {
			return stop, fmt.Errorf("mqtt: failed to connect to %s: %w", mqtt.BrokerURL(cfg.Transport.MQTTURL), err)
		}
		stops = append(stops, client.Disconnect)
		if err := client.SubscribeInput(remote); err != nil {
			return stop, err
		}
		s.Publishers = append(s.Publishers, client)
		logger.Printf("mqtt: publishing under %s", root)
	}

	if len(s.Publishers) > 0 {
		s.Remote = remote
	}
	return stop, nil
}

func forward(in <-chan types.RemoteAction, out chan<- types.RemoteAction) {
	for ra := range in {
		out <- ra
	}
}

// runHeadless ticks in real time until interrupted, logging what a
// console would have printed.
func runHeadless(s *cli.Session, logger *log.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	interval := time.Minute / time.Duration(s.Engine.World.Config.Engine.TicksPerMinute)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for _, line := range s.Intro() {
		logger.Print(line)
	}
	for {
		select {
		case <-ctx.Done():
			logger.Printf("stopping at tick %d", s.Engine.World.Tick)
			return nil
		case <-ticker.C:
			for _, line := range s.Step(1) {
				logger.Print(line)
			}
		}
	}
}

// isTerminal returns true if stdout is a terminal (not piped/redirected).
func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
