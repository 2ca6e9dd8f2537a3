// Command geoanchor hosts a geo-anchor session behind a JSON-lines command
// stream and inspects the persisted anchor store.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/hellogeo/geoanchor/internal/config"
	"github.com/hellogeo/geoanchor/internal/dispatcher"
	"github.com/hellogeo/geoanchor/internal/handlers"
	"github.com/hellogeo/geoanchor/internal/influx"
	"github.com/hellogeo/geoanchor/internal/logging"
	"github.com/hellogeo/geoanchor/internal/markers"
	"github.com/hellogeo/geoanchor/internal/monitor"
	"github.com/hellogeo/geoanchor/internal/render"
	"github.com/hellogeo/geoanchor/internal/session"
	"github.com/hellogeo/geoanchor/internal/storage"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// BuildDate can be set at build time via ldflags
var (
	Version   string = "0.0.1"
	BuildDate string = "unknown"
)

const usageText = `usage: geoanchor [flags] <command> [args]

commands:
  replay [file]   read JSON-lines commands from file (or stdin) and print each result
  list            print the persisted anchor records
  markers         print the marker layer of the newest anchors as GeoJSON
  migrate         apply the database schema for the configured storage
  version         print version information

flags:
`

func newFlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet(logging.AppName, pflag.ExitOnError)
	flags.StringP("config", "c", ".", "directory containing "+config.FileName)
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("storage", "", "storage backend (memory, sqlite, postgres)")
	flags.Bool("no-hydrate", false, "do not hydrate the session from the first pose")
	flags.Usage = func() {
		fmt.Fprint(os.Stderr, usageText)
		flags.PrintDefaults()
	}
	return flags
}

func main() {
	flags := newFlagSet()
	_ = flags.Parse(os.Args[1:])

	args := flags.Args()
	if len(args) == 0 {
		flags.Usage()
		os.Exit(2)
	}

	if err := run(flags, args, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", logging.AppName, err)
		os.Exit(1)
	}
}

func run(flags *pflag.FlagSet, args []string, stdin io.Reader, stdout io.Writer) error {
	configDir, _ := flags.GetString("config")
	if err := config.Load(configDir); err != nil {
		// defaults are already in place
		fmt.Fprintf(os.Stderr, "Failed to load config, using defaults: %v\n", err)
	}
	_ = viper.BindPFlag("logLevel", flags.Lookup("log-level"))
	_ = viper.BindPFlag("storage.type", flags.Lookup("storage"))

	switch strings.ToLower(args[0]) {
	case "version":
		fmt.Fprintf(stdout, "%s %s (built %s)\n", logging.AppName, Version, BuildDate)
		return nil
	case "migrate":
		log := logging.NewZerolog(viper.GetString("logLevel"), os.Stderr)
		return migrate(config.GetStorageConfig(), log)
	case "replay", "list", "markers":
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}

	noHydrate, _ := flags.GetBool("no-hydrate")
	a, err := newApp(!noHydrate)
	if err != nil {
		return err
	}
	defer a.Close()

	switch strings.ToLower(args[0]) {
	case "replay":
		in := stdin
		if len(args) > 1 && args[1] != "-" {
			f, err := os.Open(args[1])
			if err != nil {
				return fmt.Errorf("opening replay file: %w", err)
			}
			defer f.Close()
			in = f
		}
		return a.replay(in, stdout)
	case "list":
		return a.list(stdout)
	default:
		return a.printMarkers(stdout)
	}
}

// app wires one session to its collaborators for the lifetime of a command.
type app struct {
	logManager *logging.SlogManager
	logger     *slog.Logger
	logFile    *os.File

	storage    storage.Backend
	influx     *influx.Manager
	markers    *markers.Map
	session    *session.Session
	dispatcher *dispatcher.Dispatcher
	service    *handlers.Service
	monitor    *monitor.Service
}

func newApp(autoHydrate bool) (*app, error) {
	a := &app{}
	startTime := time.Now()
	level := viper.GetString("logLevel")

	opts := logging.Options{
		Level: level,
		Context: func() []slog.Attr {
			if a.session == nil {
				return nil
			}
			return a.session.LogAttrs()
		},
	}

	logFile, err := logging.OpenLogFile(viper.GetString("logsDir"), startTime)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file, logging to stderr: %v\n", err)
	} else {
		a.logFile = logFile
		opts.File = logFile
	}

	if gl := config.GetGraylogConfig(); gl.Enabled {
		w, err := logging.NewGraylogWriter(gl.Address, logging.AppName)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to connect to Graylog at %s: %v\n", gl.Address, err)
		} else {
			opts.Graylog = w
		}
	}

	a.logManager = logging.NewSlogManager()
	a.logManager.Setup(opts)
	a.logger = a.logManager.Logger()
	a.logger.Info("Starting up", "version", Version, "buildDate", BuildDate)

	zlog := logging.NewZerolog(level, a.logWriter())

	a.storage, err = initStorage(config.GetStorageConfig(), a.logManager)
	if err != nil {
		a.Close()
		return nil, err
	}

	var telemetry session.TelemetrySink
	if influxCfg := config.GetInfluxConfig(); influxCfg.Enabled {
		a.influx = influx.NewManager(zlog, influxCfg)
		a.influx.Tags["host"], _ = os.Hostname()
		if err := a.influx.Connect(); err != nil {
			a.logger.Warn("InfluxDB telemetry disabled", "error", err)
			_ = a.influx.Close()
			a.influx = nil
		} else {
			telemetry = a.influx
		}
	}

	a.markers = markers.NewMap()
	a.session, err = session.New(session.Dependencies{
		Storage:   a.storage,
		Render:    render.NewRegistry(),
		Markers:   a.markers,
		Telemetry: telemetry,
		Logger:    a.logger,
	}, session.OptionsFromConfig(config.GetSessionConfig()))
	if err != nil {
		a.Close()
		return nil, err
	}

	a.dispatcher, err = dispatcher.New(logging.NewDispatcherLogger(zlog))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create dispatcher: %w", err)
	}

	a.service = handlers.NewService(handlers.Dependencies{
		Session:     a.session,
		Storage:     a.storage,
		Markers:     a.markers,
		LogManager:  a.logManager,
		AutoHydrate: autoHydrate,
	}, handlers.NewPoseContext())
	a.service.RegisterHandlers(a.dispatcher)
	a.logger.Debug("Handlers registered with dispatcher")

	if monCfg := config.GetMonitorConfig(); monCfg.StatusPath != "" {
		a.monitor = monitor.NewService(monitor.Dependencies{
			Session:    a.session,
			Storage:    a.storage,
			LogManager: a.logManager,
			StatusPath: monCfg.StatusPath,
			Interval:   monCfg.Interval,
		})
		if err := a.monitor.Start(); err != nil {
			a.logger.Warn("Status monitor disabled", "error", err)
			a.monitor = nil
		}
	}

	return a, nil
}

func (a *app) logWriter() io.Writer {
	if a.logFile != nil {
		return a.logFile
	}
	return os.Stderr
}

// Close releases every collaborator in reverse order of creation.
func (a *app) Close() {
	if a.monitor != nil {
		a.monitor.Stop()
	}
	if a.influx != nil {
		if err := a.influx.Close(); err != nil {
			a.logger.Warn("Error closing InfluxDB manager", "error", err)
		}
	}
	if a.storage != nil {
		if err := a.storage.Close(); err != nil {
			a.logger.Error("Error closing storage backend", "error", err)
		}
	}
	if a.logger != nil {
		a.logger.Info("Shut down")
	}
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
}
