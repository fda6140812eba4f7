package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"
)

const version = "1.0.0"

func printVersion() {
	fmt.Printf("wiimoterd v%s\n", version)
	fmt.Println("Pointer gesture daemon: turns remote/tablet motion into named events")
}

func printUsage() {
	printVersion()
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  wiimoterd [OPTIONS]")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Watches one target at a time. While a watch session is active the")
	fmt.Println("  pointing device is polled and distance, rotation, lateral and vertical")
	fmt.Println("  trends are fired as events (plus shakes and button presses). Events")
	fmt.Println("  are streamed to WebSocket clients; watches are driven over IPC or by")
	fmt.Println("  hover regions from the config file.")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -config string")
	fmt.Println("        Path to YAML config file (optional)")
	fmt.Println()
	fmt.Println("  -input-device string")
	fmt.Println("        Linux input event device; repeat for more slots (max 4)")
	fmt.Println()
	fmt.Println("  -repeat-ms int")
	fmt.Printf("        Poll interval of an active session in ms (default %d)\n", defaultWatchRepeatMS)
	fmt.Println()
	fmt.Println("  -close-on-leave")
	fmt.Println("        Stop the session when the pointer leaves its target (default true)")
	fmt.Println()
	fmt.Println("  -replace-current")
	fmt.Println("        A watch on another target replaces the running session (default false)")
	fmt.Println()
	fmt.Println("  -buttons string")
	fmt.Printf("        Button preset: %s (default %q)\n", strings.Join(buttonPresetNames(), "|"), defaultButtonsName)
	fmt.Println()
	fmt.Println("  -ipc-socket string")
	fmt.Printf("        Unix domain socket path for IPC (default %q)\n", defaultSocketPath)
	fmt.Println()
	fmt.Println("  -port int")
	fmt.Printf("        HTTP port for /ws and /healthz (default %d)\n", defaultServerPort)
	fmt.Println()
	fmt.Println("  -log-level string")
	fmt.Println("        Log level: error, warn, info, debug (default \"info\")")
	fmt.Println()
	fmt.Println("  -version")
	fmt.Println("        Print version and exit")
	fmt.Println()
	fmt.Println("  -help")
	fmt.Println("        Print this help message")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  wiimoterd -config ~/.config/wiimoter.yaml")
	fmt.Println("  wiimoterd -input-device /dev/input/event7 -log-level debug")
	fmt.Println("  wiictl watch canvas")
	fmt.Println()
}

// stringList is a repeatable string flag.
type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }

func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

func main() {
	os.Exit(run(os.Args[1:]))
}

// run starts the daemon and blocks until it stops. It returns the process
// exit code so that deferred cleanup always runs.
func run(args []string) int {
	fs := flag.NewFlagSet("wiimoterd", flag.ContinueOnError)
	var inputDevices stringList

	var (
		configPath     = fs.String("config", "", "Path to YAML config file")
		repeatMS       = fs.Int("repeat-ms", defaultWatchRepeatMS, "Poll interval of an active session in ms")
		closeOnLeave   = fs.Bool("close-on-leave", defaultCloseOnLeave, "Stop the session when the pointer leaves its target")
		replaceCurrent = fs.Bool("replace-current", defaultReplaceCurrent, "A watch on another target replaces the running session")
		buttonsPreset  = fs.String("buttons", defaultButtonsName, "Button preset")
		ipcSocketPath  = fs.String("ipc-socket", defaultSocketPath, "Unix domain socket path for IPC")
		serverPort     = fs.Int("port", defaultServerPort, "HTTP port for /ws and /healthz")
		logLevelStr    = fs.String("log-level", "info", "Log level: error, warn, info, debug")
		showVersion    = fs.Bool("version", false, "Print version and exit")
		showHelp       = fs.Bool("help", false, "Print help message")
	)
	fs.Var(&inputDevices, "input-device", "Linux input event device (repeatable)")

	fs.Usage = printUsage
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *showHelp {
		printUsage()
		return 0
	}
	if *showVersion {
		printVersion()
		return 0
	}

	cfg := DefaultConfig()
	if *configPath != "" {
		loaded, err := LoadConfigFile(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			return 1
		}
		cfg = loaded
	}

	// Only explicitly set flags override the file.
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	var ov FlagOverrides
	if set["input-device"] {
		ov.InputDevices = inputDevices
	}
	if set["repeat-ms"] {
		ov.WatchRepeatMS = repeatMS
	}
	if set["close-on-leave"] {
		ov.WatchCloseOnLeave = closeOnLeave
	}
	if set["replace-current"] {
		ov.WatchReplaceCurrent = replaceCurrent
	}
	if set["buttons"] {
		ov.ButtonsPreset = buttonsPreset
	}
	if set["ipc-socket"] {
		ov.IPCSocketPath = ipcSocketPath
	}
	if set["port"] {
		ov.ServerPort = serverPort
	}
	if set["log-level"] {
		ov.LogLevel = logLevelStr
	}
	ov.Apply(&cfg)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}

	logLevel, _ := parseLogLevel(cfg.Logging.Level)
	logger := setupLogger(logLevel)

	buttons, err := newButtonMap(cfg.Buttons.Preset, cfg.Buttons.Codes)
	if err != nil {
		logger.Error("invalid button configuration", "error", err)
		return 1
	}

	files, err := openInputDevices(cfg.Input.Devices)
	if err != nil {
		logger.Error("failed to open input devices", "error", err, "tip", "run as root or add user to 'input' group")
		return 1
	}
	defer func() {
		for _, f := range files {
			_ = f.Close()
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Central buses: events from every producer, work for scheduler
	// callbacks, broadcasts for stream clients.
	events := make(chan Event, eventQueueSize)
	work := make(chan func(), workQueueSize)
	broadcasts := make(chan StreamBroadcast, 256)

	watchCfg := cfg.ToWatchConfig()
	d := newDaemon(daemonOptions{
		Watch:         watchCfg,
		Buttons:       buttons,
		Regions:       cfg.Targets,
		DistanceScale: cfg.Input.DistanceScale,
		Scheduler:     newLoopScheduler(work),
		Broadcasts:    broadcasts,
		Logger:        logger,
	})

	stream := NewStreamServer(logger, events, HubConfig{})

	logger.Debug("starting wiimoterd", "version", version)
	logger.Debug("configuration",
		"config", *configPath,
		"input_devices", cfg.Input.Devices,
		"distance_scale", cfg.Input.DistanceScale,
		"buttons", cfg.Buttons.Preset,
		"button_overrides", len(cfg.Buttons.Codes),
		"targets", len(cfg.Targets),
		"close_on_leave", watchCfg.CloseOnLeave,
		"replace_current", watchCfg.ReplaceCurrent,
		"distance_buffer", watchCfg.DistanceBuffer,
		"rotation_buffer", watchCfg.RotationBuffer,
		"lateral_buffer", watchCfg.LateralBuffer,
		"vertical_buffer", watchCfg.VerticalBuffer,
		"repeat", watchCfg.Repeat,
		"rotation_adjust", watchCfg.RotationAdjust)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		runDaemon(gctx, d, events, work)
		return nil
	})
	g.Go(func() error {
		return runIPCServer(gctx, cfg.IPC.SocketPath, events, logger)
	})
	g.Go(func() error {
		stream.Hub().Run(gctx)
		return nil
	})
	g.Go(func() error {
		RunBroadcaster(gctx, stream.Hub(), broadcasts, logger)
		return nil
	})
	g.Go(func() error {
		return runHTTPServer(gctx, cfg.Server.Port, newHTTPMux(stream), logger)
	})

	if len(files) > 0 {
		devEvents := make(chan deviceEvent, eventQueueSize)
		readErr := make(chan error, 1)
		startInputReaders(files, devEvents, readErr)

		g.Go(func() error {
			return forwardDeviceInput(gctx, devEvents, readErr, events)
		})
	}

	logger.Info("listening",
		"ipc", cfg.IPC.SocketPath,
		"port", cfg.Server.Port,
		"input_devices", len(files),
		"targets", len(cfg.Targets))

	if err := g.Wait(); err != nil {
		logger.Error("shutting down", "error", err)
		return 1
	}
	logger.Info("shut down")
	return 0
}


// forwardDeviceInput translates raw device events into daemon events until
// ctx is canceled or a reader fails.
func forwardDeviceInput(ctx context.Context, in <-chan deviceEvent, readErr <-chan error, out chan<- Event) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case err := <-readErr:
			return fmt.Errorf("input reader stopped: %w", err)

		case ev := <-in:
			// Only key presses and absolute axes matter to the daemon.
			if ev.Event.Type != EV_KEY && ev.Event.Type != EV_ABS && ev.Event.Type != EV_SYN {
				continue
			}
			select {
			case out <- DeviceInput{Slot: ev.Slot, Event: ev.Event}:
			case <-ctx.Done():
				return nil
			}
		}
	}
}
