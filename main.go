package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/smazurov/rpirtspd/cmd"
	"github.com/smazurov/rpirtspd/internal/api"
	"github.com/smazurov/rpirtspd/internal/audio"
	"github.com/smazurov/rpirtspd/internal/config"
	"github.com/smazurov/rpirtspd/internal/control"
	"github.com/smazurov/rpirtspd/internal/events"
	"github.com/smazurov/rpirtspd/internal/led"
	"github.com/smazurov/rpirtspd/internal/logging"
	"github.com/smazurov/rpirtspd/internal/metrics"
	"github.com/smazurov/rpirtspd/internal/mounts"
	"github.com/smazurov/rpirtspd/internal/nats"
	"github.com/smazurov/rpirtspd/internal/streaming"
	"github.com/smazurov/rpirtspd/internal/systemd"
	"github.com/smazurov/rpirtspd/internal/version"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"rpirtspd.toml"`

	// Server settings
	Port     string `help:"HTTP API listen address" short:"p" default:":8090" toml:"server.port" env:"SERVER_PORT"`
	TestMode bool   `help:"Keep running when the capture sources are unavailable" default:"false" toml:"server.test_mode" env:"TEST_MODE"`

	// RTSP settings
	RtspAddress string `help:"RTSP bind address" default:"0.0.0.0" toml:"rtsp.address" env:"RTSP_ADDRESS"`
	RtspPort    int    `help:"RTSP port" default:"8554" toml:"rtsp.port" env:"RTSP_PORT"`

	// Video settings
	VideoSource    string `help:"Camera source element" default:"rpicamsrc" toml:"video.source" env:"VIDEO_SOURCE"`
	VideoArgs      string `help:"Extra camera element properties" default:"bitrate=1000000" toml:"video.args" env:"VIDEO_ARGS"`
	VideoWidth     int    `help:"Video width" default:"1280" toml:"video.width" env:"VIDEO_WIDTH"`
	VideoHeight    int    `help:"Video height" default:"720" toml:"video.height" env:"VIDEO_HEIGHT"`
	VideoFramerate int    `help:"Video framerate" default:"30" toml:"video.framerate" env:"VIDEO_FRAMERATE"`
	VideoProfile   string `help:"H.264 profile" default:"baseline" toml:"video.profile" env:"VIDEO_PROFILE"`

	// Audio settings
	AudioDevices    string `help:"ALSA devices, separated by spaces or ';' (e.g. \"1,0 2\")" default:"" toml:"audio.devices" env:"AUDIO_DEVICES"`
	AudioAutodetect bool   `help:"Detect capture devices when none are configured" default:"true" toml:"audio.autodetect" env:"AUDIO_AUTODETECT"`
	AudioArgs       string `help:"Extra properties for the main stream's audio source" default:"" toml:"audio.args" env:"AUDIO_ARGS"`
	AudioDelay      int    `help:"Audio queue delay in milliseconds" default:"0" toml:"audio.delay_ms" env:"AUDIO_DELAY_MS"`
	AudioChannels   int    `help:"Audio channels" default:"1" toml:"audio.channels" env:"AUDIO_CHANNELS"`
	AudioClockrate  int    `help:"Audio sample rate" default:"16000" toml:"audio.clockrate" env:"AUDIO_CLOCKRATE"`
	AudioCompress   bool   `help:"Encode audio with Opus instead of A-law" default:"false" toml:"audio.compress" env:"AUDIO_COMPRESS"`
	AudioBitrate    int    `help:"Opus bitrate" default:"64000" toml:"audio.bitrate" env:"AUDIO_BITRATE"`

	// Control settings
	ControlPersist bool   `help:"Store applied options and replay them onto new instances" default:"false" toml:"control.persist" env:"CONTROL_PERSIST"`
	ControlFile    string `help:"Watch this file and apply its content as a command on every change" default:"" toml:"control.file" env:"CONTROL_FILE"`

	// NATS settings
	NatsUrl   string `help:"NATS server to take commands from" default:"" toml:"nats.url" env:"NATS_URL"`
	NatsEmbed bool   `help:"Run an embedded NATS server" default:"false" toml:"nats.embed" env:"NATS_EMBED"`
	NatsPort  int    `help:"Embedded NATS server port" default:"4222" toml:"nats.port" env:"NATS_PORT"`

	// LED settings
	LedTally bool   `help:"Light the board LED while clients are attached" default:"false" toml:"led.tally" env:"LED_TALLY"`
	LedName  string `help:"LED under /sys/class/leds (empty picks the board's activity LED)" default:"" toml:"led.name" env:"LED_NAME"`

	// Auth settings
	AuthUsername  string `help:"Basic auth username (empty disables auth)" default:"" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword  string `help:"Basic auth password" default:"" toml:"auth.password" env:"AUTH_PASSWORD"`
	ApiCorsOrigin string `help:"Allowed CORS origins, comma-separated (* for any)" default:"*" toml:"api.cors_origin" env:"API_CORS_ORIGIN"`

	// Logging settings
	LoggingLevel     string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat    string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingControl   string `help:"Control logging level" default:"info" toml:"logging.control" env:"LOGGING_CONTROL"`
	LoggingMounts    string `help:"Mounts logging level" default:"info" toml:"logging.mounts" env:"LOGGING_MOUNTS"`
	LoggingStreaming string `help:"RTSP server logging level" default:"info" toml:"logging.streaming" env:"LOGGING_STREAMING"`
	LoggingApi       string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
	LoggingNats      string `help:"NATS logging level" default:"info" toml:"logging.nats" env:"LOGGING_NATS"`
	LoggingConfig    string `help:"Config watcher logging level" default:"info" toml:"logging.config" env:"LOGGING_CONFIG"`
	LoggingLed       string `help:"LED tally logging level" default:"info" toml:"logging.led" env:"LOGGING_LED"`

	// Output settings
	OutputQuiet   bool `help:"Only log warnings and errors" default:"false" toml:"output.quiet" env:"QUIET"`
	OutputVerbose bool `help:"Log at debug level and dump pipeline descriptions" default:"false" toml:"output.verbose" env:"VERBOSE"`
}

// Settings returns the mount description settings.
func (o *Options) Settings() mounts.Settings {
	return mounts.Settings{
		VideoSource:    o.VideoSource,
		VideoArgs:      o.VideoArgs,
		VideoWidth:     o.VideoWidth,
		VideoHeight:    o.VideoHeight,
		VideoFramerate: o.VideoFramerate,
		VideoProfile:   o.VideoProfile,
		AudioDevices:   mounts.ParseDevices(o.AudioDevices),
		AudioArgs:      o.AudioArgs,
		AudioDelayMs:   o.AudioDelay,
		AudioChannels:  o.AudioChannels,
		AudioClockrate: o.AudioClockrate,
		AudioCompress:  o.AudioCompress,
		AudioBitrate:   o.AudioBitrate,
	}
}

// RtspListen returns host:port for the RTSP listener.
func (o *Options) RtspListen() string {
	return net.JoinHostPort(o.RtspAddress, strconv.Itoa(o.RtspPort))
}

func main() {
	var cli humacli.CLI
	var loaded *Options

	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		// Runs before every subcommand too, so only configuration and
		// logging happen here; the daemon is assembled in OnStart.
		configErr := config.LoadConfig(opts, cli.Root())

		logging.Initialize(logging.Config{
			Level:  opts.LoggingLevel,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				"control":   opts.LoggingControl,
				"mounts":    opts.LoggingMounts,
				"streaming": opts.LoggingStreaming,
				"api":       opts.LoggingApi,
				"nats":      opts.LoggingNats,
				"config":    opts.LoggingConfig,
				"led":       opts.LoggingLed,
			},
			Quiet:   opts.OutputQuiet,
			Verbose: opts.OutputVerbose,
		})
		loaded = opts

		logger := logging.GetLogger("main")
		if configErr != nil {
			logger.Error("Invalid configuration", "error", configErr)
			os.Exit(1)
		}

		var d *daemon
		hooks.OnStart(func() {
			var err error
			d, err = newDaemon(opts, logger)
			if err != nil {
				logger.Error("Startup failed", "error", err)
				os.Exit(1)
			}
			if err := d.run(); err != nil {
				logger.Error("Failed to start HTTP server", "error", err)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			if d != nil {
				d.stop()
			}
		})
	})

	cli.Root().Use = "rpirtspd"
	cli.Root().Version = version.String()

	cli.Root().AddCommand(cmd.CreateControlCmd(func() cmd.ControlTarget {
		return cmd.ControlTarget{
			Listen:   loaded.Port,
			Username: loaded.AuthUsername,
			Password: loaded.AuthPassword,
			NatsURL:  natsClientURL(loaded),
		}
	}))
	cli.Root().AddCommand(cmd.CreateValidateCmd(func() mounts.Settings {
		return loaded.Settings()
	}))

	cli.Run()
}

// daemon holds the running components in start order.
type daemon struct {
	opts     *Options
	logger   *slog.Logger
	eventBus *events.Bus

	controller *control.Controller
	manager    *mounts.Manager
	rtsp       *streaming.Server
	api        *api.Server
	natsServer *nats.Server
	bridge     *nats.Bridge
	watcher    *config.Watcher[string]
	tally      *led.Manager
	notifier   *systemd.Notifier

	cancel context.CancelFunc
}

func newDaemon(opts *Options, logger *slog.Logger) (*daemon, error) {
	d := &daemon{
		opts:     opts,
		logger:   logger,
		eventBus: events.New(),
		notifier: systemd.NewNotifier(logger),
	}

	logging.SetLogCallback(func(entry logging.LogEntry) {
		d.eventBus.Publish(api.LogEvent(entry))
	})

	settings := opts.Settings()
	if len(settings.AudioDevices) == 0 && opts.AudioAutodetect {
		specs, err := audio.Specs(audio.NewDetector())
		if err != nil {
			logger.Warn("Audio device detection failed", "error", err)
		}
		settings.AudioDevices = specs
	}

	mountList := mounts.Build(settings)
	if err := mounts.Probe(settings, mountList); err != nil {
		if !opts.TestMode {
			return nil, err
		}
		logger.Warn("Pipeline probe failed, continuing in test mode", "error", err)
	}

	d.controller = control.NewController(control.Options{
		Store:    control.NewOptionStore(opts.ControlPersist),
		EventBus: d.eventBus,
	})

	manager, err := mounts.NewManager(mounts.Options{
		Mounts:   mountList,
		Addr:     opts.RtspListen(),
		Hook:     d.controller,
		EventBus: d.eventBus,
	})
	if err != nil {
		return nil, err
	}
	d.manager = manager

	d.rtsp = streaming.NewServer(streaming.Options{
		Sessions: manager,
		EventBus: d.eventBus,
		Logger:   logging.GetLogger("streaming"),
	})

	d.api = api.NewServer(&api.Options{
		AuthUsername:  opts.AuthUsername,
		AuthPassword:  opts.AuthPassword,
		CORSOrigin:    opts.ApiCorsOrigin,
		Controller:    d.controller,
		Mounts:        manager,
		EventBus:      d.eventBus,
		AudioDetector: audio.NewDetector(),
	})

	return d, nil
}

// run starts every component and blocks serving the HTTP API.
func (d *daemon) run() error {
	logger := d.logger
	logger.Info(version.Banner())

	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel

	if err := d.rtsp.Start(d.opts.RtspListen()); err != nil {
		return err
	}
	d.manager.Announce()

	if d.opts.LedTally {
		ledLogger := logging.GetLogger("led")
		d.tally = led.NewManager(led.New(d.opts.LedName, ledLogger), d.manager, d.eventBus, ledLogger)
		d.tally.Start()
	}

	if err := d.startNats(); err != nil {
		logger.Warn("NATS control unavailable", "error", err)
	}

	if d.opts.ControlFile != "" {
		d.watcher = config.NewConfigWatcher(
			d.opts.ControlFile,
			config.ReadControlFile,
			logging.GetLogger("config"),
			config.WithLoadOnStart[string](),
		)
		d.watcher.OnReload(func(command string) {
			metrics.IncCommand("file")
			d.controller.Apply(command)
		})
		if err := d.watcher.Start(); err != nil {
			logger.Warn("Failed to watch control file", "path", d.opts.ControlFile, "error", err)
			d.watcher = nil
		}
	}

	d.notifier.Ready("Serving " + strconv.Itoa(len(d.manager.Mounts())) + " mount points")
	go d.notifier.Watchdog(ctx)

	logger.Info("Starting HTTP server", "port", d.opts.Port)
	if err := d.api.Start(d.opts.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (d *daemon) startNats() error {
	url := d.opts.NatsUrl
	if d.opts.NatsEmbed {
		d.natsServer = nats.NewServer(nats.ServerOptions{
			Port:   d.opts.NatsPort,
			Logger: logging.GetLogger("nats"),
		})
		if err := d.natsServer.Start(); err != nil {
			d.natsServer = nil
			return err
		}
		if url == "" {
			url = d.natsServer.ClientURL()
		}
	}
	if url == "" {
		return nil
	}

	d.bridge = nats.NewBridge(url, d.controller, d.eventBus, logging.GetLogger("nats"))
	if err := d.bridge.Start(); err != nil {
		d.bridge = nil
		return err
	}
	return nil
}

func (d *daemon) stop() {
	d.logger.Info("Shutting down server")
	d.notifier.Stopping()
	if d.cancel != nil {
		d.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.api.Stop(ctx); err != nil {
		d.logger.Error("Error stopping HTTP server", "error", err)
	}

	if d.watcher != nil {
		if err := d.watcher.Stop(); err != nil {
			d.logger.Warn("Error stopping control file watcher", "error", err)
		}
	}
	if d.bridge != nil {
		d.bridge.Stop()
	}
	if d.natsServer != nil {
		d.natsServer.Stop()
	}

	if err := d.rtsp.Stop(); err != nil {
		d.logger.Error("Error stopping RTSP server", "error", err)
	}
	if d.tally != nil {
		d.tally.Stop()
	}
	d.manager.Close()
	logging.SetLogCallback(nil)
}

// natsClientURL is the server the control command talks to.
func natsClientURL(o *Options) string {
	if o.NatsUrl != "" {
		return o.NatsUrl
	}
	if o.NatsEmbed {
		return "nats://127.0.0.1:" + strconv.Itoa(o.NatsPort)
	}
	return ""
}
