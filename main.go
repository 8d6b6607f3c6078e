package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	wailswindows "github.com/wailsapp/wails/v2/pkg/options/windows"
	"github.com/wailsapp/wails/v2/pkg/runtime"
	"go.uber.org/zap"

	"grimvault/internal/config"
	"grimvault/internal/hotkey"
	"grimvault/internal/logging"
	"grimvault/internal/metrics"
	"grimvault/internal/native"
	"grimvault/internal/overlay"
	"grimvault/internal/platform"
	"grimvault/internal/pricecheck"
	"grimvault/internal/scan"
	"grimvault/internal/tracker"
)

//go:embed all:frontend/dist
var assets embed.FS

// Events pushed to the UI shell that are not owned by a package.
const eventSettings = "settings"

// App struct
type App struct {
	ctx     context.Context
	runtime *config.Runtime
	logger  *zap.Logger

	config     *config.Service
	state      *config.State
	metrics    *metrics.Metrics
	metricsSrv *metrics.Server
	native     *native.Service
	window     *overlay.Window
	emitter    *overlay.Emitter
	tracker    *tracker.Synchronizer
	events     *platform.WindowEvents
	lookup     *pricecheck.Client
	scanner    *scan.Orchestrator
	auto       *scan.AutoScanner
	hotkeys    *hotkey.Listener
}

// NewApp creates a new App application struct
func NewApp(rt *config.Runtime, logger *zap.Logger) *App {
	return &App{
		runtime: rt,
		logger:  logger,
	}
}

// OnStartup is called when the app starts up
func (a *App) OnStartup(ctx context.Context) {
	a.ctx = ctx

	if err := a.startup(ctx); err != nil {
		a.fatal(err)
	}
}

func (a *App) startup(ctx context.Context) error {
	platform.LogSystemInformation(a.logger)

	if err := platform.CheckRedistributable(a.logger); err != nil {
		return err
	}

	dir, err := config.DefaultDir()
	if err != nil {
		return err
	}

	// Initialize config service
	configSvc, err := config.New(dir)
	if err != nil {
		return err
	}
	a.config = configSvc
	for _, w := range configSvc.Warnings() {
		a.logger.Warn("Invalid setting replaced with default", zap.String("setting", w))
	}
	settings := configSvc.Get()
	a.logger.Info("Settings loaded", zap.String("path", configSvc.Path()))

	state, err := config.LoadState(dir)
	if err != nil {
		return err
	}
	a.state = state

	if settings.General.SafeMode {
		a.logger.Info("Running in safe mode with reduced performance")
	}

	a.metrics = metrics.New()
	if a.runtime.MetricsAddr != "" {
		srv, err := a.metrics.Serve(a.runtime.MetricsAddr, a.logger)
		if err != nil {
			a.logger.Warn("Metrics endpoint disabled", zap.Error(err))
		} else {
			a.metricsSrv = srv
		}
	}

	// Initialize native capture module
	exeDir, err := executableDir()
	if err != nil {
		return err
	}
	tesseract, detection := a.runtime.ModelPaths(exeDir)
	a.logger.Info("Loading native screen module",
		zap.String("dll", a.runtime.NativeDLL),
		zap.String("tesseract", tesseract),
		zap.String("detection", detection),
	)
	a.native = native.New(native.NewPlatformModule(a.runtime.NativeDLL), a.logger)
	if err := a.native.Initialize(native.Options{
		TesseractPath:      tesseract,
		DetectionModelPath: detection,
		CaptureMode:        settings.General.CaptureMethod,
		GameTitle:          settings.Overlay.GameTitle,
	}); err != nil {
		return err
	}

	// Overlay window and UI bridge
	shell := overlay.NewShell(ctx)
	a.window = overlay.NewWindow(shell, a.logger)
	a.emitter = overlay.NewEmitter(shell, a.logger)

	// Window state tracker
	a.tracker = tracker.New(a.native, a.window, a.emitter, tracker.Options{
		AllowedTitles: settings.Overlay.AllowedTitles,
		Debug:         a.runtime.Debug,
	}, a.metrics, a.logger)
	a.tracker.Start(a.driver(ctx, settings))

	// Capture orchestration
	opts := pricecheck.DefaultOptions(a.runtime.API())
	opts.Version = config.Version
	opts.InstallID = state.InstallID
	opts.CacheSize = settings.Lookup.CacheSize
	opts.CacheTTL = settings.Lookup.CacheTTL.Std()
	opts.RateLimit = settings.Lookup.RateLimit
	a.lookup = pricecheck.New(opts, a.metrics, a.logger)

	a.scanner = scan.New(a.native, a.lookup, a.tracker, a.emitter, a.metrics, a.logger)
	a.auto = scan.NewAutoScanner(a.scanner, a.emitter, scan.ParseMode(settings.General.DefaultMode), settings.Scan.AutoInterval.Std(), a.logger)
	a.auto.Start()

	a.hotkeys = hotkey.NewListener(a.logger)
	if err := a.registerHotkeys(settings.Hotkeys); err != nil {
		// The overlay still works through the UI without hotkeys.
		a.logger.Error("Failed to register hotkeys", zap.Error(err))
	}

	a.logger.Info("GrimVault started",
		zap.String("version", config.Version),
		zap.String("api", a.runtime.API()),
		zap.Bool("debug", a.runtime.Debug),
	)
	return nil
}

// driver picks the tick source for the tracker. Event hooks fall back to
// polling when they cannot be installed.
func (a *App) driver(ctx context.Context, settings *config.Settings) tracker.Driver {
	poll := tracker.PollDriver{Interval: settings.Tracker.Interval.Std()}
	if settings.Tracker.Strategy != config.StrategyEvent {
		return poll
	}

	events, err := platform.HookWindowEvents(ctx, a.logger)
	if err != nil {
		a.logger.Warn("Window events unavailable, polling instead", zap.Error(err))
		return poll
	}
	a.events = events
	return tracker.EventDriver{
		Foreground: events.Foreground,
		MoveSize:   events.MoveSize,
		Fallback:   4 * poll.Interval,
	}
}

func (a *App) registerHotkeys(keys config.HotkeySettings) error {
	toggle, err := hotkey.Parse(keys.ToggleMode)
	if err != nil {
		return fmt.Errorf("toggle_mode: %w", err)
	}
	check, err := hotkey.Parse(keys.RunPriceCheck)
	if err != nil {
		return fmt.Errorf("run_price_check: %w", err)
	}

	if err := a.hotkeys.Register(toggle, func() { a.auto.Toggle() }); err != nil {
		return err
	}
	if err := a.hotkeys.Register(check, func() { a.runScan(scan.TriggerHotkey) }); err != nil {
		return err
	}
	return a.hotkeys.Start()
}

// fatal reports a startup failure and exits. A missing VC++ runtime gets a
// dialog since there is no log the player is likely to read.
func (a *App) fatal(err error) {
	a.logger.Error("Startup failed", zap.Error(err))

	if errors.Is(err, platform.ErrRedistMissing) {
		runtime.MessageDialog(a.ctx, runtime.MessageDialogOptions{
			Type:    runtime.ErrorDialog,
			Title:   config.AppName,
			Message: fmt.Sprintf("GrimVault requires the Microsoft Visual C++ Redistributable (x64).\n\nDownload it from %s and start GrimVault again.", platform.RedistURL),
		})
	}

	_ = a.logger.Sync()
	os.Exit(1)
}

// OnShutdown is called when the app is shutting down
func (a *App) OnShutdown(ctx context.Context) {
	if a.hotkeys != nil {
		a.hotkeys.Stop()
	}
	if a.auto != nil {
		a.auto.Stop()
	}
	if a.tracker != nil {
		a.tracker.Stop()
	}
	a.events.Close()
	if a.window != nil {
		a.window.Release()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := a.metricsSrv.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("Metrics server shutdown failed", zap.Error(err))
	}

	if a.lookup != nil {
		stats := a.lookup.CacheStats()
		a.logger.Info("Price check cache",
			zap.Int("size", stats.Size),
			zap.Int("max_size", stats.MaxSize),
			zap.Duration("ttl", stats.TTL),
		)
	}

	a.logger.Info("GrimVault stopped")
	_ = a.logger.Sync()
}

// Scan runs a price check requested by the UI and returns its outcome.
func (a *App) Scan() string {
	return string(a.runScan(scan.TriggerRequest))
}

func (a *App) runScan(trigger scan.Trigger) scan.Outcome {
	if a.scanner == nil {
		return scan.OutcomeRejected
	}
	outcome, err := a.scanner.Run(trigger)
	if err != nil {
		a.logger.Debug("Scan not started",
			zap.String("trigger", string(trigger)),
			zap.String("outcome", string(outcome)),
			zap.Error(err),
		)
	}
	return outcome
}

// Log writes a UI shell log line under the frontend logger.
func (a *App) Log(level, message string, meta map[string]any) {
	logger := a.logger.Named("frontend")
	if ce := logger.Check(logging.ParseLevel(level), message); ce != nil {
		ce.Write(logging.Fields(meta)...)
	}
}

// Ready is called by the UI shell once its listeners are attached. It pushes
// the current settings and mode, and replays the last game bounds so a
// reloaded UI lines up with the game immediately.
func (a *App) Ready() {
	a.logger.Info("Received frontend ready state")

	if a.emitter == nil {
		return
	}
	a.emitter.Emit(eventSettings, a.config.Get())
	a.emitter.Emit(scan.EventMode, a.auto.Mode())
	if bounds, ok := a.emitter.Last(tracker.EventGameBounds); ok {
		a.emitter.Emit(tracker.EventGameBounds, bounds)
	}
}

func executableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to locate executable: %w", err)
	}
	return filepath.Dir(exe), nil
}

func main() {
	rt, err := config.LoadRuntime()
	if err != nil {
		fmt.Printf("Failed to load runtime config: %v\n", err)
		os.Exit(1)
	}

	logDir := ""
	if dir, err := config.DefaultDir(); err == nil {
		logDir = rt.LogPath(dir)
	}
	logCfg := logging.DefaultConfig(logDir)
	logCfg.Level = rt.LogLevel
	logCfg.Debug = rt.Debug
	logger, err := logging.New(logCfg)
	if err != nil {
		fmt.Printf("Failed to initialize logging: %v\n", err)
		os.Exit(1)
	}

	// Create an instance of the app structure
	app := NewApp(rt, logger)

	// Create application with options
	err = wails.Run(&options.App{
		Title:  overlay.Title,
		Width:  1280,
		Height: 720,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		Frameless:        true,
		AlwaysOnTop:      true,
		StartHidden:      true,
		BackgroundColour: &options.RGBA{R: 0, G: 0, B: 0, A: 0}, // Transparent
		Windows: &wailswindows.Options{
			WebviewIsTransparent: true,
			WindowIsTranslucent:  true,
		},
		SingleInstanceLock: &options.SingleInstanceLock{
			UniqueId: "2f6c4f3e-9a54-4b8e-8f0e-4d1f3c2a7b91",
			OnSecondInstanceLaunch: func(options.SecondInstanceData) {
				logger.Info("Prevented second instance from spawning")
			},
		},
		OnStartup:  app.OnStartup,
		OnShutdown: app.OnShutdown,
		Bind:       []interface{}{app},
	})

	if err != nil {
		logger.Error("Error starting application", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}
