// Package main is the entry point for pointerd, the pointer shell daemon.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/diamondburned/gotk4-adwaita/pkg/adw"
	"github.com/diamondburned/gotk4/pkg/glib/v2"

	"github.com/jmylchreest/pointer/internal/audio"
	"github.com/jmylchreest/pointer/internal/backend"
	"github.com/jmylchreest/pointer/internal/config"
	"github.com/jmylchreest/pointer/internal/daemon"
	"github.com/jmylchreest/pointer/internal/dbus"
	"github.com/jmylchreest/pointer/internal/display"
	"github.com/jmylchreest/pointer/internal/overlay"
	"github.com/jmylchreest/pointer/internal/settings"
	"github.com/jmylchreest/pointer/internal/tray"
)

const appID = "io.github.jmylchreest.pointerd"

var (
	// Build-time variables
	version = "dev"
)

func main() {
	configPath := flag.String("config", "", "Path to pointerd.toml (default: ~/.config/pointer/pointerd.toml)")
	logLevel := flag.String("log-level", "", "Log level override: debug, info, warn, error")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("pointerd version", version)
		os.Exit(0)
	}

	path := *configPath
	if path == "" {
		var err error
		path, err = config.DaemonConfigPath()
		if err != nil {
			fmt.Fprintln(os.Stderr, "failed to get config path:", err)
			os.Exit(1)
		}
	}

	cfg, err := config.LoadDaemonConfigFrom(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	levelName := cfg.Log.Level
	if *logLevel != "" {
		levelName = *logLevel
	}
	level, err := config.ParseLogLevel(levelName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	os.Exit(run(cfg, path, logger))
}

func run(cfg *config.DaemonConfig, configPath string, logger *slog.Logger) int {
	logger.Info("starting pointerd", "version", version, "config", configPath)

	app := adw.NewApplication(appID, 0)

	// Shared state between GTK main loop and signal handlers
	var (
		server        *dbus.ShellServer
		supervisor    *backend.Supervisor
		themeLoader   *display.ThemeLoader
		player        *audio.Player
		configWatcher *daemon.ConfigWatcher
		statusIcon    *tray.Tray
		running       atomic.Bool
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := func() {
		glib.IdleAdd(func() {
			app.Quit()
		})
	}

	// Set up signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)
		cancel()
		quit()
	}()

	app.ConnectActivate(func() {
		if running.Load() {
			logger.Debug("application already running")
			return
		}
		running.Store(true)

		// Theme
		themeLoader = display.NewThemeLoader(logger)
		themeLoader.LoadTheme(cfg.Overlay.Theme)
		themeLoader.Apply(nil)
		themeLoader.StartHotReload(ctx)

		// Overlay cue
		player = audio.NewPlayer(logger)
		cue := audio.NewCue(player, cfg.SoundPath(), cfg.Overlay.Volume, logger)
		go func() {
			if err := cue.Preload(); err != nil && !errors.Is(err, audio.ErrNoSound) {
				logger.Warn("failed to preload overlay sound", "error", err)
			}
		}()

		// Backend
		supervisor = backend.NewSupervisor(daemon.BackendOptionsFromConfig(cfg), logger)
		client := backend.NewClient(daemon.ClientOptionsFromConfig(cfg), logger)
		store := settings.NewStore(config.SettingsPath(), logger)

		// Overlay
		windowing := display.NewWindowing(&app.Application, logger)
		windowing.SetQueryTimeout(cfg.Backend.RequestTimeout.Duration())
		manager := overlay.NewManager(windowing, display.MainLoop{}, logger)
		manager.SetPlacer(daemon.PlacerFromConfig(cfg))
		manager.SetReadyTimeout(cfg.Overlay.ReadyTimeout.Duration())
		manager.SetEffects(display.CSSEffects{})
		manager.SetCue(cue)

		notifier := daemon.NewInternalNotifier(logger)
		shell := daemon.NewApp(daemon.Components{
			Overlay:  manager,
			Backend:  supervisor,
			Client:   client,
			Settings: store,
			Cue:      cue,
			Notifier: notifier,
		}, logger)
		shell.SetQuitFunc(quit)

		windowing.SetDismissHandler(func(win overlay.Window) {
			manager.HideWindow(win)
		})
		windowing.SetQueryHandler(func(ctx context.Context, query, mode string) (string, error) {
			resp, err := shell.ProcessQuery(ctx, query, mode, "")
			if err != nil {
				return "", err
			}
			return resp.Response, nil
		})

		// D-Bus
		server = dbus.NewShellServer(shell, logger)
		manager.SetShownCallback(func(s overlay.Shown) {
			if err := server.EmitOverlayShown(s.ID, string(s.Context), s.Rect.X, s.Rect.Y); err != nil {
				logger.Debug("failed to emit OverlayShown", "error", err)
			}
		})
		manager.SetHiddenCallback(func() {
			if err := server.EmitOverlayHidden(); err != nil {
				logger.Debug("failed to emit OverlayHidden", "error", err)
			}
		})
		if err := server.Start(); err != nil {
			logger.Error("failed to start D-Bus server", "error", err)
			app.Quit()
			return
		}

		notifier.SetNotifyHandler(func(n dbus.Notification) error {
			_, err := dbus.SendNotification(server.Connection(), n)
			return err
		})

		// Settings window keeps the application alive while hidden
		shell.SetSettingsWindow(display.NewSettingsWindow(&app.Application, shell, logger))

		statusIcon = tray.New(tray.Options{
			OnSettings: func() {
				if _, err := shell.ShowSettings(); err != nil {
					logger.Warn("failed to show settings", "error", err)
				}
			},
			OnQuit: func() {
				quitCtx, quitCancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer quitCancel()
				shell.Quit(quitCtx)
			},
		}, logger)
		statusIcon.Start()

		// Config hot reload
		configWatcher = daemon.NewConfigWatcher(configPath, logger)
		configWatcher.SetReloadCallback(func(newConfig *config.DaemonConfig) {
			glib.IdleAdd(func() {
				shell.ApplyConfig(newConfig)
				windowing.SetQueryTimeout(newConfig.Backend.RequestTimeout.Duration())
				if !strings.EqualFold(newConfig.Overlay.Theme, cfg.Overlay.Theme) {
					themeLoader.LoadTheme(newConfig.Overlay.Theme)
					themeLoader.StartHotReload(ctx)
					logger.Info("theme changed", "theme", themeLoader.CurrentTheme())
				}
				cfg = newConfig
				notifier.NotifyConfigReloaded()
			})
		})
		configWatcher.SetErrorCallback(notifier.NotifyConfigError)
		if err := configWatcher.Start(ctx, cfg); err != nil {
			logger.Warn("failed to start config watcher", "error", err)
		}

		if cfg.Backend.Autostart {
			supervisor.AutoStart(ctx, cfg.Backend.AutostartDelay.Duration())
		}

		logger.Info("pointerd ready", "dbus_interface", dbus.DBusInterface)
	})

	app.ConnectShutdown(func() {
		logger.Info("application shutting down")
		cancel()
		if statusIcon != nil {
			statusIcon.Stop()
		}
		if configWatcher != nil {
			configWatcher.Stop()
		}
		if themeLoader != nil {
			themeLoader.StopHotReload()
		}
		if supervisor != nil {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := supervisor.Stop(stopCtx); err != nil {
				logger.Warn("failed to stop backend", "error", err)
			}
			stopCancel()
		}
		if server != nil {
			_ = server.Stop()
		}
		if player != nil {
			player.Close()
		}
		running.Store(false)
	})

	// Stay resident without a visible window.
	app.Hold()

	status := app.Run(os.Args[:1])
	if status != 0 {
		logger.Error("application exited with error", "status", status)
		return status
	}

	logger.Info("pointerd stopped")
	return 0
}
