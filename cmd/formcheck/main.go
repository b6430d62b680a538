package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ayusman/formcheck/internal/app"
	"github.com/ayusman/formcheck/internal/capture"
	"github.com/ayusman/formcheck/internal/config"
	"github.com/ayusman/formcheck/internal/detector"
	"github.com/ayusman/formcheck/internal/exercise"
	"github.com/ayusman/formcheck/internal/feedback"
	"github.com/ayusman/formcheck/internal/logging"
	"github.com/ayusman/formcheck/internal/metrics"
	"github.com/ayusman/formcheck/internal/plugin"
	"github.com/ayusman/formcheck/internal/server"
	"github.com/ayusman/formcheck/internal/session"
	"github.com/ayusman/formcheck/internal/store"
	"github.com/ayusman/formcheck/internal/tray"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "path to the TOML configuration file")
	noCamera := flag.Bool("no-camera", false, "serve the API without the local camera pipeline")
	noTray := flag.Bool("no-tray", false, "do not show the system tray menu")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}
	if *noCamera {
		cfg.Pipeline.Camera = false
	}
	if *noTray || !cfg.Pipeline.Camera {
		cfg.Pipeline.Tray = false
	}

	logs := logging.Setup(cfg.Logging)
	defer logs.Close()

	log.Info("formcheck - squat and deadlift form coach")
	if err := run(cfg); err != nil {
		log.WithError(err).Error("formcheck stopped")
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	st, err := store.New(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	mm := metrics.NewManager("formcheck", "", registry)

	pool, err := newDetectorPool(cfg.Detector)
	if err != nil {
		return err
	}
	pool.Instrument(mm)
	defer pool.Close()

	catalog := feedback.Default()
	sessions := session.NewManager(cfg.Exercise(), catalog, mm)

	if err := os.MkdirAll(cfg.Plugins.Dir, 0o755); err != nil {
		return fmt.Errorf("create plugin directory: %w", err)
	}
	plugins := plugin.NewManager(cfg.Plugins.Dir)
	if err := plugins.Discover(); err != nil {
		log.WithError(err).Warn("plugin discovery failed")
	}
	log.WithField("count", len(plugins.List())).Info("plugins loaded")

	dispatcher := plugin.NewDispatcher(plugins, plugin.NewExecutor(cfg.Plugins.Timeout), st.Actions(), plugin.DispatcherConfig{
		Cooldown: cfg.Pipeline.AnnounceCooldown,
		Metrics:  mm,
	})
	defer dispatcher.Wait()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessions.Subscribe(func(id string, res exercise.Result) {
		dispatcher.Notify(ctx, id, res)
	})

	preview := server.NewPreview()
	defer preview.Close()

	application := app.New(app.Config{
		Pipeline:   cfg.Pipeline,
		Thresholds: cfg.Exercise(),
		Camera:     capture.NewCamera(cfg.Pipeline.CameraID),
		Detector:   pool,
		Sessions:   sessions,
		Store:      st,
		Preview:    preview,
		Metrics:    mm,
	})
	defer application.Close()
	if err := application.Load(); err != nil {
		return err
	}

	var menu *tray.Tray
	if cfg.Pipeline.Tray {
		menu = tray.New(application.Enabled(), application.Exercise())
	}

	staticDir := cfg.Server.StaticDir
	if staticDir == "" {
		staticDir = findWebDir()
	}
	if staticDir != "" {
		log.WithField("dir", staticDir).Info("serving static files")
	}

	srv := server.New(server.Config{
		StaticDir: staticDir,
		Store:     st,
		Sessions:  sessions,
		Plugins:   plugins,
		Detector:  pool,
		Scoring:   cfg.Scoring,
		Catalog:   catalog,
		Metrics:   mm,
		Gatherer:  registry,
		Preview:   preview,
		OnProfilesChanged: func() {
			if err := application.ApplyProfiles(); err != nil {
				log.WithError(err).Error("failed to apply tuning profiles")
			}
		},
		OnSettingChanged: func(key, value string) {
			application.ApplySetting(key, value)
			if menu != nil {
				menu.SetEnabled(application.Enabled())
				menu.SetExercise(application.Exercise())
			}
		},
		OnSessionClosed: dispatcher.Forget,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(cfg.Server.Addr)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		pruneSessions(gctx, sessions, cfg.Server.SessionIdle)
		return nil
	})
	if cfg.Pipeline.Camera {
		g.Go(func() error {
			if err := application.Run(gctx); err != nil {
				log.WithError(err).Error("camera pipeline unavailable, serving the API only")
			}
			return nil
		})
	}

	if menu != nil {
		runTray(gctx, stop, menu, application, sessions, uiURL(cfg.Server.Addr))
	}

	return g.Wait()
}

// newDetectorPool starts the MediaPipe workers, falling back to a detector
// that never sees anyone when the pose service is not installed.
func newDetectorPool(cfg detector.Config) (*detector.Pool, error) {
	if _, err := detector.NewMediaPipeDetector(cfg); err != nil {
		log.WithError(err).Warn("MediaPipe not available, using mock detector")
		return detector.NewPool(func() (detector.Detector, error) {
			return detector.NewMockDetector(), nil
		}, 1)
	}

	pool, err := detector.NewPool(func() (detector.Detector, error) {
		return detector.NewMediaPipeDetector(cfg)
	}, cfg.Workers)
	if err != nil {
		return nil, fmt.Errorf("start pose detectors: %w", err)
	}
	log.WithField("workers", pool.Size()).Info("using MediaPipe pose detection")
	return pool, nil
}

// pruneSessions closes remote sessions that stopped sending frames.
func pruneSessions(ctx context.Context, sessions *session.Manager, idle time.Duration) {
	if idle <= 0 {
		return
	}
	ticker := time.NewTicker(idle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sessions.Prune(idle)
		}
	}
}

// runTray shows the tray menu on the calling goroutine until ctx is done or
// the user quits.
func runTray(ctx context.Context, quit func(), menu *tray.Tray, application *app.App, sessions *session.Manager, url string) {
	menu.OnToggle(func(enabled bool) {
		if err := application.Save(store.SettingEnabled, strconv.FormatBool(enabled)); err != nil {
			log.WithError(err).Error("failed to save tracking state")
		}
	})
	menu.OnExercise(func(kind exercise.Kind) {
		if err := application.Save(store.SettingExercise, string(kind)); err != nil {
			log.WithError(err).Error("failed to switch exercise")
		}
	})
	menu.OnSettings(func() {
		if err := openBrowser(url); err != nil {
			log.WithError(err).WithField("url", url).Warn("failed to open browser")
		}
	})
	menu.OnQuit(quit)

	sessions.Subscribe(func(id string, res exercise.Result) {
		if id == app.LiveSession {
			menu.SetResult(res)
		}
	})

	go func() {
		<-ctx.Done()
		menu.Quit()
	}()
	menu.Run()
}

func uiURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr + "/"
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.formcheck/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeWebDir := filepath.Join(config.DataDir(), "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
