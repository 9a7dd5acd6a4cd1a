package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/gops/agent"
	"github.com/skratchdot/open-golang/open"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/arclightning/arclight/api"
	"github.com/arclightning/arclight/api/handler"
	"github.com/arclightning/arclight/config"
	"github.com/arclightning/arclight/history"
	"github.com/arclightning/arclight/launcher"
	"github.com/arclightning/arclight/metrics"
	"github.com/arclightning/arclight/session"
)

var (
	version = "head" // set at build time with -ldflags "-X main.version=..."
	app     = kingpin.New("arclight", "Local control panel for launching games")

	serveCmd    = app.Command("serve", "Serve the panel").Default()
	passwordCmd = app.Command("set-password", "Set the panel password in the config file")
	gamesCmd    = app.Command("games", "List the configured games")
)

var serveArgs = struct {
	open *bool
}{
	serveCmd.Flag("open", "Open the panel in a browser once it is listening").Bool(),
}

var gamesArgs = struct {
	id *string
}{
	gamesCmd.Arg("id", "Show a single game").String(),
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	app.HelpFlag.Short('h')
	app.Version(version)
	app.VersionFlag.Short('V')

	cmd, err := app.Parse(os.Args[1:])
	cmd = kingpin.MustParse(cmd, err)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	switch cmd {
	case serveCmd.FullCommand():
		err = serve(cfg, *serveArgs.open)
	case passwordCmd.FullCommand():
		err = setPassword(cfg, os.Stdin, os.Stdout)
	case gamesCmd.FullCommand():
		err = listGames(cfg, *gamesArgs.id, os.Stdout)
	}
	if err != nil {
		slog.Error(cmd+" failed", "error", err)
		os.Exit(1)
	}
}

func serve(cfg config.Config, openBrowser bool) error {
	file, err := config.LoadFile(cfg.ConfigFile)
	if err != nil {
		return err
	}
	if file.Password == "" {
		slog.Warn("no password configured, every login will fail; run `arclight set-password`")
	}

	if cfg.GopsAgent {
		if err := agent.Listen(agent.Options{ShutdownCleanup: true}); err != nil {
			slog.Warn("could not start gops agent", "error", err)
		}
	}

	ctx := context.Background()
	cat := file.Catalog()
	sessions := session.NewStore(cfg.SessionTTL)

	var launches *history.Store
	if cfg.HistoryDB != "" {
		launches, err = history.Open(ctx, cfg.HistoryDB)
		if err != nil {
			return err
		}
		defer func() { _ = launches.Close() }()
	}

	hub := handler.NewEventHub()
	h, stopRouter := api.NewRouter(api.Deps{
		Config:   cfg,
		File:     file,
		Catalog:  cat,
		Sessions: sessions,
		Launcher: launcher.New(cat),
		History:  launches,
		Hub:      hub,
	})

	// Start periodic session cleanup.
	sessionCleaner := session.NewCleaner(sessions, session.DefaultCleanInterval)
	sessionCleaner.Start(ctx)

	addr := file.Addr(cfg.ListenHost)
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MiB
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		stopRouter()
		sessionCleaner.Stop()
		return err
	}

	go func() {
		slog.Info("panel listening", "addr", addr, "games", cat.Len(), "session_ttl", cfg.SessionTTL)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	var metricsSrv *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		metricsSrv = &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
		go func() {
			slog.Info("metrics listening", "addr", cfg.MetricsAddr)
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server error", "error", err)
			}
		}()
	}

	if openBrowser {
		url := "http://" + ln.Addr().String() + "/"
		if err := open.Start(url); err != nil {
			slog.Warn("could not open browser", "url", url, "error", err)
		}
	}

	// Wait for interrupt or SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server...")

	hub.Shutdown()
	stopRouter()
	sessionCleaner.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	slog.Info("server stopped")
	return nil
}
