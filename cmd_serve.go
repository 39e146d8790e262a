package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"adbdeck/adb"
	"adbdeck/api"
	"adbdeck/config"
	"adbdeck/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and websocket service",
	Long: `Run the local HTTP API and websocket push channel.

Devices are scanned at start-up and again whenever the adb server reports
a device connecting or disconnecting. Device descriptions in the config
file are reloaded on change; other settings need a restart.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
			cfg.Listen = listen
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, newApp(cfg))
	},
}

func init() {
	serveCmd.Flags().String("listen", "", "listen address (overrides config)")
}

func serve(ctx context.Context, a *app) error {
	defer a.Close()
	log := a.log

	db, err := a.openDB()
	if err != nil {
		return err
	}

	hub := api.NewWebSocketHub(log)
	go hub.Run(ctx)

	devices := service.NewDeviceManager(a.client, a.registry, log)
	devices.SetBroadcaster(hub)
	go devices.Run(ctx)

	history := service.NewHistoryStore(db)
	jobs := service.NewJobs(a.dispatcher(), devices, history, a.locale(), log)
	enricher := service.NewEnricher(a.client, service.NewLabelCache(db), a.cfg.LabelWorkers, log)

	go func() {
		if _, err := devices.ScanDevices(ctx); err != nil {
			log.Warn().Err(err).Msg("initial device scan failed")
		}
	}()

	if a.cfg.WatchDevices {
		w, err := adb.NewWatcher(a.client.ADBPath, log)
		if err != nil {
			log.Warn().Err(err).Msg("device hot-plug watching disabled")
		} else {
			go devices.WatchDevices(ctx, w.Watch(ctx))
		}
	}

	if path := a.cfg.Path(); path != "" {
		go func() {
			err := config.Watch(ctx, path, log, func(c *config.Config) {
				a.registry.Replace(c.Devices)
				log.Info().Int("registered", a.registry.Len()).Msg("device registry reloaded")
			})
			if err != nil {
				log.Warn().Err(err).Msg("config watching disabled")
			}
		}()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	api.SetupRoutes(router, api.Deps{
		Devices:  devices,
		Jobs:     jobs,
		Client:   a.client,
		Enricher: enricher,
		History:  history,
		Hub:      hub,
		Context:  ctx,
		Log:      log,
	})

	srv := &http.Server{
		Addr:              a.cfg.Listen,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("shutdown")
		}
	}()

	log.Info().Str("addr", a.cfg.Listen).Str("adb", a.client.ADBPath).Str("scrcpy", a.client.ScrcpyPath).
		Int("registered", a.registry.Len()).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	jobs.Wait()
	log.Info().Msg("server stopped")
	return nil
}
