package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"zubi/database"
	"zubi/internal/config"
	"zubi/internal/controllers"
	"zubi/internal/middleware"
	"zubi/internal/services"
	"zubi/routes"
)

func newServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			if port != 0 {
				cfg.Port = port
			}

			a, err := newApp(cmd.Context(), cfg, log, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			return serve(cmd.Context(), a)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides ZUBI_PORT)")
	return cmd
}

func serve(ctx context.Context, a *app) error {
	cfg, log := a.cfg, a.log

	worker := services.NewReplyWorker(a.chat, cfg.WorkerCount, cfg.QueueSize, log)
	worker.Start()

	webhookController := controllers.NewWebhookController(worker, a.chat, log)
	conversationController := controllers.NewConversationController(a.repo, a.store, log)
	healthController := controllers.NewHealthController(worker, a.checks)

	if cfg.Environment == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(log))

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Zubi API",
			"version": "1.0",
			"docs":    "/swagger/index.html",
		})
	})

	routes.RegisterWebhookRoutes(router, webhookController)
	routes.RegisterConversationRoutes(router, conversationController, cfg.JWTSecret)
	routes.RegisterHealthRoutes(router, healthController)
	routes.RegisterSwaggerRoutes(router, fmt.Sprintf("localhost:%d", cfg.Port))

	if cfg.JWTSecret == "" {
		log.Warn().Msg("ZUBI_JWT_SECRET is empty, conversation admin routes are disabled")
	}

	handler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}).Handler(router)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	if a.db != nil {
		database.MonitorConnections(a.db, log, gctx.Done())
	}

	g.Go(func() error {
		log.Info().Int("port", cfg.Port).Msg("Starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		err := server.Shutdown(shutdownCtx)
		worker.Stop()
		if err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		log.Info().Msg("Server exited")
		return nil
	})

	return g.Wait()
}
