package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mariakisialiova/itechart-quiz/internal/config"
	"github.com/mariakisialiova/itechart-quiz/internal/container"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if portFlag != "" {
		cfg.Server.Port = portFlag
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := container.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := container.AutoMigrate(config.DB); err != nil {
		return err
	}

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           c.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       config.Duration(cfg.Server.ReadTimeout, 15*time.Second),
		WriteTimeout:      config.Duration(cfg.Server.WriteTimeout, 15*time.Second),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		config.Logger.Infof("quiz server listening on :%s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		config.Logger.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
