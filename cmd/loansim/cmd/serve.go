package cmd

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
	"go.uber.org/zap"

	"github.com/rustyeddy/loansim/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Start the HTTP API on server.addr.

Endpoints:
  GET|POST /api/simulations
  GET      /api/tables/price, /api/tables/sac
  GET      /api/products/find
  GET      /api/storage/simulations, /api/storage/volume, /api/storage/telemetry
  GET      /health/db

Example:
  loansim serve --config loansim.yaml`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	read, write, shutdown, err := a.cfg.Server.Timeouts()
	if err != nil {
		return err
	}
	if shutdown == 0 {
		shutdown = 10 * time.Second
	}

	gin.SetMode(gin.ReleaseMode)
	srv := server.New(server.Deps{
		Simulations: a.sim,
		Journal:     a.store,
		Telemetry:   a.telemetry,
		Sink:        a.queue,
		Log:         a.log,
	})

	httpServer := &http.Server{
		Addr:         a.cfg.Server.Addr,
		Handler:      srv.Handler(),
		ReadTimeout:  read,
		WriteTimeout: write,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		a.log.Info("listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-serverErr:
		return err
	case sig := <-quit:
		a.log.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdown)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		a.log.Error("shutdown", zap.Error(err))
		return err
	}
	a.log.Info("server exited")
	return nil
}
