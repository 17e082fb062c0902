package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	httpRouter "currency-converter/internal/adapter/http"
	"currency-converter/internal/adapter/provider"
	"currency-converter/internal/config"
	"currency-converter/internal/domain/model"
	"currency-converter/internal/scheduler"
	"currency-converter/pkg/logger"
)

func newRootCommand() *cobra.Command {
	var envFiles []string

	rootCmd := &cobra.Command{
		Use:           "currency-converter",
		Short:         "Country to country currency conversion service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "Path to a .env file (default ./.env)")

	load := func() (*config.Config, *logger.Logger, error) {
		cfg, err := config.LoadConfig(envFiles...)
		if err != nil {
			return nil, nil, err
		}
		log := logger.New(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
		return cfg, log, nil
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := load()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), newApplication(cfg, log))
		},
	}

	rootCmd.AddCommand(serveCmd, newConvertCommand(load))
	rootCmd.RunE = serveCmd.RunE

	return rootCmd
}

func newConvertCommand(load func() (*config.Config, *logger.Logger, error)) *cobra.Command {
	var request model.ConversionRequest

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert an amount between two countries' currencies and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := load()
			if err != nil {
				return err
			}
			app := newApplication(cfg, log)

			if request.ClientID == "" {
				request.ClientID = "cli"
			}
			result, err := app.service.Convert(cmd.Context(), request)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}

	cmd.Flags().StringVar(&request.From, "from", "", "Source country name")
	cmd.Flags().StringVar(&request.To, "to", "", "Target country name")
	cmd.Flags().Float64Var(&request.Amount, "amount", 0, "Amount in the source currency")
	cmd.Flags().StringVar(&request.PreferredCurrency, "preferred", "", "Preferred currency code for multi-currency countries")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func serve(ctx context.Context, app *application) error {
	cfg, log := app.cfg, app.log
	log.Info("Starting currency converter service")

	handler := httpRouter.NewHandler(app.service, log, app.metrics, provider.ExchangeRateAPIName)
	router := httpRouter.NewRouter(handler, log, app.metrics, app.registry, cfg.CORS.AllowedOrigins)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router.SetupRoutes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	jobs := scheduler.New(log)
	sweep := scheduler.NewJob("cache-sweep", func() error {
		app.service.Sweep()
		return nil
	})
	if err := jobs.AddJob(cfg.Scheduler.SweepSchedule, sweep); err != nil {
		return model.ConfigError("invalid sweep schedule", err)
	}
	jobs.Start()
	defer jobs.Stop()

	serverErr := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-serverErr:
		log.Error("HTTP server error", "error", err)
		return err
	case <-ctx.Done():
	}
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
		return err
	}

	log.Info("Server exited")
	return nil
}
