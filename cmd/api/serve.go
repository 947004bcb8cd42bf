package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "appraisal-backend/api/swagger" // swagger docs
	"appraisal-backend/internal/config"
	"appraisal-backend/internal/database"
	"appraisal-backend/internal/handler"
	"appraisal-backend/internal/middleware"
	"appraisal-backend/internal/service"
	"appraisal-backend/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and websocket hub",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})))
			gin.SetMode(cfg.GinMode)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "run AutoMigrate before serving")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, migrate bool) error {
	db, err := database.NewConnection(cfg.DB)
	if err != nil {
		return err
	}
	if migrate {
		if err := database.Migrate(db); err != nil {
			return err
		}
	}

	hub := websocket.NewHub()
	go hub.Run()
	defer hub.Stop()

	tokens := service.TokenIssuer{Secret: []byte(cfg.JWTSecret), TTL: cfg.TokenTTL}
	services := service.New(db, tokens, hub)

	router := handler.NewRouter(cfg.CORSOrigins, middleware.Authenticate(tokens, services.Accounts),
		handler.NewAccountHandler(services.Accounts),
		handler.NewDealerHandler(services.Dealers),
		handler.NewWholesalerHandler(services.Wholesalers),
		handler.NewAppraisalHandler(services.Appraisals),
		handler.NewOfferHandler(services.Offers),
		handler.NewNetworkHandler(services.Network),
		handler.NewReportHandler(services.Reports),
		handler.NewAuditHandler(services.Audits),
		handler.NewWSHandler(hub),
	)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server listening", slog.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}
