package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ArowuTest/etherlotto-backend/api/routes"
	"github.com/ArowuTest/etherlotto-backend/internal/config"
	"github.com/ArowuTest/etherlotto-backend/internal/handlers"
	"github.com/ArowuTest/etherlotto-backend/internal/models"
	"github.com/ArowuTest/etherlotto-backend/internal/repositories/memory"
	mongorepo "github.com/ArowuTest/etherlotto-backend/internal/repositories/mongodb"
	"github.com/ArowuTest/etherlotto-backend/internal/services"
	tokens "github.com/ArowuTest/etherlotto-backend/pkg/jwt"
	"github.com/ArowuTest/etherlotto-backend/pkg/mongodb"
	"github.com/ArowuTest/etherlotto-backend/pkg/randomness"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/exp/slog"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the lottery and its HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	deps, cleanup, err := buildDependencies(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	fee, err := cfg.EntryFeeWei()
	if err != nil {
		return err
	}
	svc, err := services.NewLotteryService(ctx, services.Settings{
		Variant:  models.Variant(cfg.Lottery.Variant),
		EntryFee: fee,
		Operator: models.Identity(cfg.Lottery.Operator),
	}, deps)
	if err != nil {
		return fmt.Errorf("failed to start lottery: %w", err)
	}

	verifier, err := tokens.NewIdentityTokenService(cfg.JWT.Secret, cfg.TokenTTL())
	if err != nil {
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	router := routes.SetupRouter(cfg, routes.HandlerDependencies{
		LotteryHandler: handlers.NewLotteryHandler(svc),
		TokenVerifier:  verifier,
	})
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server starting", "port", cfg.Server.Port, "variant", cfg.Lottery.Variant, "entryFee", cfg.Lottery.EntryFee, "store", cfg.Store)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	slog.Info("Server exiting")
	return nil
}

// buildDependencies opens the configured store and randomness source
func buildDependencies(ctx context.Context, cfg *config.Config) (services.Dependencies, func(), error) {
	source, err := buildSource(cfg.Lottery.Randomness)
	if err != nil {
		return services.Dependencies{}, nil, err
	}

	if cfg.Store == config.StoreMemory {
		slog.Warn("Using in-memory store; state is lost on restart")
		return services.Dependencies{
			Rounds:    memory.NewRoundRepository(),
			Policies:  memory.NewAccessPolicyRepository(),
			Receipts:  memory.NewReceiptRepository(),
			Rollovers: memory.NewRolloverRepository(),
			Ledger:    memory.NewLedgerRepository(),
			Source:    source,
		}, func() {}, nil
	}

	client, err := mongodb.NewClient(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
	if err != nil {
		return services.Dependencies{}, nil, err
	}
	cleanup := func() {
		dctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := client.Disconnect(dctx); err != nil {
			slog.Error("Error disconnecting from MongoDB", "error", err)
		}
	}
	db := client.Database(cfg.MongoDB.Database)
	return services.Dependencies{
		Rounds:    mongorepo.NewRoundRepository(db),
		Policies:  mongorepo.NewAccessPolicyRepository(db),
		Receipts:  mongorepo.NewReceiptRepository(db),
		Rollovers: mongorepo.NewRolloverRepository(db),
		Ledger:    mongorepo.NewLedgerRepository(db),
		Source:    source,
	}, cleanup, nil
}

func buildSource(rc config.RandomnessConfig) (randomness.Source, error) {
	var inner randomness.Source
	switch rc.Source {
	case config.SourceHashChain:
		hc, err := randomness.NewHashChainSourceHex(rc.Seed)
		if err != nil {
			return nil, err
		}
		slog.Info("Hash-chain randomness enabled", "commitment", hc.Commitment())
		inner = hc
	default:
		inner = randomness.NewCryptoSource()
	}
	return randomness.NewBounded(inner, rc.Timeout, rc.Retries), nil
}
