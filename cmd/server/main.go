package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	grpcadapter "github.com/simaogato/wealthflow-valuation/internal/adapter/grpc"
	"github.com/simaogato/wealthflow-valuation/internal/adapter/repository/memory"
	"github.com/simaogato/wealthflow-valuation/internal/adapter/repository/postgres"
	"github.com/simaogato/wealthflow-valuation/internal/config"
	"github.com/simaogato/wealthflow-valuation/internal/domain"
	"github.com/simaogato/wealthflow-valuation/internal/usecase/pricing"
	"github.com/simaogato/wealthflow-valuation/internal/usecase/seeder"
	"github.com/simaogato/wealthflow-valuation/internal/usecase/valuation"
)

// repositories groups the storage backends the server reads from
type repositories struct {
	accounts     domain.AccountRepository
	instruments  domain.InstrumentRepository
	transactions domain.TransactionRepository
	prices       domain.PriceRepository
	close        func() error
}

func main() {
	// 1. Load configuration
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if err := cfg.SetupLogging(); err != nil {
		log.Fatal().Err(err).Msg("failed to set up logging")
	}

	// 2. Initialize Repositories
	ctx := context.Background()
	repos, err := openRepositories(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("RepoKind", cfg.RepoKind).Msg("failed to open repositories")
	}
	defer repos.close()

	// Seed the base currencies
	currencySeeder := seeder.NewCurrencySeeder(repos.instruments, cfg.BaseCurrencies)
	if err := currencySeeder.Seed(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to seed base currencies")
	}
	log.Info().Strs("Currencies", cfg.BaseCurrencies).Msg("base currencies seeded")

	// 3. One valuation engine per display session
	sessions := grpcadapter.NewSessionStore(func() *valuation.Engine {
		return valuation.NewEngine(repos.accounts, repos.instruments, repos.transactions, pricing.NewResolver(repos.prices))
	})

	// 4. Start gRPC Server
	grpcServer := grpclib.NewServer(
		grpclib.ChainUnaryInterceptor(
			grpcadapter.LoggingInterceptor(),
			grpcadapter.AuthInterceptor(cfg.APIToken),
		),
	)
	grpcadapter.RegisterValuationServiceServer(grpcServer,
		grpcadapter.NewServer(sessions, repos.accounts, repos.instruments, repos.prices))
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatal().Err(err).Str("Addr", cfg.GRPCAddr).Msg("failed to listen")
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("Addr", cfg.GRPCAddr).Msg("gRPC server listening")
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatal().Err(err).Msg("failed to serve gRPC server")
		}
	}()

	// Graceful shutdown
	waitForShutdown(grpcServer)
}

func openRepositories(ctx context.Context, cfg *config.Config) (*repositories, error) {
	if cfg.RepoKind == config.RepoMemory {
		store := memory.NewStore()
		return &repositories{
			accounts:     memory.NewAccountRepository(store),
			instruments:  memory.NewInstrumentRepository(store),
			transactions: memory.NewTransactionRepository(store),
			prices:       memory.NewPriceRepository(store),
			close:        func() error { return nil },
		}, nil
	}

	// Add 2-second delay to ensure Postgres is up (Simple retry)
	time.Sleep(2 * time.Second)

	db, err := postgres.NewDB(cfg.ConnString())
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &repositories{
		accounts:     postgres.NewAccountRepository(db),
		instruments:  postgres.NewInstrumentRepository(db),
		transactions: postgres.NewTransactionRepository(db),
		prices:       postgres.NewPriceRepository(db),
		close:        db.Close,
	}, nil
}

// waitForShutdown waits for SIGTERM or SIGINT and gracefully shuts down the server
func waitForShutdown(grpcServer *grpclib.Server) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	log.Info().Str("Signal", sig.String()).Msg("shutting down gracefully")

	grpcServer.GracefulStop()
	log.Info().Msg("gRPC server stopped")
}
