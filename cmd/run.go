package cmd

import (
	"context"
	"fmt"
	"time"

	"prizepool/application"
	"prizepool/config"
	"prizepool/database"
	"prizepool/domain/entities"
	"prizepool/domain/events"
	"prizepool/domain/services"
	"prizepool/domain/timelock"
	"prizepool/infrastructure"
	"prizepool/repository"

	log "github.com/sirupsen/logrus"
)

// Run initializes and starts the pool service
func Run(ctx context.Context) error {
	log.Info("Starting prize pool service...")

	cfg := config.Get()

	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	log.Info("Database connection established")

	log.WithField("servers", cfg.NATSServers).Info("Connecting to NATS...")
	natsClient := infrastructure.NewNATSClient(cfg.NATSServers)
	if err := natsClient.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	defer natsClient.Close()

	eventPublisher := infrastructure.NewNATSEventPublisher(natsClient, infrastructure.NewEventSubjectMapper())
	if err := eventPublisher.EnsurePoolEventStream(); err != nil {
		return fmt.Errorf("failed to ensure event stream: %w", err)
	}
	eventPublisher.RegisterLocalHandler(events.EventTypeDrawRewarded, func(_ context.Context, e events.Event) error {
		if rewarded, ok := e.(events.DrawRewardedEvent); ok {
			log.WithFields(log.Fields{
				"drawId":      rewarded.DrawID,
				"winner":      rewarded.Winner,
				"netWinnings": rewarded.NetWinnings,
				"fee":         rewarded.Fee,
				"rolledOver":  rewarded.RolledOver,
			}).Info("Draw rewarded")
		}
		return nil
	})

	ticker, err := infrastructure.NewBlockTicker(cfg.BlockInterval)
	if err != nil {
		return fmt.Errorf("failed to create block ticker: %w", err)
	}

	entropySource, err := infrastructure.NewCommitRevealEntropySource(ticker, cfg.EntropyCycleBlocks)
	if err != nil {
		return fmt.Errorf("failed to create entropy source: %w", err)
	}

	vault := infrastructure.NewCustodialVault()

	guard, err := timelock.New(cfg.LockDurationBlocks, cfg.CooldownDurationBlocks)
	if err != nil {
		return fmt.Errorf("failed to create time-lock guard: %w", err)
	}
	log.WithFields(log.Fields{
		"lockBlocks":     guard.LockDuration(),
		"cooldownBlocks": guard.CooldownDuration(),
	}).Info("Time-lock guard configured")

	ledger, err := services.NewDrawLedger(guard, cfg.FeeFraction, cfg.FeeBeneficiary)
	if err != nil {
		return fmt.Errorf("failed to create draw ledger: %w", err)
	}

	poolService, err := services.NewPoolService(
		ledger,
		entities.NewAccessPolicy(cfg.AdminIDs),
		entropySource,
		vault,
		vault,
		ticker,
		nil,
		repository.NewDrawRepository(db),
		repository.NewBalanceHistoryRepository(db),
		eventPublisher,
	)
	if err != nil {
		return fmt.Errorf("failed to create pool service: %w", err)
	}

	if len(cfg.AdminIDs) == 0 {
		return fmt.Errorf("no admin accounts configured to operate the draw lifecycle")
	}
	worker := application.NewDrawWorker(poolService, cfg.AdminIDs[0], cfg.DrawPeriod, cfg.BlockInterval)
	stopWorker := worker.Start(ctx)

	log.WithField("environment", cfg.Environment).Info("Prize pool service is running")
	<-ctx.Done()

	log.Info("Shutting down prize pool service...")
	stopWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	select {
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout exceeded")
	case <-time.After(1 * time.Second):
		log.Info("Shutdown completed")
	}

	return nil
}
