package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"relicpool/config"
	"relicpool/core/events"
	"relicpool/core/types"
	"relicpool/factory"
	"relicpool/gateway"
	"relicpool/native/staking"
	"relicpool/observability/logging"
	"relicpool/observability/metrics"
	"relicpool/state/pool"
	"relicpool/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("RELICPOOL_ENV"))
	logger := logging.Setup("relicpoold", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	db, err := openDatabase(cfg)
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	deployer, err := types.ParseAddress(cfg.Deployer)
	if err != nil {
		logger.Error("Invalid deployer address", slog.Any("error", err))
		os.Exit(1)
	}

	eventLog := gateway.NewEventLog(1024)
	emitter := events.MultiEmitter{metrics.NewEventEmitter(nil), eventLog}

	f := factory.New(deployer, db)
	f.SetEmitter(emitter)

	custodian := pool.NewLedgerCustodian(db)
	if err := provisionPools(logger, cfg, f, custodian); err != nil {
		logger.Error("Failed to provision pools", slog.Any("error", err))
		os.Exit(1)
	}

	handler := gateway.New(gateway.Config{
		Factory:  f,
		EventLog: eventLog,
		Logger:   logger,
	})
	server := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("Gateway listening", slog.String("address", cfg.ListenAddress))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Gateway stopped", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown failed", slog.Any("error", err))
	}
	logger.Info("Shutdown complete")
}

func openDatabase(cfg *config.Config) (storage.Database, error) {
	switch cfg.Backend {
	case config.BackendLevelDB:
		return storage.NewLevelDB(filepath.Join(cfg.DataDir, "state"))
	case config.BackendBolt:
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, err
		}
		return storage.NewBoltDB(filepath.Join(cfg.DataDir, "state.db"))
	case config.BackendMemory:
		return storage.NewMemDB(), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

// provisionPools creates the configured pools that do not exist yet and
// rehydrates the ones that survived a restart.
func provisionPools(logger *slog.Logger, cfg *config.Config, f *factory.Factory, custodian staking.Custodian) error {
	oracles := make(map[[20]byte]staking.ScoreOracle, len(cfg.Pools))
	for i := range cfg.Pools {
		entry := &cfg.Pools[i]
		spec, oracle, err := buildSpec(entry, custodian)
		if err != nil {
			return fmt.Errorf("pool %d: %w", i, err)
		}
		addr := factory.PoolAddress(f.Deployer(), spec.RewardToken, spec.Collection, spec.Salt)
		oracles[addr] = oracle

		engine, err := f.CreatePool(spec)
		if errors.Is(err, factory.ErrPoolExists) {
			continue
		}
		if err != nil {
			return fmt.Errorf("pool %d: %w", i, err)
		}
		logger.Info("Pool provisioned", slog.String("pool", types.FormatAddress(engine.PoolAddress())))
	}
	return f.Rehydrate(custodian, func(addr [20]byte) staking.ScoreOracle {
		if oracle, ok := oracles[addr]; ok {
			return oracle
		}
		// Pools present in storage but absent from the config keep running
		// with an empty score table; deposits will be rejected until the
		// config catches up.
		return staking.NewStaticOracle(nil)
	})
}

func buildSpec(entry *config.PoolConfig, custodian staking.Custodian) (factory.PoolSpec, staking.ScoreOracle, error) {
	rewardToken, err := types.ParseAddress(entry.RewardToken)
	if err != nil {
		return factory.PoolSpec{}, nil, err
	}
	collection, err := types.ParseAddress(entry.Collection)
	if err != nil {
		return factory.PoolSpec{}, nil, err
	}
	admin, err := types.ParseAddress(entry.Admin)
	if err != nil {
		return factory.PoolSpec{}, nil, err
	}
	rate, err := entry.ParseEmissionRate()
	if err != nil {
		return factory.PoolSpec{}, nil, err
	}
	scores := make(map[uint64]*big.Int, len(entry.Scores))
	for rawID, rawScore := range entry.Scores {
		id, err := strconv.ParseUint(rawID, 10, 64)
		if err != nil {
			return factory.PoolSpec{}, nil, fmt.Errorf("score asset id %q: %w", rawID, err)
		}
		score, ok := new(big.Int).SetString(rawScore, 10)
		if !ok {
			return factory.PoolSpec{}, nil, fmt.Errorf("score amount %q", rawScore)
		}
		scores[id] = score
	}
	oracle := staking.NewStaticOracle(scores)
	return factory.PoolSpec{
		RewardToken:  rewardToken,
		Collection:   collection,
		Oracle:       oracle,
		Custodian:    custodian,
		EmissionRate: rate,
		Admin:        admin,
		Salt:         entry.Salt,
	}, oracle, nil
}
