package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	grpc_adapter "github.com/JoeShih716/go-pool-ledger/internal/app/core/adapter/in/grpc"
	"github.com/JoeShih716/go-pool-ledger/internal/app/core/adapter/out/baas"
	"github.com/JoeShih716/go-pool-ledger/internal/app/core/adapter/out/directory"
	"github.com/JoeShih716/go-pool-ledger/internal/app/core/adapter/out/lock"
	memory_adapter "github.com/JoeShih716/go-pool-ledger/internal/app/core/adapter/out/memory"
	mysql_adapter "github.com/JoeShih716/go-pool-ledger/internal/app/core/adapter/out/mysql"
	"github.com/JoeShih716/go-pool-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-pool-ledger/internal/config"
	"github.com/JoeShih716/go-pool-ledger/internal/observability"
	"github.com/JoeShih716/go-pool-ledger/pkg/mysql"
	"github.com/JoeShih716/go-pool-ledger/pkg/wal"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the ledger gRPC server and ops listener",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// app 組裝完成的服務元件
type app struct {
	core    *usecase.CoreUseCase
	ready   observability.ReadyFunc
	closers []func() error
}

func (a *app) close(logger *zap.Logger) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warn("close failed", zap.Error(err))
		}
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	// 1. 載入設定
	cfg, err := config.Load(config.ResolvePath(configPath))
	if err != nil {
		return err
	}
	logger, err := observability.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. 組裝儲存層、鎖、錢包目錄與 provider
	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close(logger)

	// 3. gRPC Server
	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		return err
	}
	s := grpc.NewServer(grpc.UnaryInterceptor(grpc_adapter.LoggingInterceptor(logger)))
	grpc_adapter.RegisterPoolLedgerServer(s, grpc_adapter.NewGrpcServer(a.core))
	reflection.Register(s)

	// 4. 維運 HTTP
	ops := &http.Server{Addr: cfg.Server.MetricsAddr, Handler: observability.NewOpsRouter(a.ready)}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("grpc server started", zap.String("addr", cfg.Server.GRPCAddr))
		errCh <- s.Serve(lis)
	}()
	go func() {
		logger.Info("ops listener started", zap.String("addr", cfg.Server.MetricsAddr))
		if err := ops.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err = <-errCh:
		logger.Error("server stopped", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	stopped := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-shutdownCtx.Done():
		s.Stop()
	}
	if shutdownErr := ops.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Warn("ops shutdown", zap.Error(shutdownErr))
	}
	logger.Info("server exited")
	return err
}

func buildApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{}
	fail := func(err error) (*app, error) {
		a.close(logger)
		return nil, err
	}

	var (
		store    usecase.LedgerStore
		dbClient *mysql.Client
	)
	switch cfg.Storage.Driver {
	case config.StorageMemory:
		journal, err := wal.NewWAL(cfg.Storage.WAL)
		if err != nil {
			return fail(err)
		}
		a.closers = append(a.closers, journal.Close)
		memStore, err := memory_adapter.NewShardedStore(journal, logger)
		if err != nil {
			return fail(err)
		}
		logger.Info("memory store recovered", zap.String("wal_dir", cfg.Storage.WAL.Dir), zap.Uint64("wal_index", journal.CurrentIndex()))
		store = memStore
	case config.StorageMySQL:
		client, err := mysql.NewClient(ctx, cfg.MySQL, logger)
		if err != nil {
			return fail(err)
		}
		a.closers = append(a.closers, client.Close)
		dbClient = client
		sqlStore := mysql_adapter.NewLedgerStore(client)
		if cfg.Storage.AutoMigrate {
			if err := sqlStore.AutoMigrate(ctx); err != nil {
				return fail(err)
			}
		}
		sqlDB, err := client.SQLDB()
		if err != nil {
			return fail(err)
		}
		a.ready = func(ctx context.Context) error { return sqlDB.PingContext(ctx) }
		store = sqlStore
	}

	var locker usecase.CardLocker
	switch cfg.Lock.Driver {
	case config.LockLocal:
		locker = lock.NewLocalLocker(cfg.Lock.MaxWait)
	case config.LockRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		a.closers = append(a.closers, rdb.Close)
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fail(err)
		}
		locker = lock.NewRedisLocker(rdb, lock.RedisConfig{
			KeyPrefix:     cfg.Lock.KeyPrefix,
			TTL:           cfg.Lock.TTL,
			MaxWait:       cfg.Lock.MaxWait,
			RetryInterval: cfg.Lock.RetryInterval,
		}, logger)
	case config.LockMySQL:
		sqlDB, err := dbClient.SQLDB()
		if err != nil {
			return fail(err)
		}
		locker = mysql_adapter.NewAdvisoryLocker(sqlDB, cfg.Lock.KeyPrefix, cfg.Lock.MaxWait, logger)
	}

	dir, err := directory.NewStaticDirectory(cfg.Wallets)
	if err != nil {
		return fail(err)
	}

	deps := usecase.Dependencies{
		Store:     store,
		Locker:    locker,
		Directory: dir,
		Policy: usecase.Policy{
			Currency:            cfg.Ledger.Currency,
			MinorUnitExponent:   cfg.Ledger.MinorUnitExponent,
			AllowNegativeEquity: cfg.Ledger.AllowNegativeEquity,
		},
	}
	// provider 無法使用時仍提供帳本服務，webhook 與發卡回傳 Unimplemented
	if provider, err := baas.New(cfg.BaaS); err == nil {
		deps.Provider = provider
	} else {
		logger.Warn("baas provider disabled", zap.String("provider", cfg.BaaS.Provider), zap.Error(err))
	}

	a.core = usecase.NewCoreUseCase(deps, usecase.WithLogger(logger))
	logger.Info("ledger ready",
		zap.String("storage", cfg.Storage.Driver),
		zap.String("lock", cfg.Lock.Driver),
		zap.Int("wallets", len(cfg.Wallets)),
	)
	return a, nil
}

