package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	grpc_adapter "github.com/JoeShih716/go-bank-core/internal/app/core/adapter/in/grpc"
	memory_adapter "github.com/JoeShih716/go-bank-core/internal/app/core/adapter/out/memory"
	metrics_adapter "github.com/JoeShih716/go-bank-core/internal/app/core/adapter/out/metrics"
	mysql_adapter "github.com/JoeShih716/go-bank-core/internal/app/core/adapter/out/mysql"
	"github.com/JoeShih716/go-bank-core/internal/app/core/adapter/out/notify"
	"github.com/JoeShih716/go-bank-core/internal/app/core/usecase"
	"github.com/JoeShih716/go-bank-core/internal/config"
	"github.com/JoeShih716/go-bank-core/pkg/logger"
	"github.com/JoeShih716/go-bank-core/pkg/metrics"
	"github.com/JoeShih716/go-bank-core/pkg/mysql"
	"github.com/JoeShih716/go-bank-core/pkg/wal"
)

func newServeCmd(load func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the gRPC core service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			log, err := logger.New(cfg.Log)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, log)
		},
	}
}

// closer 依相反順序關閉資源
type closer []func()

func (c *closer) add(fn func()) { *c = append(*c, fn) }

func (c closer) closeAll() {
	for i := len(c) - 1; i >= 0; i-- {
		c[i]()
	}
}

func serve(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	var cleanup closer
	defer cleanup.closeAll()

	dailyLimit, err := cfg.DailyLimit()
	if err != nil {
		return err
	}
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	deps := usecase.Dependencies{
		Recorder:   metrics_adapter.NewRecorder(m),
		Logger:     log,
		Location:   cfg.Location(),
		DailyLimit: dailyLimit,
	}
	if err := wireLedger(ctx, cfg, log, &deps, &cleanup); err != nil {
		return err
	}
	notifier, err := buildNotifier(ctx, cfg, log, &cleanup)
	if err != nil {
		return err
	}
	deps.Notifier = notifier
	core := usecase.NewCoreUseCase(deps)

	// gRPC Server
	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Server.GRPCAddr, err)
	}
	server := grpc.NewServer(grpc.UnaryInterceptor(grpc_adapter.UnaryServerInterceptor(log, m)))
	grpc_adapter.RegisterCoreServiceServer(server, grpc_adapter.NewGrpcServer(core, log))
	reflection.Register(server)

	errCh := make(chan error, 2)
	go func() {
		log.Info("grpc server started", zap.String("addr", cfg.Server.GRPCAddr), zap.String("ledger", string(cfg.Ledger.Engine)))
		errCh <- server.Serve(lis)
	}()

	var metricsServer *http.Server
	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler(registry))
		metricsServer = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			log.Info("metrics server started", zap.String("addr", cfg.Metrics.Addr))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		log.Error("server stopped unexpectedly", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown)
	defer cancel()
	if metricsServer != nil {
		_ = metricsServer.Shutdown(shutdownCtx)
	}
	stopped := make(chan struct{})
	go func() {
		server.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-shutdownCtx.Done():
		server.Stop()
	}
	log.Info("server exited")
	return nil
}

// wireLedger 依設定建立 Ledger 與 repositories
func wireLedger(ctx context.Context, cfg *config.Config, log *zap.Logger, deps *usecase.Dependencies, cleanup *closer) error {
	if cfg.Ledger.Engine == config.LedgerMySQL {
		client, err := mysql.NewClient(cfg.MySQL, log)
		if err != nil {
			return err
		}
		cleanup.add(func() { _ = client.Close() })
		if err := mysql_adapter.AutoMigrate(client.DB()); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		deps.Ledger = mysql_adapter.NewMySQLLedger(client)
		deps.Transactions = mysql_adapter.NewTransactionRepository(client)
		deps.Loans = mysql_adapter.NewLoanRepository(client)
		return nil
	}

	// 記憶體帳本：帳戶、交易與貸款都由同一個 WAL 恢復
	walFile, err := wal.NewWAL(cfg.Ledger.WALPath)
	if err != nil {
		return fmt.Errorf("init wal: %w", err)
	}
	cleanup.add(func() { _ = walFile.Close() })
	transactions, loans, err := memory_adapter.RecoverStores(walFile)
	if err != nil {
		return fmt.Errorf("recover records: %w", err)
	}
	deps.Transactions, deps.Loans = transactions, loans

	switch cfg.Ledger.Engine {
	case config.LedgerMutex:
		ledger, err := memory_adapter.NewMutexLedger(nil, walFile)
		if err != nil {
			return err
		}
		deps.Ledger = ledger
	case config.LedgerLMAX:
		ledger, err := memory_adapter.NewLMAXLedger(nil, walFile)
		if err != nil {
			return err
		}
		// WAL 關閉前要先等 run loop 停下來
		engineCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		ledger.Start(engineCtx)
		cleanup.add(func() {
			cancel()
			ledger.Wait()
		})
		deps.Ledger = ledger
	}
	accounts, err := deps.Ledger.LoadAllAccounts(ctx)
	if err != nil {
		return err
	}
	log.Info("ledger recovered", zap.String("engine", string(cfg.Ledger.Engine)), zap.Int("accounts", len(accounts)))
	return nil
}

func buildNotifier(ctx context.Context, cfg *config.Config, log *zap.Logger, cleanup *closer) (usecase.Notifier, error) {
	logNotifier := notify.NewLogNotifier(log)
	if cfg.Notify.Sink == config.NotifyLog {
		return logNotifier, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	cleanup.add(func() { _ = client.Close() })

	redisNotifier := notify.NewRedisNotifier(client, log,
		notify.WithChannel(cfg.Notify.Channel),
		notify.WithTimeout(cfg.Notify.Timeout))
	if cfg.Notify.Sink == config.NotifyBoth {
		return notify.Fanout{logNotifier, redisNotifier}, nil
	}
	return redisNotifier, nil
}
