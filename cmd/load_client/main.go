package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	coregrpc "github.com/JoeShih716/go-bank-core/internal/app/core/adapter/in/grpc"
	"github.com/JoeShih716/go-bank-core/internal/app/core/domain"
	pkggrpc "github.com/JoeShih716/go-bank-core/pkg/grpc"
)

type options struct {
	target      string
	total       int
	concurrency int
	amount      string
	timeout     time.Duration
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:           "load_client",
		Short:         "Concurrent deposit load against the core service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&opts.target, "target", "localhost:50051", "core service address")
	flags.IntVarP(&opts.total, "requests", "n", 100000, "number of deposits")
	flags.IntVarP(&opts.concurrency, "concurrency", "c", 200, "concurrent requests")
	flags.StringVar(&opts.amount, "amount", "0.01", "amount per deposit")
	flags.DurationVar(&opts.timeout, "timeout", 120*time.Second, "overall timeout")
	return cmd
}

func run(parent context.Context, opts options) error {
	zapLogger, err := zap.NewDevelopment()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	pool := pkggrpc.NewPool(
		pkggrpc.WithInterceptor(pkggrpc.LoggingInterceptor(zapLogger)),
		pkggrpc.WithCallOptions(grpc.CallContentSubtype(coregrpc.CodecName)),
	)
	defer pool.Close()
	conn, err := pool.GetConnection(opts.target)
	if err != nil {
		return fmt.Errorf("did not connect: %w", err)
	}
	client := coregrpc.NewClient(conn)

	ctx, cancel := context.WithTimeout(parent, opts.timeout)
	defer cancel()

	// 行員身分開一個帳戶當作壓測目標
	teller := coregrpc.WithActor(ctx, domain.Employee(1))
	account, err := client.OpenAccount(teller, &coregrpc.OpenAccountRequest{CustomerID: 1, Type: string(domain.AccountTypeSavings)})
	if err != nil {
		return fmt.Errorf("open account: %w", err)
	}

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int64
		failed    atomic.Int64
		errored   atomic.Int64
	)
	sem := make(chan struct{}, opts.concurrency)
	start := time.Now()

	for i := 0; i < opts.total; i++ {
		sem <- struct{}{}
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()

			tran, err := client.Deposit(teller, &coregrpc.AmountRequest{AccountID: account.ID, Amount: opts.amount})
			switch {
			case err != nil:
				errored.Add(1)
				if idx%10000 == 0 {
					zapLogger.Warn("deposit failed", zap.Int("index", idx), zap.Error(err))
				}
			case tran.Status == string(domain.TransactionStatusSuccess):
				succeeded.Add(1)
			default:
				failed.Add(1)
			}
		}(i)
	}
	wg.Wait()

	elapsed := time.Since(start)
	final, err := client.GetAccount(teller, &coregrpc.AccountRequest{AccountID: account.ID})
	if err != nil {
		return fmt.Errorf("get account: %w", err)
	}
	fmt.Printf("Completed %d requests in %v\n", opts.total, elapsed)
	fmt.Printf("TPS: %.2f\n", float64(opts.total)/elapsed.Seconds())
	fmt.Printf("success=%d failed=%d error=%d balance=%s\n", succeeded.Load(), failed.Load(), errored.Load(), final.Balance)
	return nil
}
