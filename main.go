package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gin-gonic/gin"

	"github.com/dualexec/executor/pkg/chainclient"
	"github.com/dualexec/executor/pkg/chains"
	"github.com/dualexec/executor/pkg/circuitbreaker"
	"github.com/dualexec/executor/pkg/config"
	"github.com/dualexec/executor/pkg/evm"
	"github.com/dualexec/executor/pkg/executor"
	"github.com/dualexec/executor/pkg/fees"
	"github.com/dualexec/executor/pkg/health"
	"github.com/dualexec/executor/pkg/jito"
	"github.com/dualexec/executor/pkg/jupiter"
	"github.com/dualexec/executor/pkg/logger"
	"github.com/dualexec/executor/pkg/poller"
	"github.com/dualexec/executor/pkg/submit"
	"github.com/dualexec/executor/pkg/svm"
)

const shutdownTimeout = 5 * time.Second

func main() {
	// Load configuration from environment variables
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger := logger.NewStdLogger(cfg.LoggerConfig.Coloring, cfg.LoggerConfig.Level)
	if cfg.LoggerConfig.Level != logger.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	// Set up context with cancellation on SIGINT/SIGTERM
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	policy := fees.Policy{
		UnitPrice:     cfg.Solana.UnitPrice,
		UnitLimit:     cfg.Solana.UnitLimit,
		MaxTip:        cfg.Solana.MaxTip,
		GasMultiplier: cfg.EVM.GasMultiplier,
		MaxGasPrice:   cfg.EVM.MaxGasPrice,
	}

	var (
		statuses []health.ChainStatus
		breakers []*circuitbreaker.CircuitBreaker
	)

	evmExecutor, evmStatus, gasRoutine, err := setupEVM(ctx, cfg, policy, appLogger)
	if err != nil {
		log.Fatalf("Failed to set up EVM chain: %v", err)
	}
	if gasRoutine != nil {
		defer gasRoutine.Stop()
	}
	if evmStatus != nil {
		statuses = append(statuses, evmStatus.status)
		breakers = append(breakers, evmStatus.breaker)
	}

	solanaExecutor, solanaStatus := setupSolana(cfg, policy, appLogger)
	if solanaStatus != nil {
		statuses = append(statuses, solanaStatus.status)
		breakers = append(breakers, solanaStatus.breaker)
	}

	service := executor.NewService(evmExecutor, solanaExecutor, appLogger)
	api := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: executor.NewHTTPHandler(service, executor.HTTPConfig{
			RateLimit: cfg.RateLimit,
			RateBurst: cfg.RateBurst,
		}, appLogger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	healthServer := health.NewServer(cfg.MetricsPort, cfg.MetricsAPIKey, statuses, breakers, appLogger)

	go func() {
		if err := healthServer.Start(); err != nil {
			appLogger.Error("Health server error: %v", err)
		}
	}()

	go func() {
		appLogger.Info("Starting trade API on port %s", cfg.Port)
		if err := api.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("Trade API error: %v", err)
			cancel()
		}
	}()

	// Set up signal handling for graceful shutdown
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-signalCh:
		appLogger.Info("Received termination signal, shutting down gracefully...")
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := api.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Failed to stop trade API: %v", err)
	}
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Failed to stop health server: %v", err)
	}
	cancel()
	appLogger.Info("Shutdown complete")
}

func newBreaker(chain string, cfg config.CircuitBreakerConfig, log logger.Logger) *circuitbreaker.CircuitBreaker {
	return circuitbreaker.NewCircuitBreaker(chain, cfg.Enabled, cfg.Threshold, cfg.WindowDuration, cfg.ResetTimeout, log)
}

// setupEVM connects the EVM chain. An invalid chain section disables the chain instead of
// failing startup; connection failures are fatal.
func setupEVM(
	ctx context.Context,
	cfg *config.Config,
	policy fees.Policy,
	log logger.Logger,
) (executor.Executor, *chainHealth, *chainclient.GasPriceRoutine, error) {
	if !cfg.EVM.Enabled {
		return nil, nil, nil, nil
	}

	label := chains.Label(cfg.EVM.ChainID)
	if err := cfg.EVM.Validate(); err != nil {
		log.ErrorWithChain(label, "EVM trading disabled: %v", err)
		return executor.Disabled(label, err), nil, nil, nil
	}

	client, err := chainclient.New(ctx, cfg.EVM, policy, log)
	if err != nil {
		return nil, nil, nil, err
	}

	routine := chainclient.NewGasPriceRoutine(ctx, client, cfg.EVM.GasPriceRefresh)
	routine.Start()

	swapper := evm.NewSwapper(client.ChainID, client.Router, client.Client, client.Auth, client, poller.Options{
		Interval: cfg.EVM.ReceiptPollInterval,
		Deadline: cfg.EVM.ReceiptTimeout,
	}, log)

	breaker := newBreaker(label, cfg.CircuitBreaker, log)
	router := submit.NewRouter[*evm.SwapPlan](swapper, nil, log)
	pipeline := executor.NewPipeline[*evm.SwapPlan](label, swapper, router, breaker, log)

	log.InfoWithChain(label, "EVM trading enabled on %s, router %s, signer %s",
		chains.GetChainName(client.ChainID), client.RouterAddress.Hex(), client.Auth.From.Hex())

	return pipeline, &chainHealth{status: client, breaker: breaker}, routine, nil
}

type chainHealth struct {
	status  health.ChainStatus
	breaker *circuitbreaker.CircuitBreaker
}

// setupSolana wires the Solana pipeline. Nothing is dialed here: the RPC client connects
// lazily on first use.
func setupSolana(cfg *config.Config, policy fees.Policy, log logger.Logger) (executor.Executor, *chainHealth) {
	if !cfg.Solana.Enabled {
		return nil, nil
	}

	if err := cfg.Solana.Validate(); err != nil {
		log.ErrorWithChain(chains.Solana, "Solana trading disabled: %v", err)
		return executor.Disabled(chains.Solana, err), nil
	}

	signer := solana.MustPrivateKeyFromBase58(cfg.Solana.PrivateKey)
	commitment := rpc.CommitmentType(cfg.Solana.Commitment)
	rpcClient := rpc.New(cfg.Solana.RPCURL)
	blockhashes := svm.NewBlockhashCache(rpcClient, commitment, svm.DefaultBlockhashTTL)
	pollOpts := poller.Options{Interval: cfg.Solana.PollInterval, Deadline: cfg.Solana.PollDeadline}

	quotes := jupiter.NewClient(cfg.Solana.JupiterBaseURL, nil, log)
	builder := svm.NewBuilder(quotes, signer, policy, cfg.Solana.UseRelay, log)
	direct := svm.NewDirectSubmitter(rpcClient, blockhashes, commitment, pollOpts, log)

	var relay submit.Submitter[*svm.Plan]
	if cfg.Solana.UseRelay {
		var tips jito.TipSource = jito.NewTipFloor(cfg.Solana.TipFloorURL, cfg.Solana.TipPercentile, nil, log)
		if cfg.Solana.TipValue != nil {
			tips = jito.FixedTip{Value: *cfg.Solana.TipValue}
		}
		blockEngine := jito.NewClient(cfg.Solana.BlockEngineURL, cfg.Solana.RelayAuthUUID, nil, log)
		relay = svm.NewBundleSubmitter(blockEngine, tips, blockhashes, policy, pollOpts, log)
	}

	breaker := newBreaker(chains.Solana, cfg.CircuitBreaker, log)
	router := submit.NewRouter[*svm.Plan](direct, relay, log)
	pipeline := executor.NewPipeline[*svm.Plan](chains.Solana, builder, router, breaker, log)

	log.InfoWithChain(chains.Solana, "Solana trading enabled, signer %s, relay %v", signer.PublicKey(), router.RelayEnabled())

	return pipeline, &chainHealth{
		status:  svm.NewClusterStatus(rpcClient, cfg.Solana.RPCURL, signer.PublicKey(), commitment, cfg.Solana.UseRelay),
		breaker: breaker,
	}
}
