package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/minichain/minichain/chain"
	"github.com/minichain/minichain/config"
	"github.com/minichain/minichain/logging"
	"github.com/minichain/minichain/pool"
	"github.com/minichain/minichain/signing"
)

// Minichain binary version.
// It should be passed during the build with '-ldflags "-X main.version="'.
var version = "unknown"

// minichainMain is the true entry point. This function is required since
// defers created in the top-level scope of a main method aren't executed
// if os.Exit() is called.
func minichainMain() error {
	var err error
	// Start with a default Config with sane settings
	cfg := config.DefaultConfig()
	// Pre-parse the command line to check for an alternative Config file
	cfg, err = config.ParseFlags(cfg)
	if err != nil {
		return err
	}
	// Load configuration file overwriting defaults with any specified options
	cfg, err = config.ReadConfigFile(cfg)
	if err != nil {
		return err
	}
	cfg, err = config.SetupConfig(cfg)
	if err != nil {
		return err
	}
	// Finally, parse the remaining command line options again to ensure
	// they take precedence.
	cfg, err = config.ParseFlags(cfg)
	if err != nil {
		return err
	}

	logLevel := zap.InfoLevel
	if cfg.DebugLog {
		logLevel = zap.DebugLevel
	}
	logger := logging.New(logLevel, filepath.Join(cfg.LogDir, "minichain.log"), cfg.JSONLog)
	ctx := logging.NewContext(context.Background(), logger)

	defer func() {
		logger.Info("shutdown complete")
	}()

	logger.Sugar().Infof("version: %s, difficulty: %d, reward: %v, policy: %s",
		version, cfg.Difficulty, cfg.Reward, cfg.Policy)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)

	if cfg.MetricsPort != nil {
		addr := net.JoinHostPort("", fmt.Sprintf("%d", *cfg.MetricsPort))
		server := &http.Server{
			Addr:              addr,
			Handler:           promhttp.Handler(),
			ReadHeaderTimeout: time.Second * 5,
		}
		group.Go(func() error {
			logger.Sugar().Infof("metrics listening on %s", addr)
			if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		group.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	group.Go(func() error {
		defer stop()
		return runDemo(ctx, cfg)
	})

	return group.Wait()
}

// runDemo wires wallets, ledger and pool together in the fixed demo
// sequence: mine an empty block for Alice, transfer 10 coins from Alice
// to Bob through the pool, mine the confirming block, then report.
func runDemo(ctx context.Context, cfg *config.Config) error {
	logger := logging.FromContext(ctx)

	ledger, err := chain.NewLedger(ctx, cfg.Params())
	if err != nil {
		return fmt.Errorf("initializing ledger: %w", err)
	}

	names := []string{"Alice", "Bob", "Charlie"}
	keys := make(map[string]*signing.Keypair, len(names))
	for _, name := range names {
		kp, err := signing.GenerateKeypair()
		if err != nil {
			return fmt.Errorf("generating keypair for %s: %w", name, err)
		}
		keys[name] = kp
		ledger.RegisterWallet(&chain.Account{Name: name, Key: kp.PublicKey()})
		fmt.Printf("%s's address:\n%s", name, kp.Identity())
	}

	pending := pool.New()

	// Mine the first block to reward a miner.
	if _, err := ledger.AddBlock(ctx, pending.Pending(), []signing.PublicIdentity{
		keys["Alice"].Identity(),
	}); err != nil {
		return err
	}
	pending.Clear()
	printBalances(ledger, keys, "Balances after first mining:")

	tx, err := chain.NewTransaction(keys["Alice"], keys["Bob"].Identity(), 10)
	if err != nil {
		return fmt.Errorf("creating transaction: %w", err)
	}
	sender, ok := ledger.ResolveWallet(keys["Alice"].Identity())
	if !ok {
		return fmt.Errorf("sender wallet is not registered")
	}
	if !pending.Admit(tx, sender) {
		return fmt.Errorf("transaction was not admitted to the pool")
	}
	logger.Info("transaction admitted to pool", zap.String("content_hash", tx.ContentHash()))

	block, err := ledger.AddBlock(ctx, pending.Pending(), []signing.PublicIdentity{
		keys["Bob"].Identity(),
		keys["Charlie"].Identity(),
	})
	if err != nil {
		return err
	}
	confirmed := make([]string, 0, len(block.Transactions))
	for _, tx := range block.Transactions {
		confirmed = append(confirmed, tx.ContentHash())
	}
	pending.Remove(confirmed)
	printBalances(ledger, keys, "Balances after second block:")

	fmt.Printf("\nBlockchain valid: %v\n\nBlockchain:\n", ledger.IsChainValid())
	return printChain(ledger)
}

func printBalances(ledger *chain.Ledger, keys map[string]*signing.Keypair, heading string) {
	fmt.Println(heading)
	for _, name := range []string{"Alice", "Bob", "Charlie"} {
		balance, _ := ledger.Balance(keys[name].Identity())
		fmt.Printf("%s: %v\n", name, balance)
	}
}

func printChain(ledger *chain.Ledger) error {
	for _, block := range ledger.Blocks() {
		miner := chain.GenesisMiner
		if block.Miner != "" {
			miner = string(block.Miner)
		}
		txs := make([]string, 0, len(block.Transactions))
		for _, tx := range block.Transactions {
			txs = append(txs, string(tx.CanonicalPayload()))
		}
		out, err := json.MarshalIndent(map[string]any{
			"index":         block.Index,
			"transactions":  txs,
			"previous_hash": block.PreviousHash,
			"hash":          block.Hash,
			"nonce":         block.Nonce,
			"miner":         miner,
		}, "", "    ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	}
	return nil
}

func main() {
	// Call the "real" main in a nested manner so the defers will properly
	// be executed in the case of a graceful shutdown.
	if err := minichainMain(); err != nil {
		// If it's the flag utility error don't print it,
		// because it was already printed.
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
		} else {
			_, _ = fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
