package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	cmthttp "github.com/cometbft/cometbft/rpc/client/http"

	"github.com/ahmadzakiakmal/internnft-chain/config"
	"github.com/ahmadzakiakmal/internnft-chain/randomness"
)

func main() {
	cfg, err := config.LoadRelayConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	log.Println("========================================")
	log.Println("   BEACON RELAY")
	log.Println("========================================")
	log.Printf("drand:    %s", cfg.DrandEndpoint)
	log.Printf("RPC:      %s", cfg.RPCEndpoint)
	log.Printf("Oracle:   %s", cfg.OracleContract)
	log.Printf("Worker:   %s", cfg.Worker)
	log.Printf("Interval: %s", cfg.PollInterval)

	rpcClient, err := cmthttp.NewWithClient(cfg.RPCEndpoint, &http.Client{
		Timeout: cfg.HTTPTimeout,
	})
	if err != nil {
		log.Fatalf("Failed to create CometBFT client: %v", err)
	}

	drand := randomness.NewDrandClient(cfg.DrandEndpoint, cfg.HTTPTimeout)
	relay := NewRelay(drand, rpcClient, cfg.Worker, cfg.OracleContract, cfg.Backfill)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	relay.Run(ctx, cfg.PollInterval)
	log.Println("Relay stopped")
}
