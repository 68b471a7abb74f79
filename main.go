package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	cfg "github.com/cometbft/cometbft/config"
	cmtflags "github.com/cometbft/cometbft/libs/cli/flags"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	nm "github.com/cometbft/cometbft/node"
	"github.com/cometbft/cometbft/p2p"
	"github.com/cometbft/cometbft/privval"
	"github.com/cometbft/cometbft/proxy"
	cmtrpc "github.com/cometbft/cometbft/rpc/client/local"
	"github.com/dgraph-io/badger/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"

	"github.com/ahmadzakiakmal/internnft-chain/app"
	"github.com/ahmadzakiakmal/internnft-chain/repository"
	"github.com/ahmadzakiakmal/internnft-chain/server"
	"github.com/ahmadzakiakmal/internnft-chain/srvreg"
)

var (
	homeDir      string
	httpPort     string
	postgresHost string
	admin        string
)

func init() {
	flag.StringVar(&homeDir, "cmt-home", "./node-config/node0", "Path to the CometBFT config directory")
	flag.StringVar(&httpPort, "http-port", "5000", "HTTP web server port")
	flag.StringVar(&postgresHost, "postgres-host", "postgres0:5432", "DB host address, empty to run without the index")
	flag.StringVar(&admin, "admin", "admin", "Admin written into a genesis file that has no app_state")
}

func main() {
	// Parse command line flags
	flag.Parse()

	log.Println("=== Starting Intern NFT Chain Node ===")
	log.Printf("Home Directory: %s", homeDir)
	log.Printf("HTTP Port: %s", httpPort)
	log.Printf("PostgreSQL Host: %s", postgresHost)

	// Load CometBFT configuration
	if homeDir == "" {
		homeDir = os.ExpandEnv("$HOME/.cometbft")
	}
	config := cfg.DefaultConfig()
	config.SetRoot(homeDir)
	viper.SetConfigFile(fmt.Sprintf("%s/%s", homeDir, "config/config.toml"))
	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("Reading config: %v", err)
	}
	if err := viper.Unmarshal(config); err != nil {
		log.Fatalf("Decoding config: %v", err)
	}
	if err := config.ValidateBasic(); err != nil {
		log.Fatalf("Invalid configuration data: %v", err)
	}

	wrote, err := ensureAppState(config.GenesisFile(), admin)
	if err != nil {
		log.Fatalf("Preparing genesis: %v", err)
	}
	if wrote {
		log.Printf("Genesis had no app_state, wrote the default deployment with admin %q", admin)
	}

	// Connect to PostgreSQL Database
	repo := repository.NewRepository()
	if postgresHost != "" {
		dsn := fmt.Sprintf("postgresql://postgres:postgrespassword@%s/postgres", postgresHost)
		log.Printf("Connecting to PostgreSQL: %s", dsn)
		repo.ConnectDB(dsn)
	}

	// Initialize Badger DB for ledger state
	badgerPath := filepath.Join(homeDir, "badger")
	db, err := badger.Open(badger.DefaultOptions(badgerPath))
	if err != nil {
		log.Fatalf("Opening badger database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Fatalf("Closing badger database: %v", err)
		}
	}()

	// Create logger
	logger := cmtlog.NewTMLogger(cmtlog.NewSyncWriter(os.Stdout))
	logger, err = cmtflags.ParseLogLevel(config.LogLevel, logger, cfg.DefaultLogLevel)
	if err != nil {
		log.Fatalf("Failed to parse log level: %v", err)
	}

	// The index is optional; without it the chain runs unobserved
	var indexer app.Indexer
	if repo.Connected() {
		indexer = repo
	} else {
		logger.Info("Running without the off-chain index")
	}

	// Create ABCI Application
	metrics := app.NewMetrics(prometheus.DefaultRegisterer)
	abciApp, err := app.NewABCIApplication(db, logger.With("module", "internnft"), metrics, indexer)
	if err != nil {
		log.Fatalf("Creating ABCI application: %v", err)
	}

	// Load private validator
	pv := privval.LoadFilePV(
		config.PrivValidatorKeyFile(),
		config.PrivValidatorStateFile(),
	)

	// Load node key for P2P networking
	nodeKey, err := p2p.LoadNodeKey(config.NodeKeyFile())
	if err != nil {
		log.Fatalf("Failed to load node's key: %v", err)
	}

	// Initialize CometBFT node
	node, err := nm.NewNode(
		context.Background(),
		config,
		pv,
		nodeKey,
		proxy.NewLocalClientCreator(abciApp),
		nm.DefaultGenesisDocProviderFunc(config),
		cfg.DefaultDBProvider,
		nm.DefaultMetricsProvider(config.Instrumentation),
		logger,
	)
	if err != nil {
		log.Fatalf("Creating CometBFT node: %v", err)
	}
	logger.Info("Node initialized", "node_id", string(node.NodeInfo().ID()))

	// Create RPC client and set up repository
	rpcClient := cmtrpc.New(node)
	repo.SetupRpcClient(rpcClient)

	// Start CometBFT node
	logger.Info("Starting CometBFT node...")
	err = node.Start()
	if err != nil {
		log.Fatalf("Starting CometBFT node: %v", err)
	}
	defer func() {
		logger.Info("Stopping CometBFT node...")
		node.Stop()
		node.Wait()
	}()

	// Initialize Service Registry with the game endpoints
	serviceRegistry := srvreg.NewServiceRegistry(repo, rpcClient, repo, abciApp, logger.With("module", "srvreg"))
	serviceRegistry.RegisterDefaultServices()

	// Start Web Server
	logger.Info("Starting web server...")
	webserver := server.NewWebServer(httpPort, logger.With("module", "server"), node, rpcClient, serviceRegistry)
	err = webserver.Start()
	if err != nil {
		log.Fatalf("Starting HTTP server: %v", err)
	}

	// Display startup information
	contracts := abciApp.Contracts()
	logger.Info("=== Node Successfully Started ===")
	logger.Info("Game HTTP API", "url", fmt.Sprintf("http://localhost:%s", httpPort))
	logger.Info("CometBFT RPC", "url", fmt.Sprintf("http://localhost:%s", extractPortFromAddress(config.RPC.ListenAddress)))
	logger.Info("Contracts", "nft", contracts.NFT, "staking", contracts.Staking, "oracle", contracts.Oracle)

	// Wait for interrupt signal to gracefully shut down
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	logger.Info("Received shutdown signal, shutting down gracefully...")

	// Create deadline for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// Shutdown the web server
	err = webserver.Shutdown(ctx)
	if err != nil {
		logger.Error("Error shutting down HTTP web server", "err", err)
	}
	logger.Info("Node gracefully stopped")
}

// extractPortFromAddress extracts the port from an address string
func extractPortFromAddress(address string) string {
	for i := len(address) - 1; i >= 0; i-- {
		if address[i] == ':' {
			return address[i+1:]
		}
	}
	return ""
}
