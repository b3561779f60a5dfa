package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/ardanlabs/ledger/app/services/node/handlers"
	"github.com/ardanlabs/ledger/business/sys/metrics"
	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/database/storage/bolt"
	"github.com/ardanlabs/ledger/foundation/blockchain/database/storage/disk"
	"github.com/ardanlabs/ledger/foundation/blockchain/database/storage/leveldb"
	"github.com/ardanlabs/ledger/foundation/blockchain/database/storage/memory"
	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
	"github.com/ardanlabs/ledger/foundation/blockchain/state"
	"github.com/ardanlabs/ledger/foundation/blockchain/worker"
	"github.com/ardanlabs/ledger/foundation/events"
	"github.com/ardanlabs/ledger/foundation/logger"
	"github.com/ardanlabs/ledger/foundation/nameservice"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

// config is all the configuration for the application and the default values.
type config struct {
	conf.Version
	Web struct {
		ReadTimeout     time.Duration `conf:"default:5s"`
		WriteTimeout    time.Duration `conf:"default:120s"`
		IdleTimeout     time.Duration `conf:"default:120s"`
		ShutdownTimeout time.Duration `conf:"default:20s"`
		DebugHost       string        `conf:"default:0.0.0.0:7080"`
		PublicHost      string        `conf:"default:0.0.0.0:8080"`
		PrivateHost     string        `conf:"default:0.0.0.0:9080"`
	}
	Log struct {
		Path       string
		MaxSizeMB  int `conf:"default:100"`
		MaxBackups int `conf:"default:3"`
		MaxAgeDays int `conf:"default:28"`
	}
	State struct {
		MinerName        string        `conf:"default:miner1"`
		GenesisPath      string        `conf:"default:zblock/genesis.json"`
		Storage          string        `conf:"default:disk,help:memory|disk|bolt|leveldb"`
		DBPath           string        `conf:"default:zblock/blocks"`
		Signature        string        `conf:"default:ecdsa,help:ecdsa|legacy"`
		AutoMine         bool          `conf:"default:true"`
		SnapshotPath     string        `conf:"default:zblock/snapshot.json"`
		SnapshotInterval time.Duration `conf:"default:1m"`
		LoadSnapshot     bool          `conf:"default:false"`
	}
	NameService struct {
		Folder string `conf:"default:zblock/accounts/"`
	}
}

func main() {
	if err := run(); err != nil {
		fmt.Println("startup: ERROR:", err)
		os.Exit(1)
	}
}

func run() error {

	// =========================================================================
	// Configuration

	cfg := config{
		Version: conf.Version{
			Build: build,
			Desc:  "ledger node",
		},
	}

	// Parse will set the defaults and then look for any overriding values
	// in environment variables and command line flags.
	const prefix = "NODE"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// Logging

	log, err := logger.NewWithRotation(prefix, logger.Rotation{
		Path:       cfg.Log.Path,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		return fmt.Errorf("constructing logger: %w", err)
	}
	defer log.Sync()

	if err := start(log, cfg); err != nil {
		log.Errorw("startup", "ERROR", err)
		return err
	}

	return nil
}

func start(log *zap.SugaredLogger, cfg config) error {

	// =========================================================================
	// App Starting

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	// Display the current configuration to the logs.
	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Name Service Support

	// The nameservice package provides name resolution for account addresses.
	// The names come from the file names in the zblock/accounts folder.
	ns, err := nameservice.New(cfg.NameService.Folder)
	if err != nil {
		return fmt.Errorf("unable to load account name service: %w", err)
	}

	// Logging the accounts for documentation in the logs.
	for account, name := range ns.Copy() {
		log.Infow("startup", "status", "nameservice", "name", name, "account", account)
	}

	// =========================================================================
	// Blockchain Support

	// The configured miner account gets credited with the mining rewards.
	minerID, err := ns.Resolve(cfg.State.MinerName)
	if err != nil {
		return fmt.Errorf("unable to resolve miner account: %w", err)
	}

	gen, err := genesis.Load(cfg.State.GenesisPath)
	if err != nil {
		return fmt.Errorf("unable to load genesis: %w", err)
	}

	serializer, err := openStorage(cfg.State.Storage, cfg.State.DBPath)
	if err != nil {
		return fmt.Errorf("unable to open storage: %w", err)
	}

	verifier, err := newVerifier(cfg.State.Signature)
	if err != nil {
		return err
	}

	// The blockchain packages accept a function of this signature to allow the
	// application to log. The viewer events are also sent to any websocket
	// client that is connected into the system through the events package.
	evts := events.New()
	ev := evts.Handler(func(msg string) {
		log.Infow(msg, "traceid", "00000000-0000-0000-0000-000000000000")
	})

	// The state value represents the blockchain node and manages the blockchain
	// database and provides an API for application support.
	st, err := state.New(state.Config{
		MinerAccountID: minerID,
		Genesis:        gen,
		Serializer:     serializer,
		Verifier:       verifier,
		EvHandler:      ev,
	})
	if err != nil {
		return err
	}
	defer st.Shutdown()

	if cfg.State.LoadSnapshot {
		if err := loadSnapshot(log, st, cfg.State.SnapshotPath); err != nil {
			return err
		}
	}

	// The worker package implements mining and snapshot persistence. The
	// worker will register itself with the state.
	worker.Run(st, worker.Config{
		AutoMine:         cfg.State.AutoMine,
		SnapshotPath:     cfg.State.SnapshotPath,
		SnapshotInterval: cfg.State.SnapshotInterval,
	}, ev)

	// =========================================================================
	// Metrics Support

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		metrics.NewChainCollector(st),
	)

	mtrcs, err := metrics.New(reg)
	if err != nil {
		return fmt.Errorf("constructing metrics: %w", err)
	}

	// =========================================================================
	// Start Debug Service

	log.Infow("startup", "status", "debug v1 router started", "host", cfg.Web.DebugHost)

	// The Debug function returns a mux to listen and serve on for all the debug
	// related endpoints. This includes the standard library endpoints.
	debugMux := handlers.DebugMux(build, log, st, reg)

	// Start the service listening for debug requests.
	// Not concerned with shutting this down with load shedding.
	go func() {
		if err := http.ListenAndServe(cfg.Web.DebugHost, debugMux); err != nil {
			log.Errorw("shutdown", "status", "debug v1 router closed", "host", cfg.Web.DebugHost, "ERROR", err)
		}
	}()

	// =========================================================================
	// Service Start/Stop Support

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// Make a channel to listen for errors coming from the listener. Use a
	// buffered channel so the goroutine can exit if we don't collect this error.
	serverErrors := make(chan error, 1)

	muxCfg := handlers.MuxConfig{
		Shutdown:     shutdown,
		Log:          log,
		Metrics:      mtrcs,
		State:        st,
		NS:           ns,
		Evts:         evts,
		SnapshotPath: cfg.State.SnapshotPath,
	}

	// =========================================================================
	// Start Public Service

	log.Infow("startup", "status", "initializing V1 public API support")

	public := http.Server{
		Addr:         cfg.Web.PublicHost,
		Handler:      handlers.PublicMux(muxCfg),
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	go func() {
		log.Infow("startup", "status", "public api router started", "host", public.Addr)
		serverErrors <- public.ListenAndServe()
	}()

	// =========================================================================
	// Start Private Service

	log.Infow("startup", "status", "initializing V1 private API support")

	private := http.Server{
		Addr:         cfg.Web.PrivateHost,
		Handler:      handlers.PrivateMux(muxCfg),
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	go func() {
		log.Infow("startup", "status", "private api router started", "host", private.Addr)
		serverErrors <- private.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	// Blocking main and waiting for shutdown.
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		// Release any web sockets that are currently active.
		log.Infow("shutdown", "status", "shutdown web socket channels")
		evts.Shutdown()

		// Give outstanding requests a deadline for completion.
		ctx, cancelPri := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancelPri()

		// Asking listener to shut down and shed load.
		log.Infow("shutdown", "status", "shutdown private API started")
		if err := private.Shutdown(ctx); err != nil {
			private.Close()
			return fmt.Errorf("could not stop private service gracefully: %w", err)
		}

		// Give outstanding requests a deadline for completion.
		ctx, cancelPub := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancelPub()

		// Asking listener to shut down and shed load.
		log.Infow("shutdown", "status", "shutdown public API started")
		if err := public.Shutdown(ctx); err != nil {
			public.Close()
			return fmt.Errorf("could not stop public service gracefully: %w", err)
		}
	}

	return nil
}

// =============================================================================

// openStorage constructs the block log for the engine.
func openStorage(engine string, path string) (database.Serializer, error) {
	switch engine {
	case "memory":
		return memory.New(), nil
	case "disk":
		return disk.New(path)
	case "bolt":
		return bolt.New(path)
	case "leveldb":
		return leveldb.New(path)
	}

	return nil, fmt.Errorf("unknown storage engine %q", engine)
}

// newVerifier constructs the signature verifier for the scheme.
func newVerifier(scheme string) (signature.Verifier, error) {
	switch scheme {
	case "ecdsa":
		return signature.ECDSA{}, nil
	case "legacy":
		return signature.Legacy{}, nil
	}

	return nil, fmt.Errorf("unknown signature scheme %q", scheme)
}

// loadSnapshot imports the snapshot file when one exists.
func loadSnapshot(log *zap.SugaredLogger, st *state.State, path string) error {
	snap, err := state.ReadSnapshotFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Infow("startup", "status", "no snapshot to load", "path", path)
			return nil
		}
		return fmt.Errorf("reading snapshot: %w", err)
	}

	if err := st.ImportSnapshot(snap); err != nil {
		return fmt.Errorf("importing snapshot: %w", err)
	}

	log.Infow("startup", "status", "snapshot loaded", "path", path, "blocks", len(snap.Chain), "mempool", len(snap.Mempool))

	return nil
}
