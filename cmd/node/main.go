package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"

	"github.com/quillchain/quill/params"
	"github.com/quillchain/quill/pkg/api"
	"github.com/quillchain/quill/pkg/asset"
	"github.com/quillchain/quill/pkg/chain"
	"github.com/quillchain/quill/pkg/ledger"
	"github.com/quillchain/quill/pkg/storage"
	"github.com/quillchain/quill/pkg/util"
)

func main() {
	cfg := params.LoadFromEnv("")

	logger, err := util.NewLoggerWithFile(cfg.Node.LogFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", cfg.Node.LogFile)

	store, err := storage.NewStore(cfg.Node.DataDir)
	if err != nil {
		sugar.Fatalw("opening store", "err", err)
	}
	defer store.Close()

	assets, err := store.LoadAssets()
	if err != nil {
		sugar.Fatalw("loading assets", "err", err)
	}
	registry := asset.NewRegistry(store, assets)

	lgr, err := ledger.New(store, sugar)
	if err != nil {
		sugar.Fatalw("loading ledger", "err", err)
	}

	engine := asset.NewEngine(lgr, registry, store, store, sugar)

	clock := util.RealClock{}
	proc, err := chain.NewProcessor(engine, registry, lgr, store, clock, sugar)
	if err != nil {
		sugar.Fatalw("starting chain processor", "err", err)
	}

	if proc.Height() == 0 {
		if err := bootstrapGenesis(proc); err != nil {
			sugar.Fatalw("bootstrapping genesis", "err", err)
		}
		sugar.Infow("genesis applied", "height", proc.Height())
	}

	server := api.NewServer(registry, lgr, store, proc, clock, cfg.API.AllowedOrigins)
	engine.SetTradeListener(server.BroadcastTrade)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start(cfg.API.Addr) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		sugar.Infow("shutting down", "signal", sig.String())
	case err := <-errCh:
		sugar.Errorw("api server stopped", "err", err)
	}
}

// bootstrapGenesis issues the native chain asset on an empty database. The
// genesis owner holds the full supply and distributes it via transfers.
func bootstrapGenesis(proc *chain.Processor) error {
	owner := common.HexToAddress(os.Getenv("GENESIS_OWNER"))

	return proc.ApplyBlock(&chain.Block{
		Height:    1,
		Timestamp: 0,
		Txs: []chain.Tx{{
			Type: chain.TxIssueAsset,
			IssueAsset: &chain.IssueAssetTx{
				AssetID:   0,
				Name:      "QUILL",
				Owner:     owner,
				Supply:    1_000_000_000 * asset.Multiplier,
				Divisible: true,
			},
		}},
	})
}
