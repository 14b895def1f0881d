package integration

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/HydroBlockchain/keresverse-market/internal/artifact"
	"github.com/HydroBlockchain/keresverse-market/internal/chain"
	"github.com/HydroBlockchain/keresverse-market/internal/chain/chaintest"
	"github.com/HydroBlockchain/keresverse-market/internal/config"
	"github.com/HydroBlockchain/keresverse-market/internal/flow"
	"github.com/HydroBlockchain/keresverse-market/internal/report"
	"github.com/HydroBlockchain/keresverse-market/internal/risk"
	"github.com/HydroBlockchain/keresverse-market/internal/wallet"
)

const (
	ownerKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	buyerKey = "0x59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"
)

func TestMarketFlowFromConfig(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	t.Setenv(config.EnvRPCURL, "")
	t.Setenv(config.EnvArtifactsDir, filepath.Join("..", "..", "testdata", "artifacts"))
	cfg, err := config.Load(filepath.Join("..", "config", "testdata", "config.yaml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	cfg.Order.Active = nil
	settings, err := flow.SettingsFromConfig(cfg)
	if err != nil {
		t.Fatalf("SettingsFromConfig returned error: %v", err)
	}

	t.Setenv(cfg.Wallet.OwnerKeyEnv, ownerKey)
	t.Setenv(cfg.Wallet.BuyerKeyEnv, buyerKey)
	owner, buyer, err := wallet.LoadPair(cfg.Wallet.OwnerKeyEnv, cfg.Wallet.BuyerKeyEnv)
	if err != nil {
		t.Fatalf("LoadPair returned error: %v", err)
	}

	node := chaintest.NewNode(cfg.Chain.ChainID)
	for _, name := range []string{cfg.Artifacts.TokenContract, cfg.Artifacts.MarketplaceContract} {
		f, err := artifact.Find(cfg.Artifacts.Dir, name)
		if err != nil {
			t.Fatalf("Find %s returned error: %v", name, err)
		}
		if name == cfg.Artifacts.TokenContract {
			node.Register(f.Bytecode, chaintest.TokenConstructor(f.ABI, big.NewInt(1000)))
		} else {
			node.Register(f.Bytecode, chaintest.MarketConstructor(f.ABI, 250))
		}
	}
	funds, _ := new(big.Int).SetString("10000000000000000000000", 10)
	node.Fund(owner.Address, funds)
	node.Fund(buyer.Address, funds)

	var logs bytes.Buffer
	logger := zerolog.New(&logs)
	client := chain.New(node,
		chain.WithLogger(logger),
		chain.WithChainID(cfg.Chain.ChainID),
		chain.WithGasMultiplier(cfg.Chain.GasMultiplier),
		chain.WithPollInterval(time.Millisecond),
	)

	limit, err := config.ParseWei(cfg.Risk.MaxValue)
	if err != nil {
		t.Fatalf("ParseWei returned error: %v", err)
	}
	runLog := filepath.Join(t.TempDir(), cfg.Report.Path)
	recorder, err := report.NewJSONLRecorder(runLog)
	if err != nil {
		t.Fatalf("NewJSONLRecorder returned error: %v", err)
	}
	var out bytes.Buffer

	runner := flow.NewRunner(client, flow.ArtifactDir(cfg.Artifacts.Dir), owner, buyer, settings,
		flow.WithLogger(logger),
		flow.WithLimits(risk.Limits{MaxValue: limit}),
		flow.WithPrinter(report.NewPrinter(&out)),
		flow.WithRecorder(recorder),
	)
	res, err := runner.Run(ctx)
	if err != nil {
		t.Fatalf("Run returned error: %v\nlogs: %s", err, logs.String())
	}
	if err := recorder.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	if res.BuyerTokens.Int64() != 200 {
		t.Fatalf("expected 200 tokens for the buyer, got %s", res.BuyerTokens)
	}
	if !strings.Contains(out.String(), "buyer tokens: 200") {
		t.Fatalf("expected console output to include the buyer balance, got %s", out.String())
	}
	if !strings.Contains(logs.String(), "marketplace flow finished") {
		t.Fatalf("expected log output to include the summary, got %s", logs.String())
	}

	file, err := os.Open(runLog)
	if err != nil {
		t.Fatalf("open run log: %v", err)
	}
	defer file.Close()
	kinds := map[string]int{}
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var ev report.Event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			t.Fatalf("run log line %q: %v", scanner.Text(), err)
		}
		kinds[ev.Kind]++
	}
	if kinds[report.KindDeploy] != 2 || kinds[report.KindTx] != 3 || kinds[report.KindCall] != 2 || kinds[report.KindBalance] != 5 {
		t.Fatalf("unexpected run log %v", kinds)
	}
}
