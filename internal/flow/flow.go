// Package flow runs the deploy, list, and purchase sequence against a node.
package flow

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"

	"github.com/HydroBlockchain/keresverse-market/internal/artifact"
	"github.com/HydroBlockchain/keresverse-market/internal/chain"
	"github.com/HydroBlockchain/keresverse-market/internal/config"
	"github.com/HydroBlockchain/keresverse-market/internal/market"
	"github.com/HydroBlockchain/keresverse-market/internal/report"
	"github.com/HydroBlockchain/keresverse-market/internal/risk"
	"github.com/HydroBlockchain/keresverse-market/internal/wallet"
)

// FactoryFunc resolves a contract factory by name.
type FactoryFunc func(name string) (*artifact.Factory, error)

// ArtifactDir resolves factories from a Hardhat artifacts directory.
func ArtifactDir(dir string) FactoryFunc {
	return func(name string) (*artifact.Factory, error) { return artifact.Find(dir, name) }
}

// Settings are the literal inputs of a run.
type Settings struct {
	TokenContract       string
	MarketplaceContract string
	TokenURI            string
	MarketplaceArg      common.Address
	OrderID             *big.Int
	TokenID             *big.Int
	Quantity            *big.Int
	Active              bool
	Price               *big.Int
	StartTime           *big.Int
	Duration            *big.Int
}

// SettingsFromConfig converts the YAML view into typed values.
func SettingsFromConfig(cfg *config.Config) (Settings, error) {
	if err := cfg.Validate(); err != nil {
		return Settings{}, err
	}
	price, err := config.ParseWei(cfg.Order.Price)
	if err != nil {
		return Settings{}, err
	}
	u := func(v uint64) *big.Int { return new(big.Int).SetUint64(v) }
	return Settings{
		TokenContract:       cfg.Artifacts.TokenContract,
		MarketplaceContract: cfg.Artifacts.MarketplaceContract,
		TokenURI:            cfg.Deploy.TokenURI,
		MarketplaceArg:      common.HexToAddress(cfg.Deploy.MarketplaceArg),
		OrderID:             u(cfg.Order.ID),
		TokenID:             u(cfg.Order.TokenID),
		Quantity:            u(cfg.Order.Quantity),
		Active:              cfg.Order.IsActive(),
		Price:               price,
		StartTime:           u(cfg.Order.StartTime),
		Duration:            u(cfg.Order.Duration),
	}, nil
}

// Result is what a completed run observed.
type Result struct {
	Token              common.Address
	Marketplace        common.Address
	OrderBefore        *market.Order
	OrderAfter         *market.Order
	BuyerTokens        *big.Int
	OwnerBalanceBefore *big.Int
	OwnerBalanceAfter  *big.Int
	MarketplaceBalance *big.Int
	Balances           []report.Snapshot
}

// Runner owns everything one run needs.
type Runner struct {
	client    *chain.Client
	factories FactoryFunc
	owner     *wallet.Signer
	buyer     *wallet.Signer
	settings  Settings
	limits    risk.Limits
	printer   *report.Printer
	ledger    *report.Ledger
	recorder  report.Recorder
	log       zerolog.Logger
}

// Option configures Runner construction parameters.
type Option func(*Runner)

// WithLimits installs a spend cap for the purchase.
func WithLimits(l risk.Limits) Option { return func(r *Runner) { r.limits = l } }

// WithPrinter redirects console output.
func WithPrinter(p *report.Printer) Option { return func(r *Runner) { r.printer = p } }

// WithRecorder attaches a run log.
func WithRecorder(rec report.Recorder) Option {
	return func(r *Runner) {
		if rec != nil {
			r.recorder = rec
		}
	}
}

// WithLedger shares a balance ledger with the caller; each run starts it empty.
func WithLedger(l *report.Ledger) Option { return func(r *Runner) { r.ledger = l } }

// WithLogger attaches a logger.
func WithLogger(log zerolog.Logger) Option { return func(r *Runner) { r.log = log } }

// NewRunner builds a runner; owner deploys and sells, buyer purchases.
func NewRunner(client *chain.Client, factories FactoryFunc, owner, buyer *wallet.Signer, settings Settings, opts ...Option) *Runner {
	r := &Runner{
		client:    client,
		factories: factories,
		owner:     owner,
		buyer:     buyer,
		settings:  settings,
		printer:   report.NewPrinter(nil),
		ledger:    report.NewLedger(8),
		recorder:  report.Discard{},
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes every step in order and stops at the first failure.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	s := r.settings
	if err := r.limits.Check(s.Price); err != nil {
		return nil, fmt.Errorf("fulfill order: %w", err)
	}

	tokenFactory, err := r.factories(s.TokenContract)
	if err != nil {
		return nil, fmt.Errorf("token factory: %w", err)
	}
	marketFactory, err := r.factories(s.MarketplaceContract)
	if err != nil {
		return nil, fmt.Errorf("marketplace factory: %w", err)
	}

	r.ledger.Reset()
	r.log.Info().Str("owner", r.owner.Address.Hex()).Str("buyer", r.buyer.Address.Hex()).Msg("starting marketplace flow")

	token, err := market.DeployToken(ctx, r.client, r.owner, tokenFactory, s.TokenURI)
	if err != nil {
		return nil, err
	}
	r.recorder.Record(report.Event{Step: "deploy token", Kind: report.KindDeploy, Contract: tokenFactory.Name, Address: token.Address().Hex()})

	mkt, err := market.DeployMarketplace(ctx, r.client, r.owner, marketFactory, s.MarketplaceArg)
	if err != nil {
		return nil, err
	}
	r.recorder.Record(report.Event{Step: "deploy marketplace", Kind: report.KindDeploy, Contract: marketFactory.Name, Address: mkt.Address().Hex()})

	res := &Result{Token: token.Address(), Marketplace: mkt.Address()}
	r.printer.Deployed("Mock ERC1155", res.Token)
	r.printer.Deployed("marketPlace", res.Marketplace)

	if res.OwnerBalanceBefore, err = r.nativeBalance(ctx, "owner balance", r.owner.Address); err != nil {
		return nil, err
	}
	if _, err := r.tokenBalance(ctx, token, "buyer tokens before", r.buyer.Address); err != nil {
		return nil, err
	}

	receipt, err := token.SetApprovalForAll(ctx, r.owner, mkt.Address(), true)
	if err != nil {
		return nil, err
	}
	r.recordTx("approve marketplace", tokenFactory.Name, receipt, nil)

	receipt, err = mkt.SetSaleOrder(ctx, r.owner, market.SaleOrder{
		TokenContract: token.Address(),
		TokenID:       s.TokenID,
		Quantity:      s.Quantity,
		Active:        s.Active,
		Price:         s.Price,
		StartTime:     s.StartTime,
		Duration:      s.Duration,
	})
	if err != nil {
		return nil, err
	}
	r.recordTx("set sale order", marketFactory.Name, receipt, nil)

	if res.OrderBefore, err = r.checkOrder(ctx, mkt, "order before"); err != nil {
		return nil, err
	}

	receipt, err = mkt.FulfillOrder(ctx, r.buyer, s.OrderID, s.Price)
	if err != nil {
		return nil, err
	}
	r.recordTx("fulfill order", marketFactory.Name, receipt, s.Price)

	if res.OrderAfter, err = r.checkOrder(ctx, mkt, "order after"); err != nil {
		return nil, err
	}
	if res.BuyerTokens, err = r.tokenBalance(ctx, token, "buyer tokens", r.buyer.Address); err != nil {
		return nil, err
	}
	if res.OwnerBalanceAfter, err = r.nativeBalance(ctx, "owner balance", r.owner.Address); err != nil {
		return nil, err
	}
	if res.MarketplaceBalance, err = r.nativeBalance(ctx, "marketplace balance", mkt.Address()); err != nil {
		return nil, err
	}

	res.Balances = r.ledger.Snapshots()
	r.summarize(res)
	return res, nil
}

func (r *Runner) nativeBalance(ctx context.Context, label string, addr common.Address) (*big.Int, error) {
	bal, err := r.client.Balance(ctx, addr)
	if err != nil {
		return nil, err
	}
	r.printer.Balance(label, bal)
	r.ledger.Record(label, addr, report.Native, bal)
	r.recorder.Record(report.Event{Step: label, Kind: report.KindBalance, Address: addr.Hex(), Value: bal.String()})
	return bal, nil
}

func (r *Runner) tokenBalance(ctx context.Context, token *market.Token, label string, addr common.Address) (*big.Int, error) {
	bal, err := token.BalanceOf(ctx, addr, r.settings.TokenID)
	if err != nil {
		return nil, err
	}
	asset := tokenAsset(r.settings.TokenID)
	r.ledger.Record(label, addr, asset, bal)
	r.recorder.Record(report.Event{Step: label, Kind: report.KindBalance, Contract: asset, Address: addr.Hex(), Value: bal.String()})
	if label == "buyer tokens" {
		r.printer.Balance(label, bal)
	}
	return bal, nil
}

func (r *Runner) checkOrder(ctx context.Context, mkt *market.Marketplace, step string) (*market.Order, error) {
	order, err := mkt.CheckOrder(ctx, r.settings.OrderID)
	if err != nil {
		return nil, err
	}
	r.printer.Value(step, order)
	r.recorder.Record(report.Event{Step: step, Kind: report.KindCall, Address: mkt.Address().Hex(), Detail: order.String()})
	return order, nil
}

func (r *Runner) recordTx(step, contract string, receipt *types.Receipt, value *big.Int) {
	ev := report.Event{Step: step, Kind: report.KindTx, Contract: contract, Tx: receipt.TxHash.Hex(), GasUsed: receipt.GasUsed}
	if value != nil {
		ev.Value = value.String()
	}
	r.recorder.Record(ev)
}

func (r *Runner) summarize(res *Result) {
	ev := r.log.Info()
	if d, ok := r.ledger.Delta(r.owner.Address, report.Native); ok {
		ev = ev.Str("owner_delta_wei", d.String())
	}
	if d, ok := r.ledger.Delta(r.buyer.Address, tokenAsset(r.settings.TokenID)); ok {
		ev = ev.Str("buyer_token_delta", d.String())
	}
	if active, ok := res.OrderAfter.Active(); ok {
		ev = ev.Bool("order_active", active)
	}
	ev.Int("balance_checks", len(res.Balances)).
		Str("marketplace_wei", res.MarketplaceBalance.String()).
		Msg("marketplace flow finished")
}

func tokenAsset(id *big.Int) string { return "token#" + id.String() }
