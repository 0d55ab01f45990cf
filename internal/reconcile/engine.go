package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"crypto-deposit-reconcile-go/internal/common"
	"crypto-deposit-reconcile-go/internal/explorer"
	"crypto-deposit-reconcile-go/internal/models"
	"crypto-deposit-reconcile-go/internal/pricing"
	"crypto-deposit-reconcile-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// EngineConfig contains the collaborators for one reconciliation engine.
type EngineConfig struct {
	Store          store.DepositStore
	Clients        []explorer.Client
	Oracle         pricing.Oracle
	Notifier       Notifier
	LookbackWindow time.Duration
}

// Engine runs reconciliation cycles: poll explorers, record new confirmed
// deposits, price the uncredited backlog and apply the balance credit.
type Engine struct {
	store          store.DepositStore
	clients        []explorer.Client
	oracle         pricing.Oracle
	notifier       Notifier
	lookbackWindow time.Duration
}

func NewEngine(cfg EngineConfig) *Engine {
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &Engine{
		store:          cfg.Store,
		clients:        cfg.Clients,
		oracle:         cfg.Oracle,
		notifier:       notifier,
		lookbackWindow: cfg.LookbackWindow,
	}
}

// ReconcileUser runs one full cycle for a user and returns the native-unit
// amounts newly recorded this cycle, keyed by asset.
//
// Explorer failures are absorbed per asset: the failed asset contributes
// nothing and the trailing lookback window picks its transfers up on a
// later cycle. Ledger failures abort the cycle; nothing was credited, so
// the cycle is safely retryable.
func (e *Engine) ReconcileUser(ctx context.Context, userId string) (map[common.Asset]decimal.Decimal, error) {
	user, err := e.store.GetUserById(ctx, userId)
	if err != nil {
		return nil, err
	}

	addresses, err := e.store.GetUserAddresses(ctx, user.Id)
	if err != nil {
		return nil, err
	}
	addressByNetwork := make(map[common.Network]string, len(addresses))
	for _, addr := range addresses {
		addressByNetwork[common.Network(addr.Network)] = addr.Address
	}

	known, err := e.store.ListDepositTxIds(ctx, user.Id)
	if err != nil {
		return nil, err
	}

	since := time.Now().UTC().Add(-e.lookbackWindow)
	sums := make(map[common.Asset]decimal.Decimal)
	var persistErr error
	var mutex sync.Mutex
	var wg sync.WaitGroup

	for _, client := range e.clients {
		asset := client.Asset()
		address, ok := addressByNetwork[asset.Network]
		if !ok {
			continue
		}

		wg.Add(1)
		go func(client explorer.Client, address string) {
			defer wg.Done()

			asset := client.Asset()
			knownSet := known[store.DepositKey(string(asset.Network), asset.Token)]
			sum, err := e.pollAsset(ctx, client, user.Id, address, since, knownSet)
			if err != nil {
				if errors.Is(err, explorer.ErrRemoteUnavailable) {
					zap.L().Warn("Explorer unavailable, asset skipped this cycle",
						zap.String("user_id", user.Id),
						zap.String("asset", asset.Key()),
						zap.Error(err))
					return
				}
				mutex.Lock()
				if persistErr == nil {
					persistErr = err
				}
				mutex.Unlock()
				return
			}
			if sum.IsPositive() {
				mutex.Lock()
				sums[asset] = sum
				mutex.Unlock()
			}
		}(client, address)
	}
	wg.Wait()

	if persistErr != nil {
		return nil, fmt.Errorf("reconciliation aborted: %w", persistErr)
	}

	// Pricing and crediting run strictly after every ledger write for this
	// cycle, and cover the whole uncredited backlog so deposits recorded
	// during an earlier failed pricing pass are not lost.
	if err := e.creditPending(ctx, user.Id); err != nil {
		return nil, err
	}

	return sums, nil
}

// pollAsset fetches one asset's transfers, records the unseen ones and
// returns the native-unit sum of what was newly recorded.
func (e *Engine) pollAsset(ctx context.Context, client explorer.Client, userId, address string,
	since time.Time, knownSet map[string]struct{}) (decimal.Decimal, error) {

	asset := client.Asset()
	transfers, err := client.FetchTransfers(ctx, address, since)
	if err != nil {
		return decimal.Zero, err
	}

	sum := decimal.Zero
	for _, transfer := range transfers {
		if _, seen := knownSet[transfer.TxId]; seen {
			continue
		}

		_, err := e.store.RecordDeposit(ctx, store.RecordDepositParams{
			TxId:      transfer.TxId,
			UserId:    userId,
			Network:   string(asset.Network),
			TokenName: asset.Token,
			Amount:    transfer.Amount,
			Vout:      transfer.Vout,
		})
		if errors.Is(err, store.ErrDuplicateDeposit) {
			// Raced another cycle; the row exists, nothing new to credit.
			continue
		}
		if err != nil {
			return decimal.Zero, err
		}

		native, err := common.ToNative(asset, transfer.Amount)
		if err != nil {
			return decimal.Zero, err
		}
		sum = sum.Add(native)
	}

	return sum, nil
}

// creditPending prices the user's whole uncredited backlog and applies one
// balance credit. A failed pricing cycle leaves the backlog untouched.
func (e *Engine) creditPending(ctx context.Context, userId string) error {
	deposits, err := e.store.UncreditedDeposits(ctx, userId)
	if err != nil {
		return err
	}
	if len(deposits) == 0 {
		return nil
	}

	amounts := make(map[string]decimal.Decimal)
	symbolByKey := make(map[string]string)
	var symbols []string
	var depositIds []string

	for _, deposit := range deposits {
		asset, err := common.ParseAsset(deposit.Network, deposit.TokenName)
		if err != nil {
			zap.L().Error("Uncredited deposit references unknown asset, leaving uncredited",
				zap.String("deposit_id", deposit.Id),
				zap.Error(err))
			continue
		}
		info, _ := common.Lookup(asset)
		native, err := common.ToNative(asset, deposit.Amount)
		if err != nil {
			return err
		}

		key := asset.Key()
		if _, ok := symbolByKey[key]; !ok {
			symbolByKey[key] = info.PriceSymbol
			symbols = append(symbols, info.PriceSymbol)
		}
		amounts[key] = amounts[key].Add(native)
		depositIds = append(depositIds, deposit.Id)
	}
	if len(depositIds) == 0 {
		return nil
	}

	prices, err := e.oracle.GetPrices(ctx, symbols)
	if err != nil {
		if errors.Is(err, pricing.ErrPriceUnavailable) {
			zap.L().Warn("Pricing unavailable, deposits remain uncredited until next cycle",
				zap.String("user_id", userId),
				zap.Int("deposits", len(depositIds)))
			return nil
		}
		return err
	}

	total := decimal.Zero
	for key, native := range amounts {
		total = total.Add(native.Mul(prices[symbolByKey[key]]))
	}
	if !total.IsPositive() {
		return nil
	}

	breakdown, err := json.Marshal(amounts)
	if err != nil {
		return fmt.Errorf("failed to serialize credit breakdown: %w", err)
	}

	event, err := e.store.ApplyCredit(ctx, store.ApplyCreditParams{
		UserId:     userId,
		FiatAmount: total,
		Breakdown:  string(breakdown),
		DepositIds: depositIds,
	})
	if err != nil {
		if errors.Is(err, store.ErrConcurrentModification) {
			// An overlapping cycle credited first; its notification covers
			// these deposits.
			zap.L().Warn("Concurrent credit detected, skipping",
				zap.String("user_id", userId))
			return nil
		}
		return err
	}

	notification := models.CreditNotification{
		UserId:    userId,
		Amounts:   amounts,
		FiatTotal: event.FiatAmount,
	}
	if err := e.notifier.Notify(ctx, notification); err != nil {
		// The credit is committed; a lost notification must not fail the
		// cycle or the credit would be retried.
		zap.L().Error("Failed to dispatch credit notification",
			zap.String("user_id", userId),
			zap.Error(err))
	}

	return nil
}
