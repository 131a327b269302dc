/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the store with accounts,
	assets and pools so the API can be explored without setup calls.

AVAILABLE SCENARIOS:

	funded-accounts: accounts 1-5 hold 10000 currency each
	seeded-pool:     account 1 issues asset 0 and seeds its pool at 420/42
	active-market:   seeded-pool plus a trade and a second provider

HOW SCENARIOS WORK:
 1. Reset the store (clear all data)
 2. Deposit currency to the demo accounts
 3. Issue assets and create pools as the demo accounts
 4. Optionally trade and add liquidity

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "seeded-pool"}

NOTE:

	Scenarios reset the store. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: The same operations the loaders drive
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"

	"github.com/warp/swap-engine/bank"
	"github.com/warp/swap-engine/ledger"
	"github.com/warp/swap-engine/swap"
)

// ErrUnknownScenario is returned by Load for an id not in the catalogue.
var ErrUnknownScenario = errors.New("unknown scenario")

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "funded-accounts",
		Name:        "Funded Accounts",
		Description: "Accounts 1-5 each hold 10000 currency, no assets yet",
	},
	{
		ID:          "seeded-pool",
		Name:        "Seeded Pool",
		Description: "Asset 0 issued to account 1, pool 0 seeded with 420 currency and 42 tokens",
	},
	{
		ID:          "active-market",
		Name:        "Active Market",
		Description: "Seeded pool after account 2 bought tokens and account 3 joined as a provider",
	},
}

const (
	demoAccounts = 5
	demoFunding  = bank.Amount(10_000)
	noDeadline   = math.MaxUint64
)

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current})
}

// LoadScenario loads a predefined scenario.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScenarioID string `json:"scenario_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.Load(r.Context(), req.ScenarioID); err != nil {
		if errors.Is(err, ErrUnknownScenario) {
			writeError(w, http.StatusBadRequest, "Unknown scenario", err)
			return
		}
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// Load resets the store and populates scenario id.
func (h *Handler) Load(ctx context.Context, id string) error {
	var loader func(context.Context) error
	switch id {
	case "funded-accounts":
		loader = h.loadFundedAccounts
	case "seeded-pool":
		loader = h.loadSeededPool
	case "active-market":
		loader = h.loadActiveMarket
	default:
		return fmt.Errorf("%w: %q", ErrUnknownScenario, id)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.currentScenario = ""

	if err := h.store.Reset(ctx); err != nil {
		return fmt.Errorf("reset store: %w", err)
	}
	if err := loader(ctx); err != nil {
		return err
	}
	h.currentScenario = id
	return nil
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadFundedAccounts(ctx context.Context) error {
	for i := 1; i <= demoAccounts; i++ {
		who := ledger.AccountID(fmt.Sprint(i))
		if err := h.deposit(ctx, who, demoFunding); err != nil {
			return fmt.Errorf("fund account %s: %w", who, err)
		}
	}
	return nil
}

// loadSeededPool leaves account 1 with 100 tokens of asset 0 and all 420
// shares of pool 0.
func (h *Handler) loadSeededPool(ctx context.Context) error {
	if err := h.loadFundedAccounts(ctx); err != nil {
		return err
	}

	token, err := h.ledger.CreateAsset(ctx, "1", ledger.NewBalance(142))
	if err != nil {
		return fmt.Errorf("create asset: %w", err)
	}
	pool, err := h.swaps.CreatePool(ctx, "1", token)
	if err != nil {
		return fmt.Errorf("create pool: %w", err)
	}
	_, err = h.swaps.AddLiquidity(ctx, "1", swap.AddLiquidityRequest{
		Swap:      pool.ID,
		Currency:  420,
		MaxTokens: ledger.NewBalance(42),
		Deadline:  noDeadline,
	})
	if err != nil {
		return fmt.Errorf("seed pool: %w", err)
	}
	return nil
}

// loadActiveMarket moves reserves to 792/27 with 462 shares outstanding.
func (h *Handler) loadActiveMarket(ctx context.Context) error {
	if err := h.loadSeededPool(ctx); err != nil {
		return err
	}

	if _, err := h.swaps.CurrencyToTokensInput(ctx, "2", swap.CurrencyToTokensInputRequest{
		Swap:      0,
		Currency:  300,
		MinTokens: ledger.NewBalance(1),
		Deadline:  noDeadline,
	}); err != nil {
		return fmt.Errorf("buy tokens: %w", err)
	}

	if err := h.ledger.Transfer(ctx, 0, "1", "3", ledger.NewBalance(10)); err != nil {
		return fmt.Errorf("fund provider: %w", err)
	}
	if _, err := h.swaps.AddLiquidity(ctx, "3", swap.AddLiquidityRequest{
		Swap:      0,
		Currency:  72,
		MinShares: ledger.NewBalance(1),
		MaxTokens: ledger.NewBalance(10),
		Deadline:  noDeadline,
	}); err != nil {
		return fmt.Errorf("add liquidity: %w", err)
	}
	return nil
}
