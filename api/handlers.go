/*
handlers.go - HTTP API handlers for the token ledger and swap pools

PURPOSE:
  Exposes the ledger, the currency bank and the swap engine via REST API.
  Handles HTTP request/response, JSON serialization, and delegates to
  domain logic.

ENDPOINTS:
  Assets:
    POST   /api/assets                                   Issue an asset to the caller
    GET    /api/assets/{id}                              Supply, holders, pool links
    GET    /api/assets/{id}/balances/{account}           One balance
    GET    /api/assets/{id}/allowances/{owner}/{spender} One allowance
    POST   /api/assets/{id}/transfer|approve|transfer-from|mint|burn

  Swaps:
    GET    /api/swaps[?token=]                           Pools with reserves
    POST   /api/swaps                                    Create a pool
    GET    /api/swaps/{id}                               One pool
    POST   /api/swaps/{id}/liquidity                     Add liquidity
    POST   /api/swaps/{id}/liquidity/remove              Remove liquidity
    POST   /api/swaps/{id}/trades/{kind}                 Trade
    GET    /api/swaps/{id}/quote/{kind}?amount=          Price a trade

  Currency:
    GET    /api/currency/{account}                       Free balance
    POST   /api/currency/deposit                         Faucet deposit to the caller

CALLER IDENTITY:
  Mutating endpoints act as the account named in the X-Account-ID header.
  Reserve accounts ("swap:" prefix) can never be the caller. Authenticating
  the header is left to the gateway in front of swapd.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Malformed input, zero amounts, expired deadlines
  - 403: Caller not allowed (reserved account, pool share asset)
  - 404: Unknown asset or pool
  - 409: Pool already exists
  - 422: Rejected by state (slippage, insufficient funds, overflow)
  - 500: Storage failures

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/warp/swap-engine/bank"
	"github.com/warp/swap-engine/event"
	"github.com/warp/swap-engine/ledger"
	"github.com/warp/swap-engine/state"
	"github.com/warp/swap-engine/swap"
)

// HeaderAccount carries the caller's account id.
const HeaderAccount = "X-Account-ID"

var (
	errMissingCaller  = errors.New("missing " + HeaderAccount + " header")
	errReservedCaller = errors.New("reserved accounts cannot act as caller")
	errShareAsset     = errors.New("share assets are issued and burned only by their pool")
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Store is the state backend the API runs on. Reset is used by scenarios.
type Store interface {
	state.TxStore
	Reset(ctx context.Context) error
}

// Options configures a Handler. Zero values get defaults.
type Options struct {
	ExistentialDeposit bank.Amount
	Clock              swap.Clock
	Logger             *zap.Logger
	Registry           *prometheus.Registry
	EventBuffer        int
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	store    Store
	ledger   *ledger.Ledger
	swaps    *swap.Engine
	ed       bank.Amount
	events   *event.MemorySink
	metrics  *Metrics
	registry *prometheus.Registry
	log      *zap.Logger

	mu              sync.Mutex
	currentScenario string
}

// NewHandler wires the ledger and swap engine to store.
func NewHandler(store Store, opts Options) (*Handler, error) {
	if store == nil {
		return nil, errors.New("api: store is required")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
	}
	if opts.ExistentialDeposit == 0 {
		opts.ExistentialDeposit = 1
	}

	h := &Handler{
		store:    store,
		ed:       opts.ExistentialDeposit,
		events:   event.NewMemorySink(opts.EventBuffer),
		metrics:  NewMetrics(opts.Registry),
		registry: opts.Registry,
		log:      opts.Logger,
	}
	sink := event.Multi{h.events, h.metrics, logSink{log: opts.Logger}}

	h.ledger = ledger.NewLedger(store, sink)
	eng, err := swap.New(swap.Config{
		Store:    store,
		Currency: swap.BankCurrency(opts.ExistentialDeposit),
		Clock:    opts.Clock,
		Sink:     sink,
	})
	if err != nil {
		return nil, err
	}
	h.swaps = eng
	return h, nil
}

// =============================================================================
// ASSET HANDLERS
// =============================================================================

// CreateAsset issues a new asset with the initial supply credited to the caller.
// POST /api/assets
func (h *Handler) CreateAsset(w http.ResponseWriter, r *http.Request) {
	who, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req CreateAssetRequest
	if !decode(w, r, &req) {
		return
	}

	id, err := h.ledger.CreateAsset(r.Context(), who, req.InitialSupply)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, AssetDTO{
		ID:          id,
		TotalSupply: req.InitialSupply,
		Holders:     holdingDTOs([]ledger.Holding{{Account: who, Balance: req.InitialSupply}}),
	})
}

// GetAsset returns an asset's supply and holders, and links it to its pool.
// GET /api/assets/{id}
func (h *Handler) GetAsset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := assetParam(w, r)
	if !ok {
		return
	}
	if err := h.requireAsset(ctx, id); err != nil {
		h.fail(w, r, err)
		return
	}

	supply, err := h.ledger.TotalSupply(ctx, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	holders, err := h.ledger.Holders(ctx, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	dto := AssetDTO{ID: id, TotalSupply: supply, Holders: holdingDTOs(holders)}

	if pool, err := h.swaps.PoolForToken(ctx, id); err == nil {
		dto.Pool = &pool.ID
	} else if !errors.Is(err, swap.ErrNoSwapExists) {
		h.fail(w, r, err)
		return
	}
	shareOf, isShare, err := h.shareOwner(ctx, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if isShare {
		dto.ShareOf = &shareOf
	}
	writeJSON(w, http.StatusOK, dto)
}

// GetAssetBalance returns one account's balance.
// GET /api/assets/{id}/balances/{account}
func (h *Handler) GetAssetBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := assetParam(w, r)
	if !ok {
		return
	}
	if err := h.requireAsset(ctx, id); err != nil {
		h.fail(w, r, err)
		return
	}
	who := ledger.AccountID(chi.URLParam(r, "account"))

	bal, err := h.ledger.BalanceOf(ctx, id, who)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceDTO{Asset: id, Account: who, Balance: bal})
}

// GetAllowance returns how much spender may move from owner's balance.
// GET /api/assets/{id}/allowances/{owner}/{spender}
func (h *Handler) GetAllowance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := assetParam(w, r)
	if !ok {
		return
	}
	if err := h.requireAsset(ctx, id); err != nil {
		h.fail(w, r, err)
		return
	}
	owner := ledger.AccountID(chi.URLParam(r, "owner"))
	spender := ledger.AccountID(chi.URLParam(r, "spender"))

	allowance, err := h.ledger.Allowance(ctx, id, owner, spender)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AllowanceDTO{Asset: id, Owner: owner, Spender: spender, Allowance: allowance})
}

// Transfer moves the caller's tokens.
// POST /api/assets/{id}/transfer
func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	who, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, ok := assetParam(w, r)
	if !ok {
		return
	}
	var req TransferRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.ledger.Transfer(r.Context(), id, who, req.To, req.Amount); err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeBalance(w, r, id, who)
}

// Approve raises a spender's allowance over the caller's tokens.
// POST /api/assets/{id}/approve
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	who, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, ok := assetParam(w, r)
	if !ok {
		return
	}
	var req ApproveRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.ledger.Approve(ctx, id, who, req.Spender, req.Amount); err != nil {
		h.fail(w, r, err)
		return
	}
	allowance, err := h.ledger.Allowance(ctx, id, who, req.Spender)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AllowanceDTO{Asset: id, Owner: who, Spender: req.Spender, Allowance: allowance})
}

// TransferFrom spends an allowance the owner granted to the caller.
// POST /api/assets/{id}/transfer-from
func (h *Handler) TransferFrom(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	who, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, ok := assetParam(w, r)
	if !ok {
		return
	}
	var req TransferFromRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.ledger.TransferFrom(ctx, id, who, req.Owner, req.To, req.Amount); err != nil {
		h.fail(w, r, err)
		return
	}
	allowance, err := h.ledger.Allowance(ctx, id, req.Owner, who)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AllowanceDTO{Asset: id, Owner: req.Owner, Spender: who, Allowance: allowance})
}

// Mint credits new tokens. Pool share assets cannot be minted here.
// POST /api/assets/{id}/mint
func (h *Handler) Mint(w http.ResponseWriter, r *http.Request) {
	who, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, ok := assetParam(w, r)
	if !ok {
		return
	}
	var req MintRequest
	if !decode(w, r, &req) {
		return
	}
	if !h.requireIssuable(w, r, id) {
		return
	}
	to := req.To
	if to == "" {
		to = who
	}

	if err := h.ledger.Mint(r.Context(), id, to, req.Amount); err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeBalance(w, r, id, to)
}

// Burn destroys the caller's tokens. Pool share assets cannot be burned here.
// POST /api/assets/{id}/burn
func (h *Handler) Burn(w http.ResponseWriter, r *http.Request) {
	who, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, ok := assetParam(w, r)
	if !ok {
		return
	}
	var req BurnRequest
	if !decode(w, r, &req) {
		return
	}
	if !h.requireIssuable(w, r, id) {
		return
	}

	if err := h.ledger.Burn(r.Context(), id, who, req.Amount); err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeBalance(w, r, id, who)
}

// =============================================================================
// SWAP HANDLERS
// =============================================================================

// ListSwaps returns every pool with its reserves, or the pool of ?token=.
// GET /api/swaps
func (h *Handler) ListSwaps(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var pools []swap.Pool
	if raw := r.URL.Query().Get("token"); raw != "" {
		token, err := ledger.ParseAssetID(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid token parameter", err)
			return
		}
		pool, err := h.swaps.PoolForToken(ctx, token)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		pools = []swap.Pool{pool}
	} else {
		all, err := h.swaps.Pools(ctx)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		pools = all
	}

	dtos := make([]PoolDTO, 0, len(pools))
	for _, p := range pools {
		reserves, err := h.swaps.Reserves(ctx, p.ID)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		dtos = append(dtos, PoolDTO{Pool: p, Reserves: reserves})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateSwap opens a pool for an existing asset.
// POST /api/swaps
func (h *Handler) CreateSwap(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	who, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req CreatePoolRequest
	if !decode(w, r, &req) {
		return
	}

	pool, err := h.swaps.CreatePool(ctx, who, req.Token)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	reserves, err := h.swaps.Reserves(ctx, pool.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, PoolDTO{Pool: pool, Reserves: reserves})
}

// GetSwap returns one pool with its reserves.
// GET /api/swaps/{id}
func (h *Handler) GetSwap(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := swapParam(w, r)
	if !ok {
		return
	}

	pool, err := h.swaps.Pool(ctx, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	reserves, err := h.swaps.Reserves(ctx, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PoolDTO{Pool: pool, Reserves: reserves})
}

// AddLiquidity deposits currency and tokens for shares.
// POST /api/swaps/{id}/liquidity
func (h *Handler) AddLiquidity(w http.ResponseWriter, r *http.Request) {
	who, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, ok := swapParam(w, r)
	if !ok {
		return
	}
	var req swap.AddLiquidityRequest
	if !decode(w, r, &req) {
		return
	}
	req.Swap = id

	receipt, err := h.swaps.AddLiquidity(r.Context(), who, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

// RemoveLiquidity burns shares for a proportional cut of the reserves.
// POST /api/swaps/{id}/liquidity/remove
func (h *Handler) RemoveLiquidity(w http.ResponseWriter, r *http.Request) {
	who, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, ok := swapParam(w, r)
	if !ok {
		return
	}
	var req swap.RemoveLiquidityRequest
	if !decode(w, r, &req) {
		return
	}
	req.Swap = id

	receipt, err := h.swaps.RemoveLiquidity(r.Context(), who, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

// Trade kinds, as used in /trades/{kind} and /quote/{kind}.
const (
	KindCurrencyToTokensInput  = "currency-to-tokens-input"
	KindCurrencyToTokensOutput = "currency-to-tokens-output"
	KindTokensToCurrencyInput  = "tokens-to-currency-input"
	KindTokensToCurrencyOutput = "tokens-to-currency-output"
)

// Trade executes one of the four trade kinds.
// POST /api/swaps/{id}/trades/{kind}
func (h *Handler) Trade(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	who, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, ok := swapParam(w, r)
	if !ok {
		return
	}

	var (
		receipt swap.Receipt
		err     error
	)
	switch kind := chi.URLParam(r, "kind"); kind {
	case KindCurrencyToTokensInput:
		var req swap.CurrencyToTokensInputRequest
		if !decode(w, r, &req) {
			return
		}
		req.Swap = id
		receipt, err = h.swaps.CurrencyToTokensInput(ctx, who, req)
	case KindCurrencyToTokensOutput:
		var req swap.CurrencyToTokensOutputRequest
		if !decode(w, r, &req) {
			return
		}
		req.Swap = id
		receipt, err = h.swaps.CurrencyToTokensOutput(ctx, who, req)
	case KindTokensToCurrencyInput:
		var req swap.TokensToCurrencyInputRequest
		if !decode(w, r, &req) {
			return
		}
		req.Swap = id
		receipt, err = h.swaps.TokensToCurrencyInput(ctx, who, req)
	case KindTokensToCurrencyOutput:
		var req swap.TokensToCurrencyOutputRequest
		if !decode(w, r, &req) {
			return
		}
		req.Swap = id
		receipt, err = h.swaps.TokensToCurrencyOutput(ctx, who, req)
	default:
		writeError(w, http.StatusNotFound, fmt.Sprintf("Unknown trade kind %q", kind), nil)
		return
	}

	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

// Quote prices a trade against the current reserves.
// GET /api/swaps/{id}/quote/{kind}?amount=
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := swapParam(w, r)
	if !ok {
		return
	}
	kind := chi.URLParam(r, "kind")
	raw := r.URL.Query().Get("amount")

	var (
		out fmt.Stringer
		err error
	)
	switch kind {
	case KindCurrencyToTokensInput, KindTokensToCurrencyOutput:
		amount, perr := bank.ParseAmount(raw)
		if perr != nil {
			writeError(w, http.StatusBadRequest, "Invalid amount parameter", perr)
			return
		}
		if kind == KindCurrencyToTokensInput {
			out, err = h.swaps.QuoteCurrencyToTokensInput(ctx, id, amount)
		} else {
			out, err = h.swaps.QuoteTokensToCurrencyOutput(ctx, id, amount)
		}
	case KindCurrencyToTokensOutput, KindTokensToCurrencyInput:
		amount, perr := ledger.ParseBalance(raw)
		if perr != nil {
			writeError(w, http.StatusBadRequest, "Invalid amount parameter", perr)
			return
		}
		if kind == KindCurrencyToTokensOutput {
			out, err = h.swaps.QuoteCurrencyToTokensOutput(ctx, id, amount)
		} else {
			out, err = h.swaps.QuoteTokensToCurrencyInput(ctx, id, amount)
		}
	default:
		writeError(w, http.StatusNotFound, fmt.Sprintf("Unknown trade kind %q", kind), nil)
		return
	}

	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, QuoteDTO{Swap: id, Kind: kind, Input: raw, Amount: out.String()})
}

// =============================================================================
// CURRENCY HANDLERS
// =============================================================================

// GetCurrency returns an account's free currency balance.
// GET /api/currency/{account}
func (h *Handler) GetCurrency(w http.ResponseWriter, r *http.Request) {
	h.writeCurrency(w, r, ledger.AccountID(chi.URLParam(r, "account")))
}

// Deposit mints currency to the caller.
// POST /api/currency/deposit
func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	who, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req DepositRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Amount == 0 {
		h.fail(w, r, ledger.ErrZeroAmount)
		return
	}

	if err := h.deposit(r.Context(), who, req.Amount); err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeCurrency(w, r, who)
}

func (h *Handler) writeCurrency(w http.ResponseWriter, r *http.Request, who ledger.AccountID) {
	ctx := r.Context()
	b := bank.New(h.store, h.ed)

	free, err := b.FreeBalance(ctx, who)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	issuance, err := b.TotalIssuance(ctx)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CurrencyDTO{
		Account:            who,
		Free:               free,
		TotalIssuance:      issuance,
		ExistentialDeposit: h.ed,
	})
}

func (h *Handler) deposit(ctx context.Context, who ledger.AccountID, amount bank.Amount) error {
	return h.store.WithTx(ctx, func(st state.Store) error {
		return bank.New(st, h.ed).Deposit(ctx, who, amount)
	})
}

// =============================================================================
// HELPERS
// =============================================================================

// caller reads and checks the acting account. It writes the error response
// itself and reports whether the handler may continue.
func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (ledger.AccountID, bool) {
	who := ledger.AccountID(r.Header.Get(HeaderAccount))
	if who == "" {
		writeError(w, http.StatusUnauthorized, "Missing caller", errMissingCaller)
		return "", false
	}
	if err := who.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid caller", err)
		return "", false
	}
	if who.Reserved() {
		writeError(w, http.StatusForbidden, "Caller not allowed", errReservedCaller)
		return "", false
	}
	return who, true
}

func (h *Handler) requireAsset(ctx context.Context, id ledger.AssetID) error {
	count, err := h.ledger.AssetCount(ctx)
	if err != nil {
		return err
	}
	if uint64(id) >= count {
		return fmt.Errorf("%w: %s", ledger.ErrUnknownAsset, id)
	}
	return nil
}

// requireIssuable refuses direct mint and burn of pool share assets, whose
// supply must track the pool's reserves.
func (h *Handler) requireIssuable(w http.ResponseWriter, r *http.Request, id ledger.AssetID) bool {
	_, isShare, err := h.shareOwner(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return false
	}
	if isShare {
		writeError(w, http.StatusForbidden, "Asset not issuable", errShareAsset)
		return false
	}
	return true
}

// shareOwner returns the pool whose share asset is id.
func (h *Handler) shareOwner(ctx context.Context, id ledger.AssetID) (swap.ID, bool, error) {
	pools, err := h.swaps.Pools(ctx)
	if err != nil {
		return 0, false, err
	}
	for _, p := range pools {
		if p.ShareID == id {
			return p.ID, true, nil
		}
	}
	return 0, false, nil
}

func (h *Handler) writeBalance(w http.ResponseWriter, r *http.Request, id ledger.AssetID, who ledger.AccountID) {
	bal, err := h.ledger.BalanceOf(r.Context(), id, who)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceDTO{Asset: id, Account: who, Balance: bal})
}

// fail maps a domain error to its HTTP status.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var slip *swap.SlippageError
	switch {
	case errors.Is(err, state.ErrConflict):
		w.Header().Set("Retry-After", "1")
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error(), Code: "retry"})
	case swap.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: "not_found"})
	case errors.Is(err, swap.ErrSwapAlreadyExists):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error(), Code: "conflict"})
	case errors.As(err, &slip):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error: err.Error(),
			Code:  "slippage",
			Details: SlippageDetails{
				Reason:   slip.Err.Error(),
				Expected: slip.Expected,
				Limit:    slip.Limit,
			},
		})
	case isInvalidRequest(err):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "invalid_request"})
	case swap.IsClientError(err):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error(), Code: "rejected"})
	default:
		h.log.Error("request failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

func isInvalidRequest(err error) bool {
	for _, target := range []error{
		ledger.ErrZeroAmount, ledger.ErrInvalidAccount,
		swap.ErrExpired, swap.ErrBurnZeroShares, swap.ErrRequestedZeroLiquidity,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func assetParam(w http.ResponseWriter, r *http.Request) (ledger.AssetID, bool) {
	id, err := ledger.ParseAssetID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid asset id", err)
		return 0, false
	}
	return id, true
}

func swapParam(w http.ResponseWriter, r *http.Request) (swap.ID, bool) {
	id, err := swap.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid swap id", err)
		return 0, false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

func holdingDTOs(holdings []ledger.Holding) []HoldingDTO {
	dtos := make([]HoldingDTO, 0, len(holdings))
	for _, hd := range holdings {
		if hd.Balance.IsZero() {
			continue
		}
		dtos = append(dtos, HoldingDTO{Account: hd.Account, Balance: hd.Balance})
	}
	return dtos
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
