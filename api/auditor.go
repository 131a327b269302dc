/*
auditor.go - Periodic state auditor

PURPOSE:
  Re-checks ledger bookkeeping on a timer and publishes pool reserves as
  Prometheus gauges. Operations keep the books consistent on their own;
  the auditor catches a store that was edited behind swapd's back.

CHECKS:
  - Every asset: total supply equals the sum of holder balances
  - Every pool:  reserve gauges (currency, tokens, shares)

USAGE:
  auditor := NewAuditor(handler, time.Minute)
  auditor.Start()
  // ... later
  auditor.Stop()

  GET /api/audit runs the same checks on demand.

SEE ALSO:
  - metrics.go: Gauges set by the auditor
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/warp/swap-engine/ledger"
	"github.com/warp/swap-engine/state"
	"github.com/warp/swap-engine/swap"
)

// AuditReport is the outcome of one audit pass.
type AuditReport struct {
	CheckedAt  time.Time `json:"checked_at"`
	Assets     uint64    `json:"assets"`
	Pools      int       `json:"pools"`
	Violations []string  `json:"violations"`
}

// Auditor runs Handler.Audit on a fixed interval.
type Auditor struct {
	Handler       *Handler
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewAuditor creates an auditor. A non-positive interval disables it.
func NewAuditor(h *Handler, interval time.Duration) *Auditor {
	return &Auditor{
		Handler:       h,
		CheckInterval: interval,
		Enabled:       interval > 0,
	}
}

// Start begins the audit loop.
func (a *Auditor) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.Enabled {
		a.Handler.log.Info("auditor disabled")
		return
	}

	if a.ticker != nil {
		return
	}
	a.ticker = time.NewTicker(a.CheckInterval)
	a.stop = make(chan struct{})
	a.wg.Add(1)
	go a.run(a.ticker.C, a.stop)

	a.Handler.log.Info("auditor started", zap.Duration("interval", a.CheckInterval))
}

// Stop stops the audit loop and waits for a running pass to finish.
func (a *Auditor) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.ticker != nil {
		a.ticker.Stop()
		close(a.stop)
		a.wg.Wait()
		a.ticker = nil
		a.Handler.log.Info("auditor stopped")
	}
}

func (a *Auditor) run(tick <-chan time.Time, stop <-chan struct{}) {
	defer a.wg.Done()

	a.check()
	for {
		select {
		case <-tick:
			a.check()
		case <-stop:
			return
		}
	}
}

func (a *Auditor) check() {
	report, err := a.Handler.Audit(context.Background())
	if err != nil {
		a.Handler.log.Error("audit failed", zap.Error(err))
		return
	}
	if len(report.Violations) > 0 {
		a.Handler.log.Warn("audit found violations",
			zap.Int("count", len(report.Violations)),
			zap.Strings("violations", report.Violations),
		)
		return
	}
	a.Handler.log.Debug("audit clean", zap.Uint64("assets", report.Assets), zap.Int("pools", report.Pools))
}

// Audit checks every asset's supply against its holders and refreshes the
// pool reserve gauges. All reads happen in one transaction, so a commit
// racing the audit cannot make consistent books look broken.
func (h *Handler) Audit(ctx context.Context) (AuditReport, error) {
	report := AuditReport{CheckedAt: time.Now().UTC(), Violations: []string{}}
	var reserves []swap.Reserves

	err := h.store.WithTx(ctx, func(st state.Store) error {
		book := ledger.NewBook(st, nil)
		count, err := book.AssetCount(ctx)
		if err != nil {
			return err
		}
		report.Assets = count

		for i := uint64(0); i < count; i++ {
			if v, err := auditAsset(ctx, book, ledger.AssetID(i)); err != nil {
				return err
			} else if v != "" {
				report.Violations = append(report.Violations, v)
			}
		}

		pools := h.swaps.ReaderOn(st)
		list, err := pools.Pools(ctx)
		if err != nil {
			return err
		}
		report.Pools = len(list)
		for _, p := range list {
			r, err := pools.Reserves(ctx, p.ID)
			if err != nil {
				return err
			}
			reserves = append(reserves, r)
		}
		return nil
	})
	if err != nil {
		return report, err
	}

	for _, r := range reserves {
		h.metrics.setReserves(r)
	}
	h.metrics.auditViolations.Set(float64(len(report.Violations)))
	return report, nil
}

// auditAsset returns a violation message, or "" when supply matches holdings.
func auditAsset(ctx context.Context, book *ledger.Book, id ledger.AssetID) (string, error) {
	supply, err := book.TotalSupply(ctx, id)
	if err != nil {
		return "", err
	}
	holders, err := book.Holders(ctx, id)
	if err != nil {
		return "", err
	}
	sum := ledger.Zero
	for _, hd := range holders {
		if sum, err = sum.Add(hd.Balance); err != nil {
			return fmt.Sprintf("asset %s: holdings overflow", id), nil
		}
	}
	if !sum.Equal(supply) {
		return fmt.Sprintf("asset %s: supply %s, holdings %s", id, supply, sum), nil
	}
	return "", nil
}

// RunAudit runs an audit pass on demand.
// GET /api/audit
func (h *Handler) RunAudit(w http.ResponseWriter, r *http.Request) {
	report, err := h.Audit(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
