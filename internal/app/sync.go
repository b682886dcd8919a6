package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"hotel_reconciler/internal/domain"
)

// SyncService is the poll path: it asks the gateway for an order's current
// state and reconciles the full observation.
type SyncService struct {
	gw     domain.Gateway
	ledger domain.TransactionLedger
	rec    *Reconciler
}

func NewSyncService(gw domain.Gateway, l domain.TransactionLedger, rec *Reconciler) *SyncService {
	return &SyncService{gw: gw, ledger: l, rec: rec}
}

type SyncResult struct {
	Outcome       Outcome
	GatewayStatus string
	SubStatuses   []string
}

// SyncOrder polls one order. Gateway failures come back as
// domain.ErrGatewayUnreachable or domain.ErrGatewayMalformed and leave the
// ledger untouched; callers decide whether to retry.
func (s *SyncService) SyncOrder(ctx context.Context, orderID string) (SyncResult, error) {
	if orderID == "" {
		return SyncResult{}, fmt.Errorf("%w: orderId required", domain.ErrInvalidInput)
	}
	if _, err := s.ledger.GetTransaction(ctx, orderID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return SyncResult{}, domain.ErrUnknownOrder
		}
		return SyncResult{}, err
	}

	obs, err := s.gw.GetOrder(ctx, orderID)
	if err != nil {
		return SyncResult{}, err
	}
	if obs.OrderID == "" {
		obs.OrderID = orderID
	}
	if obs.OrderID != orderID {
		return SyncResult{}, fmt.Errorf("%w: asked for %s, got %s", domain.ErrGatewayMalformed, orderID, obs.OrderID)
	}

	res := SyncResult{GatewayStatus: gatewayStatus(obs), SubStatuses: obs.SubStatuses()}
	res.Outcome, err = s.rec.Reconcile(ctx, SourcePoll, obs)
	return res, err
}

func gatewayStatus(o domain.GatewayOrder) string {
	if o.OrderStatus != "" {
		return o.OrderStatus
	}
	if len(o.Transactions) > 0 {
		return o.Transactions[0].Status
	}
	return "UNKNOWN"
}

type SweepReport struct {
	Checked int
	Synced  int
	Failed  int
}

// SyncOpen polls every gateway-initiated order still pending, with at most
// workers concurrent gateway calls. Manual reservations (started) are left to
// operators since the gateway never saw them.
func (s *SyncService) SyncOpen(ctx context.Context, workers int) (SweepReport, error) {
	if workers <= 0 {
		workers = 1
	}
	txs, err := s.ledger.ListTransactions(ctx)
	if err != nil {
		return SweepReport{}, err
	}

	sem := semaphore.NewWeighted(int64(workers))
	var wg sync.WaitGroup
	var synced, failed atomic.Int64
	rep := SweepReport{}

	for _, tx := range txs {
		if tx.Status != domain.TxPending {
			continue
		}
		rep.Checked++

		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(orderID string) {
			defer wg.Done()
			defer sem.Release(1)

			res, err := s.SyncOrder(ctx, orderID)
			if err != nil {
				failed.Add(1)
				log.Warn().Str("order_id", orderID).Err(err).Msg("sync failed")
				return
			}
			synced.Add(1)
			log.Debug().Str("order_id", orderID).Str("stored", string(res.Outcome.Stored)).Msg("sync ok")
		}(tx.OrderID)
	}
	wg.Wait()

	rep.Synced = int(synced.Load())
	rep.Failed = int(failed.Load())
	return rep, ctx.Err()
}
