package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"hotel_reconciler/internal/adapters/observability"
	"hotel_reconciler/internal/domain"
)

// Observation sources, used for logs and metrics.
const (
	SourcePush   = "push"
	SourcePoll   = "poll"
	SourceManual = "manual"
)

// guardAttempts is the initial compare-and-set plus one retry after a re-read.
const guardAttempts = 2

// Outcome describes what one reconciliation did.
type Outcome struct {
	OrderID      string
	Previous     domain.TxStatus
	Resolved     domain.TxStatus // what the observation said
	Stored       domain.TxStatus // what the ledger now holds
	AlreadyFinal bool            // previous was successful; no side effects ran
	UnitBound    bool
	UnitID       int64
	NoFreeUnit   bool // paid, but the category had no free unit
}

// Reconciler merges gateway observations into the ledger and, on the first
// transition to successful, binds one free unit of the paid category.
type Reconciler struct {
	ledger domain.TransactionLedger
	inv    *InventoryService
}

func NewReconciler(l domain.TransactionLedger, inv *InventoryService) *Reconciler {
	return &Reconciler{ledger: l, inv: inv}
}

// Reconcile resolves a full gateway observation (order status plus
// sub-transactions) and applies it.
func (r *Reconciler) Reconcile(ctx context.Context, source string, obs domain.GatewayOrder) (Outcome, error) {
	return r.Apply(ctx, source, obs.OrderID, Resolve(obs.OrderStatus, obs.SubStatuses()), obs.Detail())
}

// Apply stores status for orderID. Writes are compare-and-set on the status
// read just before, so concurrent push and poll deliveries for the same order
// serialise: only the writer that moves the order into successful binds a unit.
func (r *Reconciler) Apply(ctx context.Context, source, orderID string, status domain.TxStatus, detail []byte) (Outcome, error) {
	ctx, span := otel.Tracer("hotel_reconciler/app").Start(ctx, "reconcile")
	defer span.End()
	span.SetAttributes(
		attribute.String("order_id", orderID),
		attribute.String("source", source),
		attribute.String("resolved", string(status)),
	)

	if !status.Valid() {
		return Outcome{}, fmt.Errorf("%w: status %q", domain.ErrInvalidInput, status)
	}

	for attempt := 0; attempt < guardAttempts; attempt++ {
		tx, err := r.ledger.GetTransaction(ctx, orderID)
		if errors.Is(err, domain.ErrNotFound) {
			span.SetStatus(codes.Error, "unknown order")
			return Outcome{OrderID: orderID, Resolved: status}, domain.ErrUnknownOrder
		}
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return Outcome{}, fmt.Errorf("get transaction %s: %w", orderID, err)
		}

		out := Outcome{OrderID: orderID, Previous: tx.Status, Resolved: status, Stored: status}
		if tx.Status == domain.TxSuccessful {
			// finalized: keep the audit trail fresh, never downgrade, never rebind
			out.Stored = domain.TxSuccessful
			out.AlreadyFinal = true
		}

		ok, err := r.ledger.SetTransactionStatus(ctx, orderID, tx.Status, out.Stored, detail)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return Outcome{}, fmt.Errorf("set transaction status %s: %w", orderID, err)
		}
		if !ok {
			log.Debug().Str("order_id", orderID).Str("previous", string(tx.Status)).
				Msg("transaction changed under us; re-reading")
			continue
		}

		if out.Stored == domain.TxSuccessful && !out.AlreadyFinal {
			r.bind(ctx, tx, &out)
		} else {
			observability.ObserveBinding("skipped")
		}

		observability.ObserveReconcile(source, string(out.Stored))
		span.SetAttributes(attribute.Bool("unit_bound", out.UnitBound))
		log.Info().
			Str("order_id", orderID).
			Str("source", source).
			Str("previous", string(out.Previous)).
			Str("resolved", string(out.Resolved)).
			Str("stored", string(out.Stored)).
			Bool("unit_bound", out.UnitBound).
			Int64("unit_id", out.UnitID).
			Msg("reconciled")
		return out, nil
	}

	span.SetStatus(codes.Error, "status conflict")
	return Outcome{OrderID: orderID, Resolved: status}, domain.ErrStatusConflict
}

// bind is best-effort: the payment outcome is already committed and stands
// even when no unit can be reserved.
func (r *Reconciler) bind(ctx context.Context, tx domain.Transaction, out *Outcome) {
	u, err := r.inv.BindFreeUnit(ctx, tx.CategoryLabel)
	switch {
	case errors.Is(err, domain.ErrNoFreeUnit):
		out.NoFreeUnit = true
		observability.ObserveBinding("no_free_unit")
		log.Warn().
			Str("event", "overbooking").
			Str("order_id", tx.OrderID).
			Str("category", tx.CategoryLabel).
			Msg("paid order has no free unit to bind")
	case err != nil:
		observability.ObserveBinding("error")
		log.Error().Err(err).Str("order_id", tx.OrderID).Msg("unit binding failed")
	default:
		out.UnitBound = true
		out.UnitID = u.ID
		observability.ObserveBinding("bound")
	}
}
