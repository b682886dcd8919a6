package app

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"hotel_reconciler/internal/domain"
)

type BookingService struct {
	gw       domain.Gateway
	ledger   domain.TransactionLedger
	inv      *InventoryService
	currency string
	now      func() time.Time
}

func NewBookingService(gw domain.Gateway, l domain.TransactionLedger, inv *InventoryService, currency string) *BookingService {
	if currency == "" {
		currency = "PEN"
	}
	return &BookingService{gw: gw, ledger: l, inv: inv, currency: currency, now: time.Now}
}

type StartPaymentRequest struct {
	CategoryLabel string
	Amount        float64
	Email         string
	Customer      []byte // opaque
}

type StartPaymentResult struct {
	OrderID    string
	FormToken  string
	PaymentURL string
}

// StartPayment opens a gateway payment for one unit of a category and records
// the pending transaction the later push/poll observations reconcile against.
func (s *BookingService) StartPayment(ctx context.Context, req StartPaymentRequest) (StartPaymentResult, error) {
	if err := s.validate(ctx, req.CategoryLabel, req.Amount); err != nil {
		return StartPaymentResult{}, err
	}

	now := s.now()
	orderID := fmt.Sprintf("reserva_%d_%s", now.UnixMilli(), shortID(8))
	form, err := s.gw.CreatePayment(ctx, domain.CreatePaymentRequest{
		OrderID:  orderID,
		Amount:   int64(math.Round(req.Amount * 100)),
		Currency: s.currency,
		Email:    req.Email,
	})
	if err != nil {
		return StartPaymentResult{}, err
	}

	tx := domain.Transaction{
		ID:            uuid.NewString(),
		OrderID:       orderID,
		CategoryLabel: req.CategoryLabel,
		Amount:        req.Amount,
		Customer:      req.Customer,
		Status:        domain.TxPending,
		CreatedAt:     now.UTC(),
	}
	if err := s.ledger.CreateTransaction(ctx, tx); err != nil {
		return StartPaymentResult{}, fmt.Errorf("record transaction %s: %w", orderID, err)
	}
	log.Info().Str("order_id", orderID).Str("category", req.CategoryLabel).Msg("payment started")
	return StartPaymentResult{OrderID: orderID, FormToken: form.FormToken, PaymentURL: form.PaymentURL}, nil
}

type ManualReservationRequest struct {
	CategoryLabel string
	Amount        float64
	FirstName     string
	LastName      string
	Email         string
	DocumentID    string
	Phone         string
	CheckIn       string
	CheckOut      string
	Nights        int
}

// ManualReservation records an offline (QR transfer) booking in started
// state; an operator confirms or rejects it later.
func (s *BookingService) ManualReservation(ctx context.Context, req ManualReservationRequest) (string, error) {
	if err := s.validate(ctx, req.CategoryLabel, req.Amount); err != nil {
		return "", err
	}
	now := s.now()
	orderID := fmt.Sprintf("QR-%d-%s", now.UnixMilli(), shortID(4))
	tx := domain.Transaction{
		ID:            "tx-qr-" + uuid.NewString(),
		OrderID:       orderID,
		CategoryLabel: req.CategoryLabel,
		Amount:        req.Amount,
		Customer:      customerPayload(req),
		Status:        domain.TxStarted,
		CreatedAt:     now.UTC(),
	}
	if err := s.ledger.CreateTransaction(ctx, tx); err != nil {
		return "", fmt.Errorf("record manual reservation: %w", err)
	}
	log.Info().Str("order_id", orderID).Str("category", req.CategoryLabel).Msg("manual reservation recorded")
	return orderID, nil
}

func (s *BookingService) Transactions(ctx context.Context) ([]domain.Transaction, error) {
	return s.ledger.ListTransactions(ctx)
}

// DeleteTransaction is the administrative removal; it never touches inventory.
func (s *BookingService) DeleteTransaction(ctx context.Context, orderID string) (bool, error) {
	if orderID == "" {
		return false, fmt.Errorf("%w: orderId required", domain.ErrInvalidInput)
	}
	ok, err := s.ledger.DeleteTransaction(ctx, orderID)
	if err == nil && ok {
		log.Info().Str("order_id", orderID).Msg("transaction deleted")
	}
	return ok, err
}

func (s *BookingService) validate(ctx context.Context, label string, amount float64) error {
	if strings.TrimSpace(label) == "" {
		return fmt.Errorf("%w: room category required", domain.ErrInvalidInput)
	}
	if math.IsNaN(amount) || amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", domain.ErrInvalidInput)
	}
	ok, err := s.inv.HasCategoryLabel(ctx, label)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: unknown room category %q", domain.ErrInvalidInput, label)
	}
	return nil
}

func shortID(n int) string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:n]
}
